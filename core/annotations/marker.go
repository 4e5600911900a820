package annotations

import (
	"regexp"
	"strings"
)

// FingerprintKey is the key of the marker line that links a tracked record to its
// annotation. It is the only state persisted between runs: never rename it.
const FingerprintKey = "fingerprint"

var fingerprintPattern = regexp.MustCompile(`(?m)^[ \t]*` + FingerprintKey + `=(.+)$`)

// FormatMarker returns the marker line embedding id.
func FormatMarker(id string) string {
	return FingerprintKey + "=" + id
}

// ExtractIdentity returns the identity carried by the last marker line in body.
// Rendered bodies end with the marker, so text above it cannot shadow it.
// Bodies without a marker (or with an empty one) return false.
func ExtractIdentity(body string) (string, bool) {
	matches := fingerprintPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return "", false
	}
	id := strings.TrimSpace(matches[len(matches)-1][1])
	if id == "" {
		return "", false
	}
	return id, true
}
