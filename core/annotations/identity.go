package annotations

import (
	"path/filepath"
	"strings"
)

// Delimiter separates the path and text halves of an identity. A Delimiter inside
// the path is escaped, so the first unescaped Delimiter always ends the path.
const Delimiter = "|"

const escapeChar = `\`

var pathEscaper = strings.NewReplacer(escapeChar, escapeChar+escapeChar, Delimiter, escapeChar+Delimiter)

// Annotation is a single TODO comment found while scanning a source tree.
type Annotation struct {
	// Path is the repository-relative, forward-slash path of the file.
	Path string
	// Text is the trimmed comment payload after "TODO:".
	Text string
	// Line is the 1-based line number. Informational only, never part of the identity.
	Line int
}

// Identity returns the deduplication key for the annotation.
func (a Annotation) Identity() string {
	return Identity(a.Path, a.Text)
}

// Identity derives the stable identity of an annotation from its path and text.
// Identical (path, text) pairs always produce the same identity and a change to
// either produces a different one. The result is kept human readable on purpose:
// it is embedded verbatim in the tracked record body.
func Identity(path, text string) string {
	return pathEscaper.Replace(NormalizePath(path)) + Delimiter + text
}

// NormalizePath converts a path to the forward-slash relative form used in identities.
// Drive prefixes and leading "./" or "/" segments are removed.
func NormalizePath(path string) string {
	p := strings.TrimPrefix(path, filepath.VolumeName(path))
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return strings.TrimLeft(p, "/")
}

// IdentitySet is a set of annotation identities.
type IdentitySet map[string]struct{}

// NewIdentitySet builds a set holding the given identities.
func NewIdentitySet(ids ...string) IdentitySet {
	s := make(IdentitySet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id into the set.
func (s IdentitySet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set. A nil set contains nothing.
func (s IdentitySet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of identities in the set.
func (s IdentitySet) Len() int {
	return len(s)
}
