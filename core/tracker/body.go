package tracker

import (
	"bytes"
	"fmt"
	"text/template"
	"unicode/utf8"

	"github.com/opensdd/osdd-todosync/core/annotations"
)

// maxTitleLength is GitHub's limit on issue titles, in characters.
const maxTitleLength = 256

const titlePrefix = "TODO: "

// issueBodyTemplate renders the body of a tracked record. The fenced fingerprint
// line is read back by ListTrackedIdentities on later runs and must stay last.
// Text is quoted so it never starts a line of its own.
const issueBodyTemplate = `## TODO

> {{.Text}}

**File:** ` + "`{{.Path}}`" + ` (line {{.Line}})

<!-- Created from a source TODO comment. The fingerprint below links this issue to it; keep it unchanged. -->
` + "```" + `
{{.Marker}}
` + "```" + `
`

var issueBody = template.Must(template.New("issueBody").Parse(issueBodyTemplate))

// IssueTitle builds an issue title from annotation text, truncated to GitHub's limit.
func IssueTitle(text string) string {
	title := titlePrefix + text
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	const ellipsis = "..."
	runes := []rune(title)
	return string(runes[:maxTitleLength-len(ellipsis)]) + ellipsis
}

// RenderIssueBody renders the body for a, embedding its identity after the fingerprint marker.
func RenderIssueBody(a annotations.Annotation) (string, error) {
	data := struct {
		Text   string
		Path   string
		Line   int
		Marker string
	}{
		Text:   a.Text,
		Path:   a.Path,
		Line:   a.Line,
		Marker: annotations.FormatMarker(a.Identity()),
	}
	var out bytes.Buffer
	if err := issueBody.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to execute issue body template: %w", err)
	}
	return out.String(), nil
}

// NewIssueInput builds the create-issue payload for a.
func NewIssueInput(a annotations.Annotation, label string) (IssueInput, error) {
	body, err := RenderIssueBody(a)
	if err != nil {
		return IssueInput{}, err
	}
	input := IssueInput{Title: IssueTitle(a.Text), Body: body}
	if label != "" {
		input.Labels = []string{label}
	}
	return input, nil
}
