package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/opensdd/osdd-todosync/core/annotations"
)

// RecordStatus is the outcome for one selected annotation.
type RecordStatus string

const (
	StatusCreated RecordStatus = "created"
	StatusFailed  RecordStatus = "failed"
	// StatusPlanned marks annotations a dry run would have created.
	StatusPlanned RecordStatus = "planned"
)

// RecordResult is the outcome of processing one annotation selected by reconciliation.
type RecordResult struct {
	Annotation annotations.Annotation
	Status     RecordStatus
	Number     int
	URL        string
	Linked     bool
	// Err is set when creation failed, LinkErr when linking a created record failed.
	Err     error
	LinkErr error
}

// Summary aggregates a run.
type Summary struct {
	RunID  string
	DryRun bool

	// Found counts scanned annotations, Skipped those already tracked.
	// Failed counts records that could not be created; link failures go to LinkFailed.
	Found   int
	Created int
	Skipped int
	Failed  int

	// LinkingEnabled is set when a project was configured for the run.
	LinkingEnabled  bool
	ProjectResolved bool
	ProjectID       string
	Linked          int
	LinkFailed      int

	Records []RecordResult
}

func (s *Summary) add(r RecordResult) {
	s.Records = append(s.Records, r)
	switch r.Status {
	case StatusCreated:
		s.Created++
	case StatusFailed:
		s.Failed++
	}
	if r.Linked {
		s.Linked++
	}
	if r.LinkErr != nil {
		s.LinkFailed++
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Render writes a human-readable summary to w.
func (s *Summary) Render(w io.Writer) error {
	var b strings.Builder
	title := "TODO sync summary"
	if s.DryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	fmt.Fprintf(&b, "  found:   %d\n", s.Found)
	if s.DryRun {
		fmt.Fprintf(&b, "  %s\n", successStyle.Render(fmt.Sprintf("would create: %d", len(s.Records))))
	} else {
		fmt.Fprintf(&b, "  %s\n", successStyle.Render(fmt.Sprintf("created: %d", s.Created)))
	}
	fmt.Fprintf(&b, "  skipped: %d (already tracked)\n", s.Skipped)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "  %s\n", failStyle.Render(fmt.Sprintf("failed:  %d", s.Failed)))
	}
	if s.LinkingEnabled && !s.ProjectResolved && !s.DryRun && len(s.Records) > 0 {
		fmt.Fprintf(&b, "  %s\n", warningStyle.Render("project not found: records were not linked"))
	}
	if s.ProjectResolved {
		fmt.Fprintf(&b, "  linked:  %d\n", s.Linked)
		if s.LinkFailed > 0 {
			fmt.Fprintf(&b, "  %s\n", warningStyle.Render(fmt.Sprintf("link failed: %d", s.LinkFailed)))
		}
	}
	for _, r := range s.Records {
		switch {
		case r.Status == StatusPlanned:
			fmt.Fprintf(&b, "  + %s:%d %s\n", r.Annotation.Path, r.Annotation.Line, r.Annotation.Text)
		case r.Err != nil:
			fmt.Fprintf(&b, "  %s %s:%d %s: %v\n", failStyle.Render("x"), r.Annotation.Path, r.Annotation.Line, r.Annotation.Text, r.Err)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
