// Package pipeline runs one reconciliation: read tracked identities, scan the tree,
// create records for new annotations and link them to a project board.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensdd/osdd-todosync/core/annotations"
	"github.com/opensdd/osdd-todosync/core/reconcile"
	"github.com/opensdd/osdd-todosync/core/tracker"
)

// DefaultDelay is the pause after each processed annotation.
const DefaultDelay = time.Second

// Scanner produces the annotations of a source tree.
type Scanner interface {
	Scan(ctx context.Context) ([]annotations.Annotation, error)
}

// Tracker reads tracked identities and creates records.
type Tracker interface {
	ListTrackedIdentities(ctx context.Context, label string) (annotations.IdentitySet, error)
	CreateIssue(ctx context.Context, input tracker.IssueInput) (*tracker.Issue, error)
}

// ContainerLinker resolves a project board and attaches created records to it.
type ContainerLinker interface {
	Resolve(ctx context.Context) (string, bool)
	Attach(ctx context.Context, contentID string) error
}

// Runner sequences a single run. Remote calls are issued one at a time.
type Runner struct {
	Scanner Scanner
	Tracker Tracker
	// Linker is optional. Nil disables project linking.
	Linker ContainerLinker
	// Label marks records as TODO-derived.
	Label string
	// Delay is slept after each processed annotation.
	Delay time.Duration
	// DryRun stops before any mutating call.
	DryRun bool
	// RunID tags logs and the summary. Generated when empty.
	RunID string

	// Sleep replaces the pacing wait in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run executes the pipeline. An error is returned only for fatal conditions: the tracked
// identities could not be read, the tree could not be scanned, or ctx was cancelled.
// Per-item failures are logged and counted in the returned Summary. When the run is
// cancelled mid-way the partial Summary is returned together with the error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r.Scanner == nil || r.Tracker == nil {
		return nil, fmt.Errorf("runner requires a scanner and a tracker")
	}
	runID := r.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	log := slog.With("run", runID)
	summary := &Summary{RunID: runID, DryRun: r.DryRun}

	existing, err := r.Tracker.ListTrackedIdentities(ctx, r.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to read tracked records: %w", err)
	}
	log.Info("Loaded tracked identities", "count", existing.Len())

	scanned, err := r.Scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source tree: %w", err)
	}

	pending := reconcile.Reconcile(scanned, existing)
	summary.Found = len(scanned)
	summary.Skipped = len(scanned) - len(pending)
	log.Info("Reconciled annotations", "found", summary.Found, "new", len(pending), "skipped", summary.Skipped)

	if len(pending) == 0 {
		return summary, nil
	}
	if r.DryRun {
		for _, a := range pending {
			summary.Records = append(summary.Records, RecordResult{Annotation: a, Status: StatusPlanned})
		}
		return summary, nil
	}

	projectID := ""
	if r.Linker != nil {
		summary.LinkingEnabled = true
		projectID, summary.ProjectResolved = r.Linker.Resolve(ctx)
		summary.ProjectID = projectID
	}

	for i, a := range pending {
		res := r.process(ctx, log, a, summary.ProjectResolved)
		summary.add(res)

		if i == len(pending)-1 {
			break
		}
		if err := r.sleep(ctx); err != nil {
			return summary, fmt.Errorf("run interrupted: %w", err)
		}
	}
	return summary, nil
}

// process creates the record for a and links it. Failures stay inside the result.
func (r *Runner) process(ctx context.Context, log *slog.Logger, a annotations.Annotation, link bool) RecordResult {
	res := RecordResult{Annotation: a, Status: StatusFailed}
	log = log.With("path", a.Path, "line", a.Line, "text", a.Text)

	input, err := tracker.NewIssueInput(a, r.Label)
	if err != nil {
		log.Error("Failed to build record", "error", err)
		res.Err = err
		return res
	}
	issue, err := r.Tracker.CreateIssue(ctx, input)
	if err != nil {
		log.Error("Failed to create record", "error", err)
		res.Err = err
		return res
	}
	res.Status = StatusCreated
	res.Number = issue.Number
	res.URL = issue.URL
	log.Info("Created record", "number", issue.Number, "url", issue.URL)

	if !link {
		return res
	}
	if err := r.Linker.Attach(ctx, issue.NodeID); err != nil {
		log.Error("Failed to link record to project", "number", issue.Number, "error", err)
		res.LinkErr = err
		return res
	}
	res.Linked = true
	return res
}

func (r *Runner) sleep(ctx context.Context) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, r.Delay)
	}
	return sleepContext(ctx, r.Delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
