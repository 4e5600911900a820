package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/opensdd/osdd-api/clients/go/osdd"
	"github.com/opensdd/osdd-todosync/core/pipeline"
	"google.golang.org/protobuf/encoding/protojson"
	"gopkg.in/yaml.v3"
)

// RunReport is the persisted form of a pipeline summary.
type RunReport struct {
	RunID       string         `yaml:"run_id"`
	GeneratedAt time.Time      `yaml:"generated_at"`
	DryRun      bool           `yaml:"dry_run"`
	Repository  map[string]any `yaml:"repository,omitempty"`
	Found       int            `yaml:"found"`
	Created     int            `yaml:"created"`
	Skipped     int            `yaml:"skipped"`
	Failed      int            `yaml:"failed"`
	Project     *ProjectReport `yaml:"project,omitempty"`
	Records     []RecordReport `yaml:"records,omitempty"`
}

type ProjectReport struct {
	Resolved   bool   `yaml:"resolved"`
	ID         string `yaml:"id,omitempty"`
	Linked     int    `yaml:"linked"`
	LinkFailed int    `yaml:"link_failed"`
}

type RecordReport struct {
	Path      string `yaml:"path"`
	Line      int    `yaml:"line"`
	Text      string `yaml:"text"`
	Identity  string `yaml:"identity"`
	Status    string `yaml:"status"`
	Number    int    `yaml:"number,omitempty"`
	URL       string `yaml:"url,omitempty"`
	Linked    bool   `yaml:"linked,omitempty"`
	Error     string `yaml:"error,omitempty"`
	LinkError string `yaml:"link_error,omitempty"`
}

// NewRunReport converts summary into a report. repo may be nil.
func NewRunReport(summary *pipeline.Summary, repo *osdd.GitRepository, now time.Time) (*RunReport, error) {
	if summary == nil {
		return nil, fmt.Errorf("summary cannot be nil")
	}
	report := &RunReport{
		RunID:       summary.RunID,
		GeneratedAt: now.UTC(),
		DryRun:      summary.DryRun,
		Found:       summary.Found,
		Created:     summary.Created,
		Skipped:     summary.Skipped,
		Failed:      summary.Failed,
	}
	if repo != nil {
		// protojson output is valid YAML, so the descriptor keeps its canonical field names.
		raw, err := protojson.Marshal(repo)
		if err != nil {
			return nil, fmt.Errorf("failed to encode repository: %w", err)
		}
		if err := yaml.Unmarshal(raw, &report.Repository); err != nil {
			return nil, fmt.Errorf("failed to decode repository: %w", err)
		}
	}
	if summary.LinkingEnabled {
		report.Project = &ProjectReport{
			Resolved:   summary.ProjectResolved,
			ID:         summary.ProjectID,
			Linked:     summary.Linked,
			LinkFailed: summary.LinkFailed,
		}
	}
	for _, r := range summary.Records {
		rec := RecordReport{
			Path:     r.Annotation.Path,
			Line:     r.Annotation.Line,
			Text:     r.Annotation.Text,
			Identity: r.Annotation.Identity(),
			Status:   string(r.Status),
			Number:   r.Number,
			URL:      r.URL,
			Linked:   r.Linked,
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		if r.LinkErr != nil {
			rec.LinkError = r.LinkErr.Error()
		}
		report.Records = append(report.Records, rec)
	}
	return report, nil
}

// BuildRunReport renders summary as a single-file MaterializedResult at the relative path name.
func BuildRunReport(summary *pipeline.Summary, repo *osdd.GitRepository, name string, now time.Time) (*osdd.MaterializedResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("report path cannot be empty")
	}
	report, err := NewRunReport(summary, repo, now)
	if err != nil {
		return nil, err
	}
	content, err := yaml.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run report: %w", err)
	}
	return osdd.MaterializedResult_builder{
		Entries: []*osdd.MaterializedResult_Entry{
			osdd.MaterializedResult_Entry_builder{
				File: osdd.FullFileContent_builder{Path: name, Content: string(content)}.Build(),
			}.Build(),
		},
	}.Build(), nil
}

// WriteRunReport writes the YAML report for summary to path, creating parent directories.
func WriteRunReport(ctx context.Context, path string, summary *pipeline.Summary, repo *osdd.GitRepository) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("report path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve report path %s: %w", path, err)
	}
	result, err := BuildRunReport(summary, repo, filepath.Base(abs), time.Now())
	if err != nil {
		return err
	}
	if err := PersistMaterializedResult(ctx, filepath.Dir(abs), result); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	slog.Debug("Wrote run report", "path", abs)
	return nil
}
