// Package linker attaches tracked records to a project board. Resolution of the
// board is best-effort: a board that cannot be found disables linking for the run
// instead of failing it.
package linker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrProjectNotFound is returned by a ProjectFinder when the owner has no project with the number.
var ErrProjectNotFound = errors.New("project not found")

// OwnerKind names the kind of entity that owns a project.
type OwnerKind string

const (
	OwnerUser         OwnerKind = "user"
	OwnerOrganization OwnerKind = "organization"
)

// DefaultOwnerKinds is the resolution order: a user account first, then an organization.
var DefaultOwnerKinds = []OwnerKind{OwnerUser, OwnerOrganization}

// ProjectFinder resolves a project by number under one ownership kind.
type ProjectFinder interface {
	FindProject(ctx context.Context, kind OwnerKind, login string, number int) (string, error)
}

// ProjectAttacher adds a content item to a resolved project.
type ProjectAttacher interface {
	AddProjectItem(ctx context.Context, projectID, contentID string) error
}

// Linker resolves a project once per run and attaches records to it.
type Linker struct {
	Finder   ProjectFinder
	Attacher ProjectAttacher
	// Owner is the login owning the project.
	Owner string
	// Number is the project number as shown in its URL.
	Number int
	// Kinds overrides DefaultOwnerKinds.
	Kinds []OwnerKind

	resolved  bool
	projectID string
}

// Resolve finds the project, trying each ownership kind in order and taking the first hit.
// The outcome is remembered: later calls return it without further remote calls.
// It reports false when no kind yields a project; that is logged, never returned as an error.
func (l *Linker) Resolve(ctx context.Context) (string, bool) {
	if l.resolved {
		return l.projectID, l.projectID != ""
	}
	l.resolved = true

	log := slog.With("op", "ResolveProject", "owner", l.Owner, "number", l.Number)
	if l.Finder == nil || strings.TrimSpace(l.Owner) == "" || l.Number <= 0 {
		log.Debug("Project linking disabled")
		return "", false
	}

	kinds := l.Kinds
	if len(kinds) == 0 {
		kinds = DefaultOwnerKinds
	}
	for _, kind := range kinds {
		id, err := l.Finder.FindProject(ctx, kind, l.Owner, l.Number)
		switch {
		case err == nil && id != "":
			log.Info("Resolved project", "kind", kind, "projectID", id)
			l.projectID = id
			return id, true
		case err == nil, errors.Is(err, ErrProjectNotFound):
			log.Debug("No project for owner kind", "kind", kind)
		default:
			log.Warn("Project lookup failed", "kind", kind, "error", err)
		}
	}
	log.Warn("Project not found under any owner kind, records will not be linked")
	return "", false
}

// Attach adds contentID to the resolved project.
func (l *Linker) Attach(ctx context.Context, contentID string) error {
	projectID, ok := l.Resolve(ctx)
	if !ok {
		return fmt.Errorf("no project resolved for %s #%d", l.Owner, l.Number)
	}
	if l.Attacher == nil {
		return fmt.Errorf("project attacher is not configured")
	}
	if contentID == "" {
		return fmt.Errorf("content id cannot be empty")
	}
	if err := l.Attacher.AddProjectItem(ctx, projectID, contentID); err != nil {
		return fmt.Errorf("failed to add item to project: %w", err)
	}
	return nil
}
