package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/opensdd/osdd-todosync/core/annotations"
	"github.com/opensdd/osdd-todosync/core/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticScanner struct {
	anns []annotations.Annotation
	err  error
}

func (s *staticScanner) Scan(context.Context) ([]annotations.Annotation, error) {
	return s.anns, s.err
}

// memoryTracker keeps created issues in memory so consecutive runs see each other's writes.
type memoryTracker struct {
	issues  []tracker.Issue
	listErr error
	// failOn makes CreateIssue fail for titles containing the key.
	failOn  map[string]bool
	creates int
	labels  []string
}

func (m *memoryTracker) ListTrackedIdentities(_ context.Context, label string) (annotations.IdentitySet, error) {
	m.labels = append(m.labels, label)
	if m.listErr != nil {
		return nil, m.listErr
	}
	set := annotations.NewIdentitySet()
	for _, issue := range m.issues {
		if id, ok := annotations.ExtractIdentity(issue.Body); ok {
			set.Add(id)
		}
	}
	return set, nil
}

func (m *memoryTracker) CreateIssue(_ context.Context, input tracker.IssueInput) (*tracker.Issue, error) {
	m.creates++
	for key := range m.failOn {
		if strings.Contains(input.Title, key) {
			return nil, fmt.Errorf("github API returned status 502: bad gateway")
		}
	}
	n := len(m.issues) + 1
	issue := tracker.Issue{
		Number: n,
		Title:  input.Title,
		Body:   input.Body,
		NodeID: fmt.Sprintf("I_%d", n),
		URL:    fmt.Sprintf("https://github.com/octo/hello/issues/%d", n),
	}
	m.issues = append(m.issues, issue)
	return &issue, nil
}

type fakeLinker struct {
	projectID string
	resolves  int
	attached  []string
	failFor   map[string]bool
}

func (f *fakeLinker) Resolve(context.Context) (string, bool) {
	f.resolves++
	return f.projectID, f.projectID != ""
}

func (f *fakeLinker) Attach(_ context.Context, contentID string) error {
	if f.failFor[contentID] {
		return errors.New("forbidden")
	}
	f.attached = append(f.attached, contentID)
	return nil
}

func ann(path, text string, line int) annotations.Annotation {
	return annotations.Annotation{Path: path, Text: text, Line: line}
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestRunner_CreatesOnlyUntracked(t *testing.T) {
	t.Parallel()
	tr := &memoryTracker{issues: []tracker.Issue{{Number: 1, Body: "```\nfingerprint=a.txt|fix auth\n```"}}}
	r := &Runner{
		Scanner: &staticScanner{anns: []annotations.Annotation{ann("a.txt", "fix auth", 3), ann("b.txt", "fix auth", 1)}},
		Tracker: tr,
		Label:   "todo",
		Sleep:   noSleep,
	}

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Found)
	assert.Equal(t, 1, s.Created)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 0, s.Failed)
	assert.NotEmpty(t, s.RunID)

	require.Len(t, tr.issues, 2)
	assert.Contains(t, tr.issues[1].Body, "fingerprint=b.txt|fix auth")
	assert.Equal(t, "TODO: fix auth", tr.issues[1].Title)
	assert.Equal(t, []string{"todo"}, tr.labels)
}

func TestRunner_Idempotent(t *testing.T) {
	t.Parallel()
	tr := &memoryTracker{}
	scanner := &staticScanner{anns: []annotations.Annotation{
		ann("a.go", "one", 1), ann("a.go", "two", 2), ann("b/c.py", "three", 7),
	}}
	r := &Runner{Scanner: scanner, Tracker: tr, Label: "todo", Sleep: noSleep}

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)

	second, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, 3, tr.creates)
}

func TestRunner_RepeatedTextInOneFileCreatesOnce(t *testing.T) {
	t.Parallel()
	tr := &memoryTracker{}
	scanned := annotations.ExtractAnnotations("a.go", "// TODO: fix auth\nx\n// TODO: fix auth\n")
	require.Len(t, scanned, 2)
	r := &Runner{Scanner: &staticScanner{anns: scanned}, Tracker: tr, Label: "todo", Sleep: noSleep}

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Found)
	assert.Equal(t, 1, s.Created)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, tr.creates)

	again, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 1, tr.creates)
}

func TestRunner_FailureIsolation(t *testing.T) {
	t.Parallel()
	tr := &memoryTracker{failOn: map[string]bool{"second": true}}
	var sleeps int
	r := &Runner{
		Scanner: &staticScanner{anns: []annotations.Annotation{
			ann("a.go", "first", 1), ann("a.go", "second", 2), ann("a.go", "third", 3), ann("a.go", "fourth", 4),
		}},
		Tracker: tr,
		Delay:   time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			assert.Equal(t, time.Second, d)
			sleeps++
			return nil
		},
	}

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, tr.creates)
	assert.Equal(t, 3, s.Created)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 3, sleeps)

	require.Len(t, s.Records, 4)
	assert.Equal(t, StatusFailed, s.Records[1].Status)
	assert.Equal(t, "second", s.Records[1].Annotation.Text)
	require.Error(t, s.Records[1].Err)
	assert.Equal(t, StatusCreated, s.Records[3].Status)
}

func TestRunner_FatalReadAbortsBeforeCreation(t *testing.T) {
	t.Parallel()
	tr := &memoryTracker{listErr: errors.New("connection refused")}
	scanner := &staticScanner{anns: []annotations.Annotation{ann("a.go", "x", 1)}}
	lk := &fakeLinker{projectID: "PVT_1"}
	r := &Runner{Scanner: scanner, Tracker: tr, Linker: lk, Sleep: noSleep}

	s, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "failed to read tracked records")
	assert.Equal(t, 0, tr.creates)
	assert.Equal(t, 0, lk.resolves)
}

func TestRunner_ScanErrorIsFatal(t *testing.T) {
	t.Parallel()
	tr := &memoryTracker{}
	r := &Runner{Scanner: &staticScanner{err: errors.New("no such dir")}, Tracker: tr}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan source tree")
	assert.Equal(t, 0, tr.creates)
}

func TestRunner_NothingNew(t *testing.T) {
	t.Parallel()
	lk := &fakeLinker{projectID: "PVT_1"}
	r := &Runner{Scanner: &staticScanner{}, Tracker: &memoryTracker{}, Linker: lk}

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Found)
	assert.Equal(t, 0, s.Created)
	assert.Equal(t, 0, lk.resolves, "project must not be resolved when nothing is created")
}

func TestRunner_Linking(t *testing.T) {
	t.Parallel()
	tr := &memoryTracker{}
	lk := &fakeLinker{projectID: "PVT_1", failFor: map[string]bool{"I_2": true}}
	r := &Runner{
		Scanner: &staticScanner{anns: []annotations.Annotation{ann("a.go", "one", 1), ann("a.go", "two", 2), ann("a.go", "three", 3)}},
		Tracker: tr,
		Linker:  lk,
		Sleep:   noSleep,
	}

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lk.resolves)
	assert.True(t, s.ProjectResolved)
	assert.Equal(t, "PVT_1", s.ProjectID)
	assert.Equal(t, []string{"I_1", "I_3"}, lk.attached)
	assert.Equal(t, 3, s.Created, "link failures do not retract created records")
	assert.Equal(t, 2, s.Linked)
	assert.Equal(t, 1, s.LinkFailed)
	assert.Equal(t, 0, s.Failed)
}

func TestRunner_ProjectNotResolved(t *testing.T) {
	t.Parallel()
	lk := &fakeLinker{}
	r := &Runner{
		Scanner: &staticScanner{anns: []annotations.Annotation{ann("a.go", "one", 1)}},
		Tracker: &memoryTracker{},
		Linker:  lk,
		Sleep:   noSleep,
	}

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Created)
	assert.False(t, s.ProjectResolved)
	assert.Empty(t, lk.attached)
	assert.Equal(t, 0, s.Linked)
}

func TestRunner_DryRun(t *testing.T) {
	t.Parallel()
	tr := &memoryTracker{issues: []tracker.Issue{{Body: "fingerprint=a.go|one"}}}
	lk := &fakeLinker{projectID: "PVT_1"}
	r := &Runner{
		Scanner: &staticScanner{anns: []annotations.Annotation{ann("a.go", "one", 1), ann("a.go", "two", 2)}},
		Tracker: tr,
		Linker:  lk,
		DryRun:  true,
	}

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, s.DryRun)
	assert.Equal(t, 0, tr.creates)
	assert.Equal(t, 0, lk.resolves)
	assert.Equal(t, 1, s.Skipped)
	require.Len(t, s.Records, 1)
	assert.Equal(t, StatusPlanned, s.Records[0].Status)
	assert.Equal(t, "two", s.Records[0].Annotation.Text)
}

func TestRunner_CancelledDuringPacing(t *testing.T) {
	t.Parallel()
	tr := &memoryTracker{}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		Scanner: &staticScanner{anns: []annotations.Annotation{ann("a.go", "one", 1), ann("a.go", "two", 2)}},
		Tracker: tr,
		Delay:   time.Hour,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return sleepContext(ctx, d)
		},
	}

	s, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, s)
	assert.Equal(t, 1, s.Created)
	assert.Equal(t, 1, tr.creates)
}

func TestRunner_RequiresCollaborators(t *testing.T) {
	t.Parallel()
	_, err := (&Runner{}).Run(context.Background())
	require.Error(t, err)
}

func TestSleepContext(t *testing.T) {
	t.Parallel()
	require.NoError(t, sleepContext(context.Background(), 0))
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
