// Package workflow owns the report workflow: the fetch -> generate -> export
// sequence and the state machine that gates which actions are available at
// each step.
package workflow

import (
	"context"
	"strings"
	"sync"

	"codereport/internal/model"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

// State is the user-visible workflow state.
type State string

const (
	StateIdle             State = "idle"
	StateFetchingCommits  State = "fetching_commits"
	StateCommitsReady     State = "commits_ready"
	StateGeneratingReport State = "generating_report"
	StateReportReady      State = "report_ready"
)

// Fetcher retrieves the commit list for a window.
type Fetcher interface {
	FetchCommits(ctx context.Context, duration, username string) ([]model.CommitRecord, error)
}

// Generator elaborates a commit list into a report.
type Generator interface {
	GenerateReport(ctx context.Context, commits []model.CommitRecord) (*model.Report, error)
}

// Identity supplies the cached username for outgoing fetches.
type Identity interface {
	Username() (string, bool)
}

// Exporter renders a report to a document and persists it, returning the
// path of the written file.
type Exporter interface {
	Export(report *model.Report) (string, error)
}

// Workflow sequences Fetcher -> Generator -> Exporter and enforces the
// transition guards. Submit and Generate block until the backend responds;
// callers that need a responsive surface run them on their own goroutine.
// Every submission bumps a generation counter, and a completion that does
// not match the current generation is discarded, so a late response from a
// superseded request can never clobber newer state.
type Workflow struct {
	fetcher   Fetcher
	generator Generator
	identity  Identity
	log       logze.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	duration string
	commits  []model.CommitRecord
	report   *model.Report
}

// New creates a workflow in the Idle state.
func New(fetcher Fetcher, generator Generator, identity Identity) *Workflow {
	return &Workflow{
		fetcher:   fetcher,
		generator: generator,
		identity:  identity,
		log:       logze.With("module", "workflow"),
		state:     StateIdle,
	}
}

// Submit starts a new fetch cycle for the given duration. It is allowed from
// any state and supersedes whatever was in flight. On success the fetched
// commits fully replace the previous list and any generated report is
// cleared; on failure the previous commits stay visible.
func (w *Workflow) Submit(ctx context.Context, duration string) error {
	w.mu.Lock()

	if strings.TrimSpace(duration) == "" {
		w.mu.Unlock()
		return model.ErrValidationFailed
	}
	username, ok := w.identity.Username()
	if !ok {
		w.mu.Unlock()
		return model.ErrMissingUsername
	}

	w.gen++
	myGen := w.gen
	w.duration = duration
	w.state = StateFetchingCommits
	w.mu.Unlock()

	timer := abstract.StartTimer()
	commits, err := w.fetcher.FetchCommits(ctx, duration, username)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gen != myGen {
		w.log.Debug("discarding superseded fetch result", "generation", myGen, "current", w.gen)
		return nil
	}

	if err != nil {
		w.state = w.restingState()
		w.log.Error("fetch failed", "error", err, "duration", duration)
		return err
	}

	w.commits = commits
	w.report = nil // a new commit set always voids a stale report
	w.state = StateCommitsReady
	w.log.Info("fetched commits", "count", len(commits), "duration", duration,
		"elapsed_time", timer.ElapsedTime().String())

	return nil
}

// Generate elaborates the current commit list into a report. It is only
// available once a fetch has completed and there is at least one commit.
func (w *Workflow) Generate(ctx context.Context) error {
	w.mu.Lock()

	if len(w.commits) == 0 {
		w.mu.Unlock()
		return model.ErrNoCommits
	}
	if w.state != StateCommitsReady {
		w.mu.Unlock()
		return errm.Errorf("cannot generate a report in state %q", w.state)
	}

	myGen := w.gen
	commits := make([]model.CommitRecord, len(w.commits))
	copy(commits, w.commits)
	w.state = StateGeneratingReport
	w.mu.Unlock()

	timer := abstract.StartTimer()
	report, err := w.generator.GenerateReport(ctx, commits)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gen != myGen {
		w.log.Debug("discarding superseded generation result", "generation", myGen, "current", w.gen)
		return nil
	}

	if err != nil {
		w.state = w.restingState()
		w.log.Error("report generation failed", "error", err, "commits", len(commits))
		return err
	}

	w.report = report
	w.state = StateReportReady
	w.log.Info("generated report", "commits", len(report.ElaboratedCommits),
		"has_summary", report.Summary != "", "elapsed_time", timer.ElapsedTime().String())

	return nil
}

// Export renders the current report through the given exporter. It never
// changes the workflow state: export is best-effort and repeatable, and a
// renderer failure does not invalidate the in-memory report.
func (w *Workflow) Export(exporter Exporter) (string, error) {
	w.mu.Lock()
	if w.state != StateReportReady || w.report == nil || len(w.report.ElaboratedCommits) == 0 {
		w.mu.Unlock()
		return "", model.ErrNothingToExport
	}
	report := w.report
	w.mu.Unlock()

	path, err := exporter.Export(report)
	if err != nil {
		w.log.Error("export failed", "error", err)
		return "", errm.Wrap(model.ErrExportFailed, err.Error())
	}

	w.log.Info("exported report", "path", path)
	return path, nil
}

// Snapshot is a copy of the state the UI renders from.
type Snapshot struct {
	State    State
	Duration string
	Commits  []model.CommitRecord
	Report   *model.Report
}

// Snapshot returns a consistent copy of the current workflow state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		State:    w.state,
		Duration: w.duration,
		Commits:  make([]model.CommitRecord, len(w.commits)),
	}
	copy(s.Commits, w.commits)
	if w.report != nil {
		report := *w.report
		s.Report = &report
	}
	return s
}

// restingState is the state implied by the data currently held, used to
// revert a failed in-flight transition to its origin. Callers must hold the
// mutex.
func (w *Workflow) restingState() State {
	switch {
	case w.report != nil && len(w.report.ElaboratedCommits) > 0:
		return StateReportReady
	case len(w.commits) > 0:
		return StateCommitsReady
	default:
		return StateIdle
	}
}
