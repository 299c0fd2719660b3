package workflow

import (
	"context"
	"sync"
	"testing"

	"codereport/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	username string
}

func (f fakeIdentity) Username() (string, bool) {
	return f.username, f.username != ""
}

type fakeFetcher struct {
	commits []model.CommitRecord
	err     error
	calls   int
}

func (f *fakeFetcher) FetchCommits(ctx context.Context, duration, username string) ([]model.CommitRecord, error) {
	f.calls++
	return f.commits, f.err
}

type fakeGenerator struct {
	report *model.Report
	err    error
	calls  int
	got    []model.CommitRecord
}

func (f *fakeGenerator) GenerateReport(ctx context.Context, commits []model.CommitRecord) (*model.Report, error) {
	f.calls++
	f.got = commits
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type fakeExporter struct {
	path string
	err  error
}

func (f fakeExporter) Export(report *model.Report) (string, error) {
	return f.path, f.err
}

func TestFullCycle(t *testing.T) {
	// Scenario A: fetch one commit, elaborate it, see the summary.
	fetcher := &fakeFetcher{commits: []model.CommitRecord{
		{Message: "fix bug", Repo: "r1", Date: "2024-01-01", Additions: 10, Deletions: 2},
	}}
	generator := &fakeGenerator{report: &model.Report{
		ElaboratedCommits: []model.ElaboratedCommit{
			{Original: "fix bug", Elaboration: "Fixed a bug causing...", Repo: "r1", Date: "2024-01-01", Additions: 10, Deletions: 2},
		},
		Summary: "1 commit this week",
	}}
	wf := New(fetcher, generator, fakeIdentity{username: "alice"})

	require.NoError(t, wf.Submit(context.Background(), "7"))
	snap := wf.Snapshot()
	assert.Equal(t, StateCommitsReady, snap.State)
	require.Len(t, snap.Commits, 1)
	assert.Equal(t, "fix bug", snap.Commits[0].Message)
	assert.Nil(t, snap.Report)

	require.NoError(t, wf.Generate(context.Background()))
	snap = wf.Snapshot()
	assert.Equal(t, StateReportReady, snap.State)
	require.NotNil(t, snap.Report)
	assert.Equal(t, "Fixed a bug causing...", snap.Report.ElaboratedCommits[0].Elaboration)
	assert.Equal(t, "1 commit this week", snap.Report.Summary)

	path, err := wf.Export(fakeExporter{path: "/tmp/Code_Report_2024-01-02.txt"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/Code_Report_2024-01-02.txt", path)
	assert.Equal(t, StateReportReady, wf.Snapshot().State)
}

func TestSubmitEmptyDuration(t *testing.T) {
	// Scenario B: empty duration never reaches the network.
	fetcher := &fakeFetcher{}
	wf := New(fetcher, &fakeGenerator{}, fakeIdentity{username: "alice"})

	err := wf.Submit(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrValidationFailed)
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, StateIdle, wf.Snapshot().State)
}

func TestSubmitMissingUsername(t *testing.T) {
	fetcher := &fakeFetcher{}
	wf := New(fetcher, &fakeGenerator{}, fakeIdentity{})

	err := wf.Submit(context.Background(), "7")
	assert.ErrorIs(t, err, model.ErrMissingUsername)
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, StateIdle, wf.Snapshot().State)
}

func TestFetchFailureKeepsPreviousCommits(t *testing.T) {
	fetcher := &fakeFetcher{commits: []model.CommitRecord{{Message: "one"}, {Message: "two"}}}
	wf := New(fetcher, &fakeGenerator{}, fakeIdentity{username: "alice"})

	require.NoError(t, wf.Submit(context.Background(), "7"))
	require.Len(t, wf.Snapshot().Commits, 2)

	fetcher.commits = nil
	fetcher.err = model.ErrFetchFailed
	err := wf.Submit(context.Background(), "14")
	assert.ErrorIs(t, err, model.ErrFetchFailed)

	snap := wf.Snapshot()
	assert.Equal(t, StateCommitsReady, snap.State, "failed fetch reverts to the state before the attempt")
	assert.Len(t, snap.Commits, 2, "failed fetch must not clear the previous list")
}

func TestFetchFailureKeepsExistingReport(t *testing.T) {
	fetcher := &fakeFetcher{commits: []model.CommitRecord{{Message: "fix"}}}
	generator := &fakeGenerator{report: &model.Report{
		ElaboratedCommits: []model.ElaboratedCommit{{Original: "fix"}},
	}}
	wf := New(fetcher, generator, fakeIdentity{username: "alice"})

	require.NoError(t, wf.Submit(context.Background(), "7"))
	require.NoError(t, wf.Generate(context.Background()))

	fetcher.err = model.ErrFetchFailed
	err := wf.Submit(context.Background(), "14")
	assert.ErrorIs(t, err, model.ErrFetchFailed)

	snap := wf.Snapshot()
	assert.Equal(t, StateReportReady, snap.State, "failed fetch reverts to the state it departed from")
	require.NotNil(t, snap.Report)

	path, exportErr := wf.Export(fakeExporter{path: "out.txt"})
	require.NoError(t, exportErr)
	assert.Equal(t, "out.txt", path)
}

func TestFetchFailureFromIdle(t *testing.T) {
	fetcher := &fakeFetcher{err: model.ErrFetchFailed}
	wf := New(fetcher, &fakeGenerator{}, fakeIdentity{username: "alice"})

	err := wf.Submit(context.Background(), "7")
	assert.ErrorIs(t, err, model.ErrFetchFailed)
	assert.Equal(t, StateIdle, wf.Snapshot().State)
}

func TestSuccessfulFetchClearsReport(t *testing.T) {
	fetcher := &fakeFetcher{commits: []model.CommitRecord{{Message: "fix"}}}
	generator := &fakeGenerator{report: &model.Report{
		ElaboratedCommits: []model.ElaboratedCommit{{Original: "fix"}},
	}}
	wf := New(fetcher, generator, fakeIdentity{username: "alice"})

	require.NoError(t, wf.Submit(context.Background(), "7"))
	require.NoError(t, wf.Generate(context.Background()))
	require.NotNil(t, wf.Snapshot().Report)

	require.NoError(t, wf.Submit(context.Background(), "14"))
	snap := wf.Snapshot()
	assert.Nil(t, snap.Report, "a new commit set always voids a stale report")
	assert.Equal(t, StateCommitsReady, snap.State)

	_, err := wf.Export(fakeExporter{})
	assert.ErrorIs(t, err, model.ErrNothingToExport)
}

func TestGenerateWithoutCommits(t *testing.T) {
	generator := &fakeGenerator{}
	wf := New(&fakeFetcher{}, generator, fakeIdentity{username: "alice"})

	err := wf.Generate(context.Background())
	assert.ErrorIs(t, err, model.ErrNoCommits)
	assert.Equal(t, 0, generator.calls)
	assert.Equal(t, StateIdle, wf.Snapshot().State)
}

func TestGenerationFailureRevertsToCommitsReady(t *testing.T) {
	// Scenario C: commits stay visible, report area stays empty.
	fetcher := &fakeFetcher{commits: []model.CommitRecord{
		{Message: "a"}, {Message: "b"}, {Message: "c"},
	}}
	generator := &fakeGenerator{err: model.ErrGenerationFailed}
	wf := New(fetcher, generator, fakeIdentity{username: "alice"})

	require.NoError(t, wf.Submit(context.Background(), "7"))
	err := wf.Generate(context.Background())
	assert.ErrorIs(t, err, model.ErrGenerationFailed)

	snap := wf.Snapshot()
	assert.Equal(t, StateCommitsReady, snap.State)
	assert.Len(t, snap.Commits, 3)
	assert.Nil(t, snap.Report)
}

func TestExportDoesNotChangeStateOnFailure(t *testing.T) {
	fetcher := &fakeFetcher{commits: []model.CommitRecord{{Message: "fix"}}}
	generator := &fakeGenerator{report: &model.Report{
		ElaboratedCommits: []model.ElaboratedCommit{{Original: "fix"}},
	}}
	wf := New(fetcher, generator, fakeIdentity{username: "alice"})

	require.NoError(t, wf.Submit(context.Background(), "7"))
	require.NoError(t, wf.Generate(context.Background()))

	_, err := wf.Export(fakeExporter{err: assert.AnError})
	assert.ErrorIs(t, err, model.ErrExportFailed)
	assert.Equal(t, StateReportReady, wf.Snapshot().State, "export is best-effort")

	path, err := wf.Export(fakeExporter{path: "out.txt"})
	require.NoError(t, err)
	assert.Equal(t, "out.txt", path)
}

// blockingFetcher parks every call until the test releases it, so overlapping
// submissions can be interleaved deterministically.
type blockingFetcher struct {
	mu      sync.Mutex
	release []chan []model.CommitRecord
	started chan int
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{started: make(chan int, 8)}
}

func (f *blockingFetcher) FetchCommits(ctx context.Context, duration, username string) ([]model.CommitRecord, error) {
	ch := make(chan []model.CommitRecord)
	f.mu.Lock()
	idx := len(f.release)
	f.release = append(f.release, ch)
	f.mu.Unlock()
	f.started <- idx
	return <-ch, nil
}

func (f *blockingFetcher) releaseCall(idx int, commits []model.CommitRecord) {
	f.mu.Lock()
	ch := f.release[idx]
	f.mu.Unlock()
	ch <- commits
}

func TestStaleFetchResultDiscarded(t *testing.T) {
	fetcher := newBlockingFetcher()
	wf := New(fetcher, &fakeGenerator{}, fakeIdentity{username: "alice"})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, wf.Submit(context.Background(), "7"))
	}()
	first := <-fetcher.started

	go func() {
		defer wg.Done()
		assert.NoError(t, wf.Submit(context.Background(), "14"))
	}()
	second := <-fetcher.started

	// The newer submission completes first, then the superseded one trickles
	// in late and must be dropped.
	fetcher.releaseCall(second, []model.CommitRecord{{Message: "fresh", Repo: "r2"}})
	fetcher.releaseCall(first, []model.CommitRecord{{Message: "stale", Repo: "r1"}})
	wg.Wait()

	snap := wf.Snapshot()
	assert.Equal(t, StateCommitsReady, snap.State)
	assert.Equal(t, "14", snap.Duration)
	require.Len(t, snap.Commits, 1)
	assert.Equal(t, "fresh", snap.Commits[0].Message)
}

func TestGeneratorReceivesFetchedCommits(t *testing.T) {
	commits := []model.CommitRecord{{Message: "x"}, {Message: "y"}}
	fetcher := &fakeFetcher{commits: commits}
	generator := &fakeGenerator{report: &model.Report{
		ElaboratedCommits: []model.ElaboratedCommit{{Original: "x"}, {Original: "y"}},
	}}
	wf := New(fetcher, generator, fakeIdentity{username: "alice"})

	require.NoError(t, wf.Submit(context.Background(), "7"))
	require.NoError(t, wf.Generate(context.Background()))
	assert.Equal(t, commits, generator.got)
}
