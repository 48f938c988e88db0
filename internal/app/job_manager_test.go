package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// mockJobRepo implements domain.JobRepository for testing
type mockJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*domain.Job)}
}

func (m *mockJobRepo) Create(job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockJobRepo) Update(job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockJobRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *mockJobRepo) FindByID(id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		copied := *j
		return &copied, nil
	}
	return nil, nil
}

func (m *mockJobRepo) FindByStatus(status domain.JobStatus) ([]*domain.Job, error) {
	return nil, nil
}

func (m *mockJobRepo) FindAll(filters map[string]interface{}) ([]*domain.Job, error) {
	return nil, nil
}

func (m *mockJobRepo) Count() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.jobs)), nil
}

func (m *mockJobRepo) CountByStatus(status domain.JobStatus) (int64, error) {
	return 0, nil
}

func (m *mockJobRepo) GetStats() (*domain.JobStats, error) {
	return &domain.JobStats{}, nil
}

// fakeCatalog implements domain.StreamCatalog
type fakeCatalog struct {
	catalog *domain.Catalog
	err     error
}

func (f *fakeCatalog) Resolve(ctx context.Context, url string) (*domain.Catalog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog, nil
}

// fakeExecutor implements domain.TransferExecutor
type fakeExecutor struct {
	err     error
	samples []domain.RawSample
	block   bool // wait for ctx cancellation instead of returning
}

func (f *fakeExecutor) Execute(ctx context.Context, sel domain.SelectionExpression, out domain.OutputTemplate, samples chan<- domain.RawSample) (string, error) {
	for _, s := range f.samples {
		samples <- s
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	ext := sel.Container
	if ext == "" {
		ext = "mp4"
	}
	return filepath.Join(out.Dir, out.Title+"."+ext), nil
}

// fakePost implements domain.PostProcessor
type fakePost struct {
	mu     sync.Mutex
	called bool
	err    error
}

func (f *fakePost) Process(ctx context.Context, path string, target domain.AudioExtraction) (string, error) {
	f.mu.Lock()
	f.called = true
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return path[:len(path)-len(filepath.Ext(path))] + "." + target.Codec, nil
}

func (f *fakePost) wasCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.called
}

func combinedCatalog(title string) *domain.Catalog {
	return &domain.Catalog{
		Title: title,
		Streams: []domain.StreamDescriptor{
			{ID: "hd", Container: "mp4", Height: 1080, HasVideo: true, HasAudio: true, Bitrate: 4000, MediaURL: "https://cdn.example.com/hd"},
			{ID: "audio", Container: "m4a", HasAudio: true, Bitrate: 128, MediaURL: "https://cdn.example.com/a"},
		},
	}
}

func testManager(t *testing.T, catalog domain.StreamCatalog, executor domain.TransferExecutor, post domain.PostProcessor) (*JobManager, *mockJobRepo) {
	t.Helper()
	repo := newMockJobRepo()
	config := &domain.EngineConfig{
		MaxRetries:   5,
		AudioCodec:   "mp3",
		AudioBitrate: "192k",
	}
	return NewJobManager(repo, catalog, executor, post, nil, config, zap.NewNop()), repo
}

// collectEvents drains the event channel until it closes
func collectEvents(t *testing.T, events <-chan domain.JobEvent) []domain.JobEvent {
	t.Helper()
	var got []domain.JobEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func terminalEvent(t *testing.T, events []domain.JobEvent) domain.JobEvent {
	t.Helper()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.NotEqual(t, domain.EventProgress, last.Type)
	// Exactly one terminal event, and nothing after it.
	for _, ev := range events[:len(events)-1] {
		assert.Equal(t, domain.EventProgress, ev.Type)
	}
	return last
}

func TestJobManager_Success(t *testing.T) {
	dir := t.TempDir()
	executor := &fakeExecutor{samples: []domain.RawSample{
		{Bytes: 500, Total: 1000, Elapsed: time.Second},
		{Finished: true},
	}}
	mgr, repo := testManager(t, &fakeCatalog{catalog: combinedCatalog("Example Title")}, executor, &fakePost{})

	job, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: dir,
		Container:      domain.ContainerMP4,
		Quality:        domain.QualityBest,
	})
	require.NoError(t, err)

	got := collectEvents(t, events)
	last := terminalEvent(t, got)
	assert.Equal(t, domain.EventSucceeded, last.Type)
	assert.Equal(t, filepath.Join(dir, "Example Title.mp4"), last.Path)

	stored, err := repo.FindByID(job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusSucceeded, stored.Status)
	assert.Equal(t, "Example Title", stored.Title)
	assert.Equal(t, float64(100), stored.Percent)
}

func TestJobManager_ResolutionFailure(t *testing.T) {
	mgr, repo := testManager(t, &fakeCatalog{err: errors.New("extractor exited with status 1")}, &fakeExecutor{}, &fakePost{})

	job, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		Container:      domain.ContainerMP4,
		Quality:        domain.QualityBest,
	})
	require.NoError(t, err)

	last := terminalEvent(t, collectEvents(t, events))
	assert.Equal(t, domain.EventFailed, last.Type)
	require.NotNil(t, last.Failure)
	assert.Equal(t, domain.FailureResolution, last.Failure.Kind)
	assert.Equal(t, "extractor exited with status 1", last.Failure.Message)

	stored, _ := repo.FindByID(job.ID)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Empty(t, stored.FilePath)
}

func TestJobManager_NoStreamFailure(t *testing.T) {
	mgr, _ := testManager(t, &fakeCatalog{catalog: &domain.Catalog{Title: "t"}}, &fakeExecutor{}, &fakePost{})

	_, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		Container:      domain.ContainerMP4,
		Quality:        domain.QualityBest,
	})
	require.NoError(t, err)

	last := terminalEvent(t, collectEvents(t, events))
	require.NotNil(t, last.Failure)
	assert.Equal(t, domain.FailureNoStream, last.Failure.Kind)
}

func TestJobManager_TransferFailure(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("status 503 after 5 attempts")}
	mgr, _ := testManager(t, &fakeCatalog{catalog: combinedCatalog("t")}, executor, &fakePost{})

	_, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		Container:      domain.ContainerMP4,
		Quality:        domain.QualityBest,
	})
	require.NoError(t, err)

	last := terminalEvent(t, collectEvents(t, events))
	require.NotNil(t, last.Failure)
	assert.Equal(t, domain.FailureTransfer, last.Failure.Kind)
}

func TestJobManager_AudioOnlyExtraction(t *testing.T) {
	dir := t.TempDir()
	post := &fakePost{}
	mgr, repo := testManager(t, &fakeCatalog{catalog: combinedCatalog("Song")}, &fakeExecutor{}, post)

	job, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: dir,
		AudioOnly:      true,
	})
	require.NoError(t, err)

	last := terminalEvent(t, collectEvents(t, events))
	assert.Equal(t, domain.EventSucceeded, last.Type)
	assert.Equal(t, filepath.Join(dir, "Song.mp3"), last.Path)
	assert.True(t, post.wasCalled())

	stored, _ := repo.FindByID(job.ID)
	assert.Equal(t, domain.StatusSucceeded, stored.Status)
	assert.Equal(t, filepath.Join(dir, "Song.mp3"), stored.FilePath)
}

func TestJobManager_PostProcessingFailure(t *testing.T) {
	post := &fakePost{err: errors.New("ffmpeg exited with status 1")}
	mgr, _ := testManager(t, &fakeCatalog{catalog: combinedCatalog("Song")}, &fakeExecutor{}, post)

	_, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		AudioOnly:      true,
	})
	require.NoError(t, err)

	last := terminalEvent(t, collectEvents(t, events))
	require.NotNil(t, last.Failure)
	assert.Equal(t, domain.FailurePostProcessing, last.Failure.Kind)
}

func TestJobManager_Cancel(t *testing.T) {
	post := &fakePost{}
	executor := &fakeExecutor{block: true}
	mgr, repo := testManager(t, &fakeCatalog{catalog: combinedCatalog("t")}, executor, post)

	job, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		AudioOnly:      true,
	})
	require.NoError(t, err)

	// Give the job goroutine a moment to reach the transfer stage.
	require.Eventually(t, func() bool {
		stored, _ := repo.FindByID(job.ID)
		return stored != nil && stored.Status == domain.StatusTransferring
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, mgr.Cancel(job.ID))

	last := terminalEvent(t, collectEvents(t, events))
	require.NotNil(t, last.Failure)
	assert.Equal(t, domain.FailureCancelled, last.Failure.Kind)
	assert.False(t, post.wasCalled())

	stored, _ := repo.FindByID(job.ID)
	assert.Equal(t, domain.StatusFailed, stored.Status)
}

func TestJobManager_CancelUnknownJob(t *testing.T) {
	mgr, _ := testManager(t, &fakeCatalog{catalog: combinedCatalog("t")}, &fakeExecutor{}, &fakePost{})

	err := mgr.Cancel("no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestJobManager_CancelTerminalJob(t *testing.T) {
	mgr, repo := testManager(t, &fakeCatalog{catalog: combinedCatalog("t")}, &fakeExecutor{}, &fakePost{})

	job, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		Container:      domain.ContainerMP4,
		Quality:        domain.QualityBest,
	})
	require.NoError(t, err)
	collectEvents(t, events)

	err = mgr.Cancel(job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal")

	stored, _ := repo.FindByID(job.ID)
	assert.Equal(t, domain.StatusSucceeded, stored.Status)
}

func TestJobManager_DeleteActiveJob(t *testing.T) {
	executor := &fakeExecutor{block: true}
	mgr, repo := testManager(t, &fakeCatalog{catalog: combinedCatalog("t")}, executor, &fakePost{})

	job, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		Container:      domain.ContainerMP4,
		Quality:        domain.QualityBest,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stored, _ := repo.FindByID(job.ID)
		return stored != nil && stored.Status == domain.StatusTransferring
	}, 5*time.Second, 10*time.Millisecond)

	err = mgr.DeleteJob(job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still active")

	require.NoError(t, mgr.Cancel(job.ID))
	collectEvents(t, events)

	assert.NoError(t, mgr.DeleteJob(job.ID))
}

func TestJobManager_SubmitReturnsSnapshot(t *testing.T) {
	executor := &fakeExecutor{block: true}
	mgr, repo := testManager(t, &fakeCatalog{catalog: combinedCatalog("t")}, executor, &fakePost{})

	job, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		Container:      domain.ContainerMP4,
		Quality:        domain.QualityBest,
	})
	require.NoError(t, err)

	// The job goroutine advances the stored job while the caller still holds
	// the value Submit handed back. That value is a snapshot, so it keeps the
	// state from submission time no matter how far the goroutine has moved.
	require.Eventually(t, func() bool {
		stored, _ := repo.FindByID(job.ID)
		return stored != nil && stored.Status == domain.StatusTransferring
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, domain.StatusCreated, job.Status)

	require.NoError(t, mgr.Cancel(job.ID))
	collectEvents(t, events)
}

func TestJobManager_SubmitInvalidRequest(t *testing.T) {
	mgr, _ := testManager(t, &fakeCatalog{catalog: combinedCatalog("t")}, &fakeExecutor{}, &fakePost{})

	_, _, err := mgr.Submit(domain.DownloadRequest{URL: "not-a-url", DestinationDir: t.TempDir()})
	require.Error(t, err)
}

func TestJobManager_ProgressEvents(t *testing.T) {
	executor := &fakeExecutor{samples: []domain.RawSample{
		{Bytes: 250, Total: 1000, Elapsed: time.Second},
		{Finished: true},
	}}
	mgr, _ := testManager(t, &fakeCatalog{catalog: combinedCatalog("t")}, executor, &fakePost{})

	_, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		Container:      domain.ContainerMP4,
		Quality:        domain.QualityBest,
	})
	require.NoError(t, err)

	got := collectEvents(t, events)
	require.GreaterOrEqual(t, len(got), 2)

	first := got[0]
	assert.Equal(t, domain.EventProgress, first.Type)
	require.NotNil(t, first.Progress)
	assert.Equal(t, float64(25), first.Progress.Percent)
	assert.Equal(t, domain.PhaseDownloading, first.Progress.Phase)

	finalizing := got[len(got)-2]
	require.NotNil(t, finalizing.Progress)
	assert.Equal(t, float64(100), finalizing.Progress.Percent)
	assert.Equal(t, domain.PhaseFinalizing, finalizing.Progress.Phase)
}

func TestJobManager_Shutdown(t *testing.T) {
	executor := &fakeExecutor{block: true}
	mgr, repo := testManager(t, &fakeCatalog{catalog: combinedCatalog("t")}, executor, &fakePost{})

	job, events, err := mgr.Submit(domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: t.TempDir(),
		Container:      domain.ContainerMP4,
		Quality:        domain.QualityBest,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stored, _ := repo.FindByID(job.ID)
		return stored != nil && stored.Status == domain.StatusTransferring
	}, 5*time.Second, 10*time.Millisecond)

	mgr.Shutdown()

	last := terminalEvent(t, collectEvents(t, events))
	require.NotNil(t, last.Failure)
	assert.Equal(t, domain.FailureCancelled, last.Failure.Kind)
	assert.Zero(t, mgr.ActiveCount())
}
