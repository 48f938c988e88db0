package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// eventBuffer is the per-job event channel capacity. Progress events beyond
// it displace the oldest buffered event so the terminal event always fits.
const eventBuffer = 64

// Notifier receives terminal job outcomes for user-facing notification
type Notifier interface {
	NotifyJobSucceeded(job *domain.Job)
	NotifyJobFailed(job *domain.Job)
}

// JobManager owns the lifecycle of download jobs. Each submitted job runs in
// its own goroutine through the fixed sequence resolve, select, transfer and
// optional post-processing. Every stage error is normalized at this boundary
// into exactly one terminal failure event; nothing escapes to the caller
// unhandled. Jobs are independent of each other; the manager imposes no
// cross-job serialization.
type JobManager struct {
	repo     domain.JobRepository
	catalog  domain.StreamCatalog
	executor domain.TransferExecutor
	post     domain.PostProcessor
	selector *StreamSelector
	notifier Notifier
	config   *domain.EngineConfig
	logger   *zap.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewJobManager creates a new job manager
func NewJobManager(
	repo domain.JobRepository,
	catalog domain.StreamCatalog,
	executor domain.TransferExecutor,
	post domain.PostProcessor,
	notifier Notifier,
	config *domain.EngineConfig,
	logger *zap.Logger,
) *JobManager {
	return &JobManager{
		repo:     repo,
		catalog:  catalog,
		executor: executor,
		post:     post,
		selector: NewStreamSelector(config),
		notifier: notifier,
		config:   config,
		logger:   logger,
		running:  make(map[string]context.CancelFunc),
	}
}

// Submit validates the request, records a job for it and starts it in its
// own goroutine. The returned job is a snapshot taken before the goroutine
// starts; the returned channel delivers progress events followed by exactly
// one terminal event and is closed afterwards.
func (m *JobManager) Submit(req domain.DownloadRequest) (*domain.Job, <-chan domain.JobEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid request: %w", err)
	}

	job := domain.NewJob(req)
	if err := m.repo.Create(job); err != nil {
		return nil, nil, fmt.Errorf("failed to create job: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.running[job.ID] = cancel
	m.mu.Unlock()

	m.logger.Info("Job submitted",
		zap.String("id", job.ID),
		zap.String("url", job.URL),
		zap.Bool("audio_only", job.AudioOnly))

	events := make(chan domain.JobEvent, eventBuffer)
	m.wg.Add(1)
	go m.run(ctx, job, events)

	// The goroutine owns the live job from here on; hand the caller a
	// snapshot so reading its fields never races with the transitions.
	snapshot := *job
	return &snapshot, events, nil
}

// Cancel requests cancellation of a running job. The job stops at its next
// safe checkpoint and terminates as Failed/cancelled; cancellation is not
// instantaneous.
func (m *JobManager) Cancel(id string) error {
	m.mu.Lock()
	cancel, ok := m.running[id]
	m.mu.Unlock()
	if ok {
		cancel()
		m.logger.Info("Job cancellation requested", zap.String("id", id))
		return nil
	}

	job, err := m.repo.FindByID(id)
	if err != nil || job == nil {
		return fmt.Errorf("job not found: %s", id)
	}
	return fmt.Errorf("job already in terminal state: %s", job.Status)
}

// GetJob retrieves a job by ID
func (m *JobManager) GetJob(id string) (*domain.Job, error) {
	return m.repo.FindByID(id)
}

// ListJobs lists all jobs with optional filters
func (m *JobManager) ListJobs(filters map[string]interface{}) ([]*domain.Job, error) {
	return m.repo.FindAll(filters)
}

// DeleteJob removes a terminal job record
func (m *JobManager) DeleteJob(id string) error {
	job, err := m.repo.FindByID(id)
	if err != nil || job == nil {
		return fmt.Errorf("job not found: %s", id)
	}
	if !job.IsTerminal() {
		return fmt.Errorf("job is still active: %s", job.Status)
	}
	return m.repo.Delete(id)
}

// GetStats returns job statistics
func (m *JobManager) GetStats() (*domain.JobStats, error) {
	return m.repo.GetStats()
}

// ActiveCount returns the number of jobs currently running
func (m *JobManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// Shutdown cancels all running jobs and waits for them to terminate
func (m *JobManager) Shutdown() {
	m.mu.Lock()
	for _, cancel := range m.running {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// run drives one job from created to its terminal state
func (m *JobManager) run(ctx context.Context, job *domain.Job, events chan domain.JobEvent) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.running, job.ID)
		m.mu.Unlock()
	}()
	defer close(events)

	job.MarkResolving()
	m.update(job)

	catalog, err := m.catalog.Resolve(ctx, job.URL)
	if err != nil {
		m.fail(job, events, domain.ClassifyError(err, domain.FailureResolution))
		return
	}

	job.MarkSelecting(catalog.Title)
	m.update(job)

	sel, err := m.selector.Select(catalog, job.Request())
	if err != nil {
		m.fail(job, events, domain.ClassifyError(err, domain.FailureNoStream))
		return
	}
	m.logger.Debug("Stream selected",
		zap.String("id", job.ID),
		zap.String("kind", string(sel.Kind)),
		zap.String("container", sel.Container))

	job.MarkTransferring()
	m.update(job)

	path, err := m.transfer(ctx, job, sel, events)
	if err != nil {
		m.fail(job, events, domain.ClassifyError(err, domain.FailureTransfer))
		return
	}

	if sel.Extract != nil {
		// Cancellation observed after the transfer still wins: never start
		// post-processing for a cancelled job.
		if ctx.Err() != nil {
			m.fail(job, events, domain.ClassifyError(ctx.Err(), domain.FailureCancelled))
			return
		}
		job.MarkPostProcessing()
		m.update(job)

		final, err := m.post.Process(ctx, path, *sel.Extract)
		if err != nil {
			m.fail(job, events, domain.ClassifyError(err, domain.FailurePostProcessing))
			return
		}
		path = final
	}

	job.MarkSucceeded(path)
	m.update(job)
	m.send(events, domain.JobEvent{JobID: job.ID, Type: domain.EventSucceeded, Path: path})

	m.logger.Info("Job succeeded",
		zap.String("id", job.ID),
		zap.String("file", path))
	if m.notifier != nil {
		m.notifier.NotifyJobSucceeded(job)
	}
}

// transfer executes the byte transfer while normalizing its raw samples into
// caller-facing progress events
func (m *JobManager) transfer(ctx context.Context, job *domain.Job, sel domain.SelectionExpression, events chan domain.JobEvent) (string, error) {
	samples := make(chan domain.RawSample, eventBuffer)
	reporter := NewProgressReporter()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for s := range samples {
			ev, ok := reporter.Normalize(s)
			if !ok {
				continue
			}
			job.RecordProgress(ev.Percent, ev.ETA)
			m.update(job)
			progress := ev
			m.send(events, domain.JobEvent{JobID: job.ID, Type: domain.EventProgress, Progress: &progress})
		}
	}()

	out := domain.OutputTemplate{Dir: job.DestinationDir, Title: job.Title}
	path, err := m.executor.Execute(ctx, sel, out, samples)

	// The executor only sends while Execute is in flight, so closing here is
	// safe and flushes the normalizer goroutine before any terminal event.
	close(samples)
	<-drained

	return path, err
}

// fail records the terminal failure and emits the single failure event
func (m *JobManager) fail(job *domain.Job, events chan domain.JobEvent, f *domain.Failure) {
	job.MarkFailed(f)
	m.update(job)
	m.send(events, domain.JobEvent{JobID: job.ID, Type: domain.EventFailed, Failure: f})

	m.logger.Error("Job failed",
		zap.String("id", job.ID),
		zap.String("url", job.URL),
		zap.String("kind", string(f.Kind)),
		zap.String("message", f.Message))
	if m.notifier != nil {
		m.notifier.NotifyJobFailed(job)
	}
}

// send delivers an event without ever blocking the job goroutine. When the
// buffer is full the oldest buffered event is displaced, which can only ever
// discard progress events: the terminal event is the last one sent.
func (m *JobManager) send(events chan domain.JobEvent, ev domain.JobEvent) {
	for {
		select {
		case events <- ev:
			return
		default:
			select {
			case <-events:
			default:
			}
		}
	}
}

// update persists the job row, logging persistence trouble without letting
// it affect the job outcome
func (m *JobManager) update(job *domain.Job) {
	if err := m.repo.Update(job); err != nil {
		m.logger.Error("Failed to update job record",
			zap.String("id", job.ID),
			zap.Error(err))
	}
}
