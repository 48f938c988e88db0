package infrastructure

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

const (
	copyBufferSize    = 128 * 1024
	sampleInterval    = 200 * time.Millisecond
	partSuffix        = ".part"
	audioPartSuffix   = ".audio.part"
	fallbackContainer = "mp4"
)

// HTTPTransferExecutor streams selected media over HTTP(S) into the
// destination directory. Transient failures are retried up to the configured
// budget, resuming from the partial file via Range requests where the server
// allows it. Invalid or self-signed TLS certificates are tolerated when
// configured, a deliberate trust relaxation for compatibility with the wide
// variety of media hosts, not a security statement.
type HTTPTransferExecutor struct {
	client     *http.Client
	ffmpeg     *FFmpeg
	userAgent  string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewHTTPTransferExecutor creates a transfer executor from the engine
// configuration. The HTTP client is built once and shared by all transfers.
func NewHTTPTransferExecutor(cfg *domain.EngineConfig, ffmpeg *FFmpeg, logger *zap.Logger) *HTTPTransferExecutor {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.AttemptTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.InsecureTLS},
		TLSHandshakeTimeout:   cfg.AttemptTimeout,
		ResponseHeaderTimeout: cfg.AttemptTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	return &HTTPTransferExecutor{
		client:     &http.Client{Transport: transport},
		ffmpeg:     ffmpeg,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// Execute transfers the selection and returns the path of the written file.
// Raw progress samples are sent on the provided channel while the call is in
// flight; a final Finished sample precedes a successful return. The caller
// owns the channel and closes it after Execute returns.
func (e *HTTPTransferExecutor) Execute(ctx context.Context, sel domain.SelectionExpression, out domain.OutputTemplate, samples chan<- domain.RawSample) (string, error) {
	ext := sel.Container
	if ext == "" {
		ext = fallbackContainer
	}
	name := SanitizeTitle(out.Title)
	finalPath := UniquePath(out.Dir, name, ext)

	tracker := newProgressTracker(samples)

	var err error
	switch sel.Kind {
	case domain.SelectionMerged:
		err = e.transferMerged(ctx, sel, finalPath, tracker)
	default:
		err = e.transferCombined(ctx, sel, finalPath, tracker)
	}
	if err != nil {
		return "", err
	}

	tracker.finish()
	e.logger.Info("Transfer completed", zap.String("file", finalPath))
	return finalPath, nil
}

// transferCombined downloads a single muxed stream straight to the final path
func (e *HTTPTransferExecutor) transferCombined(ctx context.Context, sel domain.SelectionExpression, finalPath string, tracker *progressTracker) error {
	part := finalPath + partSuffix
	defer os.Remove(part)

	if err := e.fetchWithRetry(ctx, sel.Stream.MediaURL, part, tracker, 0); err != nil {
		return err
	}
	if err := os.Rename(part, finalPath); err != nil {
		return fmt.Errorf("failed to finalize output file: %w", err)
	}
	return nil
}

// transferMerged downloads the video and audio legs concurrently, then muxes
// them into the final container. The two sub-transfers are an internal detail:
// progress is reported as one combined byte count.
func (e *HTTPTransferExecutor) transferMerged(ctx context.Context, sel domain.SelectionExpression, finalPath string, tracker *progressTracker) error {
	videoPart := finalPath + partSuffix
	audioPart := finalPath + audioPartSuffix
	defer os.Remove(videoPart)
	defer os.Remove(audioPart)

	legCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errc := make(chan error, 2)
	fetch := func(url, part string, leg int) {
		defer wg.Done()
		if err := e.fetchWithRetry(legCtx, url, part, tracker, leg); err != nil {
			errc <- err
			cancel() // abort the sibling leg
		}
	}
	wg.Add(2)
	go fetch(sel.Video.MediaURL, videoPart, 0)
	go fetch(sel.Audio.MediaURL, audioPart, 1)
	wg.Wait()

	select {
	case err := <-errc:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	default:
	}

	if err := e.ffmpeg.Mux(ctx, videoPart, audioPart, finalPath); err != nil {
		// ffmpeg writes the output in place; a failed mux must not leave a
		// partial file at the final name.
		os.Remove(finalPath)
		return fmt.Errorf("failed to merge streams: %w", err)
	}
	return nil
}

// fetchWithRetry runs download attempts against one stream URL until success
// or until the retry budget is exhausted. Cancellation is honored between
// attempts and inside the copy loop; each retry resumes from the partial file.
func (e *HTTPTransferExecutor) fetchWithRetry(ctx context.Context, url, part string, tracker *progressTracker, leg int) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			e.logger.Info("Retrying transfer",
				zap.String("file", filepath.Base(part)),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", e.maxRetries))
		}

		err := e.fetchOnce(ctx, url, part, tracker, leg)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		e.logger.Warn("Transfer attempt failed",
			zap.String("file", filepath.Base(part)),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return fmt.Errorf("transfer failed after %d attempts: %w", e.maxRetries, lastErr)
}

// fetchOnce performs a single download attempt, resuming from whatever the
// partial file already holds
func (e *HTTPTransferExecutor) fetchOnce(ctx context.Context, url, part string, tracker *progressTracker, leg int) error {
	var offset int64
	mode := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if info, err := os.Stat(part); err == nil && info.Size() > 0 {
		offset = info.Size()
		mode = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case offset > 0 && resp.StatusCode == http.StatusPartialContent:
		// resuming; the partial bytes already count
	case offset > 0 && resp.StatusCode == http.StatusOK:
		// server ignored the range request, start over
		offset = 0
		mode = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		tracker.resetLeg(leg)
	case resp.StatusCode == http.StatusOK:
	default:
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	if resp.ContentLength >= 0 {
		tracker.setLegTotal(leg, offset+resp.ContentLength)
	}
	tracker.setLegBytes(leg, offset)

	file, err := os.OpenFile(part, mode, 0644)
	if err != nil {
		return fmt.Errorf("failed to open partial file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, copyBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write output: %w", writeErr)
			}
			tracker.add(leg, int64(n))
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read failed: %w", readErr)
		}
	}
}

// progressTracker aggregates byte counters across the (up to two) legs of a
// transfer and emits raw samples at a bounded cadence. Emission never blocks:
// a sample nobody is ready for is simply dropped, the next one carries the
// up-to-date counters anyway.
type progressTracker struct {
	samples  chan<- domain.RawSample
	started  time.Time
	bytes    [2]int64
	totals   [2]int64
	lastEmit int64 // unix nanos of the last emitted sample
}

func newProgressTracker(samples chan<- domain.RawSample) *progressTracker {
	return &progressTracker{samples: samples, started: time.Now()}
}

func (t *progressTracker) setLegTotal(leg int, total int64) {
	atomic.StoreInt64(&t.totals[leg], total)
}

func (t *progressTracker) setLegBytes(leg int, n int64) {
	atomic.StoreInt64(&t.bytes[leg], n)
}

func (t *progressTracker) resetLeg(leg int) {
	atomic.StoreInt64(&t.bytes[leg], 0)
	atomic.StoreInt64(&t.totals[leg], 0)
}

func (t *progressTracker) add(leg int, n int64) {
	atomic.AddInt64(&t.bytes[leg], n)
	now := time.Now().UnixNano()
	last := atomic.LoadInt64(&t.lastEmit)
	if now-last < int64(sampleInterval) {
		return
	}
	if !atomic.CompareAndSwapInt64(&t.lastEmit, last, now) {
		return
	}
	t.emit(false)
}

// finish emits the terminal sample. Unlike intermediate samples it must not
// be lost; the contract requires the caller to keep draining the channel
// until Execute returns, so this send may block briefly but not forever.
func (t *progressTracker) finish() {
	t.samples <- t.snapshot(true)
}

func (t *progressTracker) emit(finished bool) {
	select {
	case t.samples <- t.snapshot(finished):
	default:
	}
}

func (t *progressTracker) snapshot(finished bool) domain.RawSample {
	return domain.RawSample{
		Bytes:    atomic.LoadInt64(&t.bytes[0]) + atomic.LoadInt64(&t.bytes[1]),
		Total:    atomic.LoadInt64(&t.totals[0]) + atomic.LoadInt64(&t.totals[1]),
		Elapsed:  time.Since(t.started),
		Finished: finished,
	}
}
