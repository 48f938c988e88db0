package app

import (
	"fmt"
	"time"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// minEmitInterval throttles how often intermediate progress reaches the caller
const minEmitInterval = 500 * time.Millisecond

// ProgressReporter converts raw transfer samples into normalized progress
// events for one job. Percentages are clamped to [0,100] and strictly
// non-decreasing; samples with an unknown total are dropped rather than
// failing the job. After the finished signal no further event is produced.
type ProgressReporter struct {
	last     float64
	lastEmit time.Time
	started  bool
	done     bool
	now      func() time.Time // stubbed in tests
}

// NewProgressReporter creates a reporter for a single job
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{now: time.Now}
}

// Normalize maps one raw sample onto a progress event. The second return
// value is false when the sample produces no event.
func (r *ProgressReporter) Normalize(s domain.RawSample) (domain.ProgressEvent, bool) {
	if r.done {
		return domain.ProgressEvent{}, false
	}

	if s.Finished {
		// Terminal transfer signal always surfaces as 100% regardless of
		// what the byte counters said before.
		r.done = true
		r.last = 100
		return domain.ProgressEvent{Percent: 100, Phase: domain.PhaseFinalizing}, true
	}

	if s.Total <= 0 {
		return domain.ProgressEvent{}, false
	}

	percent := float64(s.Bytes) / float64(s.Total) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent < r.last {
		return domain.ProgressEvent{}, false
	}

	now := r.now()
	if r.started && now.Sub(r.lastEmit) < minEmitInterval {
		return domain.ProgressEvent{}, false
	}
	r.started = true
	r.lastEmit = now
	r.last = percent

	return domain.ProgressEvent{
		Percent: percent,
		ETA:     estimateETA(s),
		Phase:   domain.PhaseDownloading,
	}, true
}

// estimateETA projects the remaining time from the observed transfer rate
func estimateETA(s domain.RawSample) string {
	if s.Bytes <= 0 || s.Elapsed <= 0 || s.Total <= s.Bytes {
		return ""
	}
	remaining := time.Duration(float64(s.Elapsed) * float64(s.Total-s.Bytes) / float64(s.Bytes))
	return formatETA(remaining)
}

// formatETA renders a duration the way download tools usually do: MM:SS,
// or HH:MM:SS above one hour
func formatETA(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 0 {
		secs = 0
	}
	if secs >= 3600 {
		return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
