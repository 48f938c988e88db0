package domain

// Phase tells the observer which part of the job a progress event covers
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	PhaseFinalizing  Phase = "finalizing"
)

// ProgressEvent is a normalized progress observation exposed to the caller.
// Within one job percentages are non-decreasing and bounded to [0,100].
type ProgressEvent struct {
	Percent float64 `json:"percent"`
	ETA     string  `json:"eta"` // human-readable, empty when unknown
	Phase   Phase   `json:"phase"`
}

// EventType distinguishes the three externally observable job events
type EventType string

const (
	EventProgress  EventType = "progress"
	EventSucceeded EventType = "succeeded"
	EventFailed    EventType = "failed"
)

// JobEvent is the external event contract of the engine. Progress events
// carry Progress; terminal events carry either the final path or the failure.
// Exactly one terminal event is delivered per job, and no progress event is
// ever delivered after it.
type JobEvent struct {
	JobID    string         `json:"job_id"`
	Type     EventType      `json:"type"`
	Progress *ProgressEvent `json:"progress,omitempty"`
	Path     string         `json:"path,omitempty"`
	Failure  *Failure       `json:"failure,omitempty"`
}
