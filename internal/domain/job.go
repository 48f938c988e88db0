package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current lifecycle state of a download job.
// States advance strictly forward; no state is ever revisited.
type JobStatus string

const (
	StatusCreated        JobStatus = "created"
	StatusResolving      JobStatus = "resolving"
	StatusSelecting      JobStatus = "selecting"
	StatusTransferring   JobStatus = "transferring"
	StatusPostProcessing JobStatus = "postprocessing"
	StatusSucceeded      JobStatus = "succeeded"
	StatusFailed         JobStatus = "failed"
)

// Job represents one download job. A job owns exactly one request, is never
// reused, and terminates exactly once into Succeeded or Failed.
type Job struct {
	ID             string      `json:"id" gorm:"primaryKey"`
	URL            string      `json:"url" gorm:"not null"`
	DestinationDir string      `json:"destination_dir"`
	Container      Container   `json:"container"`
	Quality        Quality     `json:"quality"`
	AudioOnly      bool        `json:"audio_only"`
	Status         JobStatus   `json:"status" gorm:"not null;index"`
	FailureKind    FailureKind `json:"failure_kind,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	Title          string      `json:"title,omitempty"`
	FilePath       string      `json:"file_path,omitempty"`
	Percent        float64     `json:"percent"`
	ETA            string      `json:"eta,omitempty"`
	CreatedAt      time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// NewJob creates a new job for a request
func NewJob(req DownloadRequest) *Job {
	return &Job{
		ID:             uuid.New().String(),
		URL:            req.URL,
		DestinationDir: req.DestinationDir,
		Container:      req.Container,
		Quality:        req.Quality,
		AudioOnly:      req.AudioOnly,
		Status:         StatusCreated,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

// Request reconstructs the immutable request this job was created for
func (j *Job) Request() DownloadRequest {
	return DownloadRequest{
		URL:            j.URL,
		DestinationDir: j.DestinationDir,
		Container:      j.Container,
		Quality:        j.Quality,
		AudioOnly:      j.AudioOnly,
	}
}

// MarkResolving marks the job as resolving the stream catalog
func (j *Job) MarkResolving() {
	j.Status = StatusResolving
	now := time.Now()
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkSelecting marks the job as selecting a stream
func (j *Job) MarkSelecting(title string) {
	j.Status = StatusSelecting
	j.Title = title
	j.UpdatedAt = time.Now()
}

// MarkTransferring marks the job as transferring bytes
func (j *Job) MarkTransferring() {
	j.Status = StatusTransferring
	j.UpdatedAt = time.Now()
}

// MarkPostProcessing marks the job as running audio extraction
func (j *Job) MarkPostProcessing() {
	j.Status = StatusPostProcessing
	j.UpdatedAt = time.Now()
}

// MarkSucceeded marks the job as succeeded with its final file path
func (j *Job) MarkSucceeded(filePath string) {
	j.Status = StatusSucceeded
	j.FilePath = filePath
	j.Percent = 100
	j.ETA = ""
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed marks the job as failed. A failed job never reports a path.
func (j *Job) MarkFailed(f *Failure) {
	j.Status = StatusFailed
	j.FailureKind = f.Kind
	j.ErrorMessage = f.Message
	j.FilePath = ""
	j.ETA = ""
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// RecordProgress stores the latest observed progress on the job row
func (j *Job) RecordProgress(percent float64, eta string) {
	j.Percent = percent
	j.ETA = eta
	j.UpdatedAt = time.Now()
}

// IsTerminal checks if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// IsActive checks if the job is running
func (j *Job) IsActive() bool {
	return !j.IsTerminal() && j.Status != StatusCreated
}
