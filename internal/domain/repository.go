package domain

// JobRepository defines the interface for job persistence
type JobRepository interface {
	// Create creates a new job record
	Create(job *Job) error

	// Update updates an existing job record
	Update(job *Job) error

	// Delete deletes a job by ID
	Delete(id string) error

	// FindByID finds a job by ID
	FindByID(id string) (*Job, error)

	// FindByStatus finds jobs by status
	FindByStatus(status JobStatus) ([]*Job, error)

	// FindAll finds all jobs with optional filters, newest first
	FindAll(filters map[string]interface{}) ([]*Job, error)

	// Count returns the total number of jobs
	Count() (int64, error)

	// CountByStatus returns the number of jobs by status
	CountByStatus(status JobStatus) (int64, error)

	// GetStats returns job statistics
	GetStats() (*JobStats, error)
}

// JobStats represents job statistics
type JobStats struct {
	Total          int64 `json:"total"`
	Active         int64 `json:"active"`
	Succeeded      int64 `json:"succeeded"`
	Failed         int64 `json:"failed"`
	Transferring   int64 `json:"transferring"`
	PostProcessing int64 `json:"postprocessing"`
}
