package domain

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind is the taxonomy of terminal job failures
type FailureKind string

const (
	FailureResolution     FailureKind = "resolution_failed"
	FailureNoStream       FailureKind = "no_matching_stream"
	FailureTransfer       FailureKind = "transfer_failed"
	FailurePostProcessing FailureKind = "postprocessing_failed"
	FailureCancelled      FailureKind = "cancelled"
)

// Failure is the single error shape that escapes a job. The message is
// preserved verbatim from the underlying error for diagnostics.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFailure wraps an error into a Failure of the given kind
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Message: err.Error()}
}

// ClassifyError normalizes any stage error into a Failure. Errors that are
// already a Failure keep their taxonomy; context cancellation maps to
// Cancelled; anything else takes the fallback kind of the stage it came from.
func ClassifyError(err error, fallback FailureKind) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.Canceled) {
		return &Failure{Kind: FailureCancelled, Message: "download cancelled"}
	}
	return NewFailure(fallback, err)
}
