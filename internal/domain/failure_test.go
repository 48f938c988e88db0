package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError_KeepsExistingFailure(t *testing.T) {
	orig := &Failure{Kind: FailureNoStream, Message: "no streams"}

	f := ClassifyError(fmt.Errorf("select: %w", orig), FailureTransfer)

	require.NotNil(t, f)
	assert.Equal(t, FailureNoStream, f.Kind)
	assert.Equal(t, "no streams", f.Message)
}

func TestClassifyError_ContextCanceled(t *testing.T) {
	f := ClassifyError(context.Canceled, FailureTransfer)

	assert.Equal(t, FailureCancelled, f.Kind)
}

func TestClassifyError_WrappedContextCanceled(t *testing.T) {
	f := ClassifyError(fmt.Errorf("copy: %w", context.Canceled), FailureTransfer)

	assert.Equal(t, FailureCancelled, f.Kind)
}

func TestClassifyError_FallbackKind(t *testing.T) {
	f := ClassifyError(errors.New("dial tcp: connection refused"), FailureTransfer)

	assert.Equal(t, FailureTransfer, f.Kind)
	assert.Equal(t, "dial tcp: connection refused", f.Message)
}

func TestFailure_Error(t *testing.T) {
	f := &Failure{Kind: FailureResolution, Message: "extractor exited"}

	assert.Equal(t, "resolution_failed: extractor exited", f.Error())
}
