package domain

import (
	"context"
	"time"
)

// StreamCatalog resolves a source URL into the streams available for it.
// Implementations wrap an external extraction service; the engine only
// consumes this contract and surfaces its errors as ResolutionFailed.
type StreamCatalog interface {
	Resolve(ctx context.Context, url string) (*Catalog, error)
}

// RawSample is one low-level progress observation from a transfer.
// Total is 0 when the expected size is unknown.
type RawSample struct {
	Bytes    int64
	Total    int64
	Elapsed  time.Duration
	Finished bool
}

// OutputTemplate tells the executor where and under which name to write.
// The extension is appended from the selection's container.
type OutputTemplate struct {
	Dir   string
	Title string
}

// TransferExecutor performs the byte transfer for a selection, merging
// separate audio/video streams when needed. It emits raw samples on the
// provided channel at its own cadence, dropping intermediate samples rather
// than blocking on a slow consumer, sends a final Finished sample on
// success, and returns the path of the transferred file. The caller must
// keep draining the channel until Execute returns and owns closing it.
type TransferExecutor interface {
	Execute(ctx context.Context, sel SelectionExpression, out OutputTemplate, samples chan<- RawSample) (string, error)
}

// PostProcessor extracts/transcodes audio out of a transferred file.
// The returned path carries the target codec's extension.
type PostProcessor interface {
	Process(ctx context.Context, path string, target AudioExtraction) (string, error)
}
