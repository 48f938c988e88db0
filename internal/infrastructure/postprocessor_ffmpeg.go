package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// FFmpegPostProcessor extracts the audio track of a transferred file into
// the target codec. Any error from the external encoder surfaces as a
// PostProcessingFailed failure, distinct from transfer failures.
type FFmpegPostProcessor struct {
	ffmpeg *FFmpeg
	logger *zap.Logger
}

// NewFFmpegPostProcessor creates an ffmpeg-backed post-processor
func NewFFmpegPostProcessor(ffmpeg *FFmpeg, logger *zap.Logger) *FFmpegPostProcessor {
	return &FFmpegPostProcessor{ffmpeg: ffmpeg, logger: logger}
}

// Process transcodes the audio of path into the target codec and removes the
// original file. The returned path carries the codec's extension in place of
// the source container extension.
func (p *FFmpegPostProcessor) Process(ctx context.Context, path string, target domain.AudioExtraction) (string, error) {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := UniquePath(dir, base, target.Codec)

	p.logger.Info("Extracting audio",
		zap.String("source", path),
		zap.String("codec", target.Codec),
		zap.String("bitrate", target.Bitrate))

	if err := p.ffmpeg.ExtractAudio(ctx, path, outPath, target.Codec, target.Bitrate); err != nil {
		os.Remove(outPath)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.NewFailure(domain.FailurePostProcessing,
			fmt.Errorf("audio extraction failed: %w", err))
	}

	// The intermediate container is no longer needed once the audio file
	// exists; a failed remove is not worth failing the job over.
	if err := os.Remove(path); err != nil {
		p.logger.Warn("Failed to remove intermediate file",
			zap.String("file", path),
			zap.Error(err))
	}

	return outPath, nil
}
