package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// FFmpeg wraps invocations of the external ffmpeg binary. The engine only
// uses it for two narrow tasks: muxing separately transferred audio/video
// streams into one container, and extracting audio into a target codec.
type FFmpeg struct {
	binary string
	logger *zap.Logger
}

// NewFFmpeg creates an ffmpeg wrapper around the configured binary
func NewFFmpeg(binary string, logger *zap.Logger) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary, logger: logger}
}

// Mux combines a video stream file and an audio stream file into outPath.
// Streams are copied, not re-encoded; the container is inferred from the
// output extension.
func (f *FFmpeg) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	args := muxArgs(videoPath, audioPath, outPath)
	return f.run(ctx, args)
}

// ExtractAudio transcodes the audio track of inPath into outPath using the
// given codec and bitrate
func (f *FFmpeg) ExtractAudio(ctx context.Context, inPath, outPath, codec, bitrate string) error {
	args := extractAudioArgs(inPath, outPath, codec, bitrate)
	return f.run(ctx, args)
}

func muxArgs(videoPath, audioPath, outPath string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		outPath,
	}
}

func extractAudioArgs(inPath, outPath, codec, bitrate string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inPath,
		"-vn",
		"-acodec", encoderFor(codec),
		"-b:a", bitrate,
		outPath,
	}
}

// encoderFor maps a codec name onto the ffmpeg encoder implementing it
func encoderFor(codec string) string {
	switch codec {
	case "mp3":
		return "libmp3lame"
	case "opus":
		return "libopus"
	case "vorbis":
		return "libvorbis"
	default:
		return codec
	}
}

// run executes ffmpeg and folds a failing exit into an error carrying the
// tail of stderr, which is where ffmpeg reports what actually went wrong
func (f *FFmpeg) run(ctx context.Context, args []string) error {
	f.logger.Debug("Running ffmpeg",
		zap.String("command", ShellEscapeCommand(f.binary, args...)))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.binary, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("ffmpeg failed: %w", err)
		}
		return fmt.Errorf("ffmpeg failed: %s", lastLines(msg, 3))
	}
	return nil
}

// lastLines keeps the final n lines of a multi-line message
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
