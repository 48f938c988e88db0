package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMuxArgs(t *testing.T) {
	args := muxArgs("/tmp/v.part", "/tmp/a.part", "/tmp/out.mp4")

	assert.Equal(t, []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", "/tmp/v.part",
		"-i", "/tmp/a.part",
		"-c", "copy",
		"/tmp/out.mp4",
	}, args)
}

func TestExtractAudioArgs(t *testing.T) {
	args := extractAudioArgs("/tmp/in.mp4", "/tmp/out.mp3", "mp3", "192k")

	assert.Equal(t, []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", "/tmp/in.mp4",
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", "192k",
		"/tmp/out.mp3",
	}, args)
}

func TestEncoderFor(t *testing.T) {
	assert.Equal(t, "libmp3lame", encoderFor("mp3"))
	assert.Equal(t, "libopus", encoderFor("opus"))
	assert.Equal(t, "libvorbis", encoderFor("vorbis"))
	assert.Equal(t, "aac", encoderFor("aac"))
}

func TestLastLines(t *testing.T) {
	assert.Equal(t, "short", lastLines("short", 3))
	assert.Equal(t, "c\nd", lastLines("a\nb\nc\nd", 2))
}
