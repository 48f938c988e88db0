package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

func testSelector() *StreamSelector {
	return NewStreamSelector(&domain.EngineConfig{
		AudioCodec:   "mp3",
		AudioBitrate: "192k",
	})
}

func videoRequest(container domain.Container, quality domain.Quality) domain.DownloadRequest {
	return domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		DestinationDir: "/tmp",
		Container:      container,
		Quality:        quality,
	}
}

func TestSelect_EmptyCatalog(t *testing.T) {
	s := testSelector()

	_, err := s.Select(&domain.Catalog{Title: "t"}, videoRequest(domain.ContainerMP4, domain.QualityBest))

	require.Error(t, err)
	var f *domain.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, domain.FailureNoStream, f.Kind)
}

func TestSelect_BestPrefersCombinedInContainer(t *testing.T) {
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "webm-hd", Container: "webm", Height: 1080, HasVideo: true, HasAudio: true, Bitrate: 4000},
		{ID: "mp4-sd", Container: "mp4", Height: 480, HasVideo: true, HasAudio: true, Bitrate: 900},
		{ID: "mp4-hd", Container: "mp4", Height: 720, HasVideo: true, HasAudio: true, Bitrate: 2000},
	}}

	sel, err := s.Select(catalog, videoRequest(domain.ContainerMP4, domain.QualityBest))

	require.NoError(t, err)
	assert.Equal(t, domain.SelectionCombined, sel.Kind)
	assert.Equal(t, "mp4-hd", sel.Stream.ID)
	assert.Equal(t, "mp4", sel.Container)
	assert.Nil(t, sel.Extract)
}

func TestSelect_BestFallsBackAcrossContainers(t *testing.T) {
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "webm-hd", Container: "webm", Height: 1080, HasVideo: true, HasAudio: true, Bitrate: 4000},
		{ID: "webm-sd", Container: "webm", Height: 480, HasVideo: true, HasAudio: true, Bitrate: 800},
	}}

	sel, err := s.Select(catalog, videoRequest(domain.ContainerMP4, domain.QualityBest))

	require.NoError(t, err)
	assert.Equal(t, domain.SelectionCombined, sel.Kind)
	assert.Equal(t, "webm-hd", sel.Stream.ID)
}

func TestSelect_HeightCeilingMergesSeparateStreams(t *testing.T) {
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "v-2160", Container: "mp4", Height: 2160, HasVideo: true, Bitrate: 12000},
		{ID: "v-1080", Container: "mp4", Height: 1080, HasVideo: true, Bitrate: 5000},
		{ID: "v-720", Container: "mp4", Height: 720, HasVideo: true, Bitrate: 2500},
		{ID: "a-high", Container: "m4a", HasAudio: true, Bitrate: 160},
		{ID: "a-low", Container: "m4a", HasAudio: true, Bitrate: 64},
	}}

	sel, err := s.Select(catalog, videoRequest(domain.ContainerMP4, domain.Quality1080))

	require.NoError(t, err)
	assert.Equal(t, domain.SelectionMerged, sel.Kind)
	assert.Equal(t, "v-1080", sel.Video.ID)
	assert.Equal(t, "a-high", sel.Audio.ID)
	assert.Equal(t, "mp4", sel.Container)
}

func TestSelect_HeightCeilingFallsBackToCombined(t *testing.T) {
	// No separate video/audio streams under the ceiling: the best combined
	// stream at or below the ceiling wins even in another container.
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "c-2160", Container: "mp4", Height: 2160, HasVideo: true, HasAudio: true, Bitrate: 10000},
		{ID: "c-720", Container: "webm", Height: 720, HasVideo: true, HasAudio: true, Bitrate: 2000},
	}}

	sel, err := s.Select(catalog, videoRequest(domain.ContainerMP4, domain.Quality1080))

	require.NoError(t, err)
	assert.Equal(t, domain.SelectionCombined, sel.Kind)
	assert.Equal(t, "c-720", sel.Stream.ID)
}

func TestSelect_HeightCeilingUnsatisfiableDegradesToBest(t *testing.T) {
	// Every stream exceeds the ceiling: the request degrades to the
	// unconstrained best instead of failing.
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "c-2160", Container: "mp4", Height: 2160, HasVideo: true, HasAudio: true, Bitrate: 10000},
		{ID: "c-1440", Container: "mp4", Height: 1440, HasVideo: true, HasAudio: true, Bitrate: 7000},
	}}

	sel, err := s.Select(catalog, videoRequest(domain.ContainerMP4, domain.Quality480))

	require.NoError(t, err)
	assert.Equal(t, domain.SelectionCombined, sel.Kind)
	assert.Equal(t, "c-2160", sel.Stream.ID)
}

func TestSelect_VideoOnlyCatalogStillUsable(t *testing.T) {
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "v-1080", Container: "mp4", Height: 1080, HasVideo: true, Bitrate: 5000},
		{ID: "v-720", Container: "mp4", Height: 720, HasVideo: true, Bitrate: 2500},
	}}

	sel, err := s.Select(catalog, videoRequest(domain.ContainerMP4, domain.QualityBest))

	require.NoError(t, err)
	assert.Equal(t, domain.SelectionCombined, sel.Kind)
	assert.Equal(t, "v-1080", sel.Stream.ID)
}

func TestSelect_AudioOnlyPicksBestBitrate(t *testing.T) {
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "a-low", Container: "webm", HasAudio: true, Bitrate: 64},
		{ID: "a-high", Container: "m4a", HasAudio: true, Bitrate: 160},
		{ID: "c-hd", Container: "mp4", Height: 1080, HasVideo: true, HasAudio: true, Bitrate: 5000},
	}}

	req := videoRequest(domain.ContainerMP4, domain.QualityBest)
	req.AudioOnly = true

	sel, err := s.Select(catalog, req)

	require.NoError(t, err)
	assert.Equal(t, "a-high", sel.Stream.ID)
	require.NotNil(t, sel.Extract)
	assert.Equal(t, "mp3", sel.Extract.Codec)
	assert.Equal(t, "192k", sel.Extract.Bitrate)
}

func TestSelect_AudioOnlyFallsBackToAudioCapable(t *testing.T) {
	// No audio-only stream: the combined stream still serves as the
	// extraction source.
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "c-hd", Container: "mp4", Height: 1080, HasVideo: true, HasAudio: true, Bitrate: 5000},
	}}

	req := videoRequest(domain.ContainerMP4, domain.QualityBest)
	req.AudioOnly = true

	sel, err := s.Select(catalog, req)

	require.NoError(t, err)
	assert.Equal(t, "c-hd", sel.Stream.ID)
	require.NotNil(t, sel.Extract)
}

func TestSelect_AudioOnlyNoAudioAnywhere(t *testing.T) {
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "v-720", Container: "mp4", Height: 720, HasVideo: true, Bitrate: 2500},
	}}

	req := videoRequest(domain.ContainerMP4, domain.QualityBest)
	req.AudioOnly = true

	_, err := s.Select(catalog, req)

	require.Error(t, err)
	var f *domain.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, domain.FailureNoStream, f.Kind)
}

func TestSelect_EqualHeightRankedByBitrate(t *testing.T) {
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "slow", Container: "mp4", Height: 720, HasVideo: true, HasAudio: true, Bitrate: 1200},
		{ID: "fast", Container: "mp4", Height: 720, HasVideo: true, HasAudio: true, Bitrate: 2400},
	}}

	sel, err := s.Select(catalog, videoRequest(domain.ContainerMP4, domain.QualityBest))

	require.NoError(t, err)
	assert.Equal(t, "fast", sel.Stream.ID)
}

func TestSelect_Deterministic(t *testing.T) {
	s := testSelector()
	catalog := &domain.Catalog{Streams: []domain.StreamDescriptor{
		{ID: "one", Container: "mp4", Height: 720, HasVideo: true, HasAudio: true, Bitrate: 2000},
		{ID: "two", Container: "mp4", Height: 720, HasVideo: true, HasAudio: true, Bitrate: 2000},
	}}
	req := videoRequest(domain.ContainerMP4, domain.QualityBest)

	first, err := s.Select(catalog, req)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		sel, err := s.Select(catalog, req)
		require.NoError(t, err)
		assert.Equal(t, first.Stream.ID, sel.Stream.ID)
	}
	// First of equals wins, so catalog order decides.
	assert.Equal(t, "one", first.Stream.ID)
}
