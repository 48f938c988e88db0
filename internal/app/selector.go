package app

import (
	"fmt"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// StreamSelector maps a catalog and a request onto a concrete selection.
// Selection is pure and deterministic: identical inputs always yield the
// identical expression, and an unmet preference degrades to a looser
// fallback instead of failing. Only a catalog with no usable stream at all
// produces an error.
type StreamSelector struct {
	extract domain.AudioExtraction
}

// NewStreamSelector creates a selector with the configured audio extraction target
func NewStreamSelector(cfg *domain.EngineConfig) *StreamSelector {
	return &StreamSelector{
		extract: domain.AudioExtraction{
			Codec:   cfg.AudioCodec,
			Bitrate: cfg.AudioBitrate,
		},
	}
}

// Select resolves a selection for the request.
//
// Fallback order for audio-only requests: best audio-only stream by bitrate,
// then best audio-capable stream. Container and quality preferences are
// ignored; the result is always tagged for audio extraction.
//
// Fallback order for video requests with quality=best: best combined stream
// in the requested container, then the unconstrained best.
//
// Fallback order for a specific height ceiling H: best video-only stream with
// height<=H merged with the best audio-only stream, then best combined stream
// with height<=H, then the unconstrained best.
//
// Streams of equal height are ranked by approximate bitrate, higher first.
func (s *StreamSelector) Select(catalog *domain.Catalog, req domain.DownloadRequest) (domain.SelectionExpression, error) {
	if catalog == nil || len(catalog.Streams) == 0 {
		return domain.SelectionExpression{}, &domain.Failure{
			Kind:    domain.FailureNoStream,
			Message: fmt.Sprintf("no streams available for %s", req.URL),
		}
	}

	if req.AudioOnly {
		return s.selectAudio(catalog, req)
	}

	ceiling := req.Quality.HeightCeiling()
	if ceiling == 0 {
		if c := bestCombined(catalog.Streams, string(req.Container), 0); c != nil {
			return combinedSelection(c), nil
		}
		return s.fallbackBest(catalog, req)
	}

	if v, a := bestVideoOnly(catalog.Streams, ceiling), bestAudioOnly(catalog.Streams); v != nil && a != nil {
		return domain.SelectionExpression{
			Kind:      domain.SelectionMerged,
			Video:     v,
			Audio:     a,
			Container: string(req.Container),
		}, nil
	}
	if c := bestCombined(catalog.Streams, "", ceiling); c != nil {
		return combinedSelection(c), nil
	}
	return s.fallbackBest(catalog, req)
}

// selectAudio picks the audio source for an audio-only request
func (s *StreamSelector) selectAudio(catalog *domain.Catalog, req domain.DownloadRequest) (domain.SelectionExpression, error) {
	src := bestAudioOnly(catalog.Streams)
	if src == nil {
		src = bestByBitrate(catalog.Streams, func(d domain.StreamDescriptor) bool { return d.HasAudio })
	}
	if src == nil {
		return domain.SelectionExpression{}, &domain.Failure{
			Kind:    domain.FailureNoStream,
			Message: fmt.Sprintf("no audio stream available for %s", req.URL),
		}
	}
	sel := combinedSelection(src)
	sel.Extract = &domain.AudioExtraction{Codec: s.extract.Codec, Bitrate: s.extract.Bitrate}
	return sel, nil
}

// fallbackBest is the last resort shared by every video path: best combined
// stream in any container, then best video-only plus best audio-only merged.
func (s *StreamSelector) fallbackBest(catalog *domain.Catalog, req domain.DownloadRequest) (domain.SelectionExpression, error) {
	if c := bestCombined(catalog.Streams, "", 0); c != nil {
		return combinedSelection(c), nil
	}
	if v, a := bestVideoOnly(catalog.Streams, 0), bestAudioOnly(catalog.Streams); v != nil && a != nil {
		return domain.SelectionExpression{
			Kind:      domain.SelectionMerged,
			Video:     v,
			Audio:     a,
			Container: string(req.Container),
		}, nil
	}
	// Degenerate catalogs (video with no audio track anywhere, or vice versa)
	// still get the best single stream rather than nothing.
	if d := bestByBitrate(catalog.Streams, func(d domain.StreamDescriptor) bool { return d.HasVideo || d.HasAudio }); d != nil {
		return combinedSelection(d), nil
	}
	return domain.SelectionExpression{}, &domain.Failure{
		Kind:    domain.FailureNoStream,
		Message: fmt.Sprintf("no usable stream available for %s", req.URL),
	}
}

func combinedSelection(d *domain.StreamDescriptor) domain.SelectionExpression {
	return domain.SelectionExpression{
		Kind:      domain.SelectionCombined,
		Stream:    d,
		Container: d.Container,
	}
}

// bestCombined returns the best stream carrying both audio and video,
// optionally constrained to a container and a height ceiling
func bestCombined(streams []domain.StreamDescriptor, container string, ceiling int) *domain.StreamDescriptor {
	return best(streams, func(d domain.StreamDescriptor) bool {
		if !d.HasVideo || !d.HasAudio {
			return false
		}
		if container != "" && d.Container != container {
			return false
		}
		if ceiling > 0 && d.Height > ceiling {
			return false
		}
		return true
	})
}

// bestVideoOnly returns the best video-only stream under the ceiling
func bestVideoOnly(streams []domain.StreamDescriptor, ceiling int) *domain.StreamDescriptor {
	return best(streams, func(d domain.StreamDescriptor) bool {
		if !d.HasVideo || d.HasAudio {
			return false
		}
		return ceiling == 0 || d.Height <= ceiling
	})
}

// bestAudioOnly returns the audio-only stream with the highest bitrate
func bestAudioOnly(streams []domain.StreamDescriptor) *domain.StreamDescriptor {
	return bestByBitrate(streams, func(d domain.StreamDescriptor) bool {
		return d.HasAudio && !d.HasVideo
	})
}

// best ranks by height first, then bitrate. The first of equals wins, so
// catalog order is the final tie-break and selection stays deterministic.
func best(streams []domain.StreamDescriptor, match func(domain.StreamDescriptor) bool) *domain.StreamDescriptor {
	var winner *domain.StreamDescriptor
	for i := range streams {
		d := &streams[i]
		if !match(*d) {
			continue
		}
		if winner == nil || d.Height > winner.Height ||
			(d.Height == winner.Height && d.Bitrate > winner.Bitrate) {
			winner = d
		}
	}
	return winner
}

// bestByBitrate ranks matching streams by bitrate alone
func bestByBitrate(streams []domain.StreamDescriptor, match func(domain.StreamDescriptor) bool) *domain.StreamDescriptor {
	var winner *domain.StreamDescriptor
	for i := range streams {
		d := &streams[i]
		if !match(*d) {
			continue
		}
		if winner == nil || d.Bitrate > winner.Bitrate {
			winner = d
		}
	}
	return winner
}
