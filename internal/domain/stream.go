package domain

// StreamDescriptor describes one selectable encoded representation of the
// media, as reported by the catalog. Read-only to the engine.
type StreamDescriptor struct {
	ID        string  `json:"id"`
	Container string  `json:"container"`
	Height    int     `json:"height"` // 0 for audio-only streams
	HasVideo  bool    `json:"has_video"`
	HasAudio  bool    `json:"has_audio"`
	Bitrate   float64 `json:"bitrate"` // approximate, kbit/s
	MediaURL  string  `json:"media_url"`
}

// Catalog is the set of streams available for a source URL together with the
// suggested title, as produced by the external extraction service.
type Catalog struct {
	Title   string
	Streams []StreamDescriptor
}

// SelectionKind distinguishes a single muxed stream from a video/audio pair
// that must be merged after transfer.
type SelectionKind string

const (
	SelectionCombined SelectionKind = "combined"
	SelectionMerged   SelectionKind = "merged"
)

// AudioExtraction describes the post-processing step for audio-only requests.
type AudioExtraction struct {
	Codec   string // e.g. "mp3"
	Bitrate string // e.g. "192k"
}

// SelectionExpression is the resolved choice of streams for one request.
// It always references at least one concrete stream; selection degrades
// through looser fallbacks rather than failing on an unmet preference.
type SelectionExpression struct {
	Kind      SelectionKind
	Stream    *StreamDescriptor // set when Kind == SelectionCombined
	Video     *StreamDescriptor // set when Kind == SelectionMerged
	Audio     *StreamDescriptor // set when Kind == SelectionMerged
	Container string            // extension of the transferred file
	Extract   *AudioExtraction  // non-nil when audio extraction must follow
}
