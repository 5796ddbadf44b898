package capture

import "context"

// TrackKind names the media carried by a Track.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Track is a single live capture feed. Stop must be safe to call more than once.
type Track interface {
	Kind() TrackKind
	Stop() error
	Live() bool
}

// Stream is an acquired capture: its tracks plus the encoded chunks they
// produce. Chunks is closed once every track has stopped and the encoder has
// flushed.
type Stream interface {
	Tracks() []Track
	Chunks() <-chan []byte
	MimeType() string
}

// Constraints describes what the caller wants captured.
type Constraints struct {
	Audio bool
}

// Source grants capture streams. Acquire may block while the platform asks the
// user for permission.
type Source interface {
	Acquire(ctx context.Context, constraints Constraints) (Stream, error)
}
