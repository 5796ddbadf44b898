package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/vidcast/vidcast/internal/media"
)

// State is the recording session state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
)

// DefaultMimeType tags recordings whose stream does not report a type.
const DefaultMimeType = "video/webm"

// DefaultRecordingName is the file name a finished recording is handed off as.
const DefaultRecordingName = "screen-recording.webm"

// ErrSessionReset is returned by Stop when Reset discarded the session while
// Stop was waiting for it to finish.
var ErrSessionReset = errors.New("recording session was reset")

// ErrDrainIncomplete is returned by Stop alongside the partial recording when
// ctx ended before the stream delivered its last chunk.
var ErrDrainIncomplete = errors.New("recording drain incomplete")

// Recording is the finalized output of a session.
type Recording struct {
	Data       []byte
	MimeType   string
	Duration   float64
	PreviewURL string
	// Truncated is set when the stream's tail was not received.
	Truncated bool
}

// Asset converts the recording into a media asset with a known duration.
func (r *Recording) Asset(name string) *media.Asset {
	if name == "" {
		name = DefaultRecordingName
	}
	asset := media.FromBytes(name, r.MimeType, r.Data)
	asset.Duration = r.Duration
	return asset
}

// Options configures a Controller.
type Options struct {
	Source   Source
	Previews media.PreviewStore
	Audio    bool
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Controller drives a single screen recording session through
// idle -> recording -> stopped and back to idle on Reset.
type Controller struct {
	source   Source
	previews media.PreviewStore
	audio    bool
	now      func() time.Time
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	acquiring bool
	stopping  bool
	session   uint64
	stream    Stream
	started   time.Time
	chunks    [][]byte
	drained   chan struct{}
	recording *Recording
}

// NewController constructs an idle controller.
func NewController(opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		source:   opts.Source,
		previews: opts.Previews,
		audio:    opts.Audio,
		now:      clock,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed returns how long the current session has been recording, or the
// final duration once stopped.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateRecording:
		return c.now().Sub(c.started)
	case StateStopped:
		if c.recording != nil {
			return time.Duration(c.recording.Duration * float64(time.Second))
		}
	}
	return 0
}

// Recording returns the finalized recording while stopped.
func (c *Controller) Recording() *Recording {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Start acquires a capture stream and begins accumulating chunks. It does
// nothing unless the controller is idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle || c.acquiring {
		c.mu.Unlock()
		return nil
	}
	if c.source == nil {
		c.mu.Unlock()
		return &CaptureError{Kind: CaptureUnavailable, Err: ErrCaptureUnavailable}
	}
	c.acquiring = true
	session := c.session
	c.mu.Unlock()

	stream, err := c.source.Acquire(ctx, Constraints{Audio: c.audio})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquiring = false

	if err != nil {
		captureErr := classify(err)
		c.logger.Warn("screen capture not started", slog.String("kind", string(captureErr.Kind)), slog.Any("error", err))
		return captureErr
	}
	if c.session != session {
		stopTracks(stream.Tracks())
		c.logger.Debug("capture acquired after reset; discarding")
		return nil
	}

	c.stream = stream
	c.started = c.now()
	c.chunks = nil
	c.drained = make(chan struct{})
	c.state = StateRecording

	go c.accumulate(session, stream.Chunks(), c.drained)

	c.logger.Info("recording started", slog.Int("tracks", len(stream.Tracks())))
	return nil
}

func (c *Controller) accumulate(session uint64, chunks <-chan []byte, drained chan struct{}) {
	defer close(drained)
	for chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		c.mu.Lock()
		if c.session == session {
			c.chunks = append(c.chunks, chunk)
		}
		c.mu.Unlock()
	}
}

// Stop ends the recording, stops every track and finalizes the recording.
// Stopping an idle controller returns nil, nil; stopping a stopped controller
// returns the existing recording. If ctx ends before every chunk arrives, the
// partial recording is returned with ErrDrainIncomplete.
func (c *Controller) Stop(ctx context.Context) (*Recording, error) {
	c.mu.Lock()
	switch {
	case c.state == StateIdle:
		c.mu.Unlock()
		return nil, nil
	case c.state == StateStopped:
		rec := c.recording
		c.mu.Unlock()
		if rec != nil && rec.Truncated {
			return rec, ErrDrainIncomplete
		}
		return rec, nil
	case c.stopping:
		c.mu.Unlock()
		return nil, nil
	}
	c.stopping = true
	session := c.session
	stream := c.stream
	drained := c.drained
	c.mu.Unlock()

	if err := stopTracks(stream.Tracks()); err != nil {
		c.logger.Warn("stopping capture tracks", slog.Any("error", err))
	}

	truncated := false
	select {
	case <-drained:
	case <-ctx.Done():
		truncated = true
		c.logger.Warn("recording drain cut short", slog.Any("error", ctx.Err()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopping = false

	if c.session != session {
		return nil, ErrSessionReset
	}

	mimeType := stream.MimeType()
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	rec := &Recording{
		Data:      bytes.Join(c.chunks, nil),
		MimeType:  mimeType,
		Duration:  c.now().Sub(c.started).Seconds(),
		Truncated: truncated,
	}
	if c.previews != nil {
		previewURL, err := c.previews.Create(rec.Asset(""))
		if err != nil {
			c.logger.Warn("recording preview unavailable", slog.Any("error", err))
		}
		rec.PreviewURL = previewURL
	}

	// late chunks from an interrupted drain must not reach the next session
	c.session++
	c.chunks = nil
	c.stream = nil
	c.recording = rec
	c.state = StateStopped

	c.logger.Info("recording stopped",
		slog.Int("bytes", len(rec.Data)),
		slog.Float64("duration_seconds", rec.Duration),
		slog.Bool("truncated", truncated),
	)
	if truncated {
		return rec, ErrDrainIncomplete
	}
	return rec, nil
}

// Reset discards the session from any state: the preview is revoked, any live
// tracks are stopped and the controller returns to idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording != nil && c.recording.PreviewURL != "" && c.previews != nil {
		c.previews.Revoke(c.recording.PreviewURL)
	}
	if c.stream != nil {
		if err := stopTracks(c.stream.Tracks()); err != nil {
			c.logger.Warn("stopping capture tracks", slog.Any("error", err))
		}
	}

	c.session++
	c.stream = nil
	c.chunks = nil
	c.drained = nil
	c.recording = nil
	c.started = time.Time{}
	c.state = StateIdle
}

func stopTracks(tracks []Track) error {
	var result *multierror.Error
	for _, track := range tracks {
		if err := track.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
