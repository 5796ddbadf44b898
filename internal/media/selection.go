package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// SlotKind distinguishes the two selection slots of the upload form.
type SlotKind string

const (
	SlotVideo SlotKind = "video"
	SlotImage SlotKind = "image"
)

// SlotOptions configures a Slot.
type SlotOptions struct {
	Kind         SlotKind
	MaxSize      int64
	Accept       string
	Previews     PreviewStore
	Prober       DurationProber
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// Slot holds one selected media asset together with its preview handle and,
// for videos, the most recently reported duration.
type Slot struct {
	opts   SlotOptions
	logger *slog.Logger

	mu         sync.Mutex
	asset      *Asset
	previewURL string
	duration   float64
	generation uint64
	settled    chan struct{}
}

var closedSettled = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// NewSlot constructs an empty slot.
func NewSlot(opts SlotOptions) *Slot {
	if opts.Kind == "" {
		opts.Kind = SlotVideo
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Slot{
		opts:    opts,
		logger:  logger.With(slog.String("slot", string(opts.Kind))),
		settled: closedSettled,
	}
}

// Kind returns the slot kind.
func (s *Slot) Kind() SlotKind { return s.opts.Kind }

// MaxSize returns the configured size limit in bytes.
func (s *Slot) MaxSize() int64 { return s.opts.MaxSize }

// SelectFile validates asset and, when it passes, makes it the slot's current
// selection. A rejected asset or a failed preview leaves the previous
// selection untouched.
func (s *Slot) SelectFile(asset *Asset) error {
	if err := Validate(asset, s.opts.MaxSize); err != nil {
		s.logger.Warn("file rejected", slog.String("reason", err.Error()))
		return err
	}
	if err := ValidateType(asset, s.opts.Accept); err != nil {
		s.logger.Warn("file rejected", slog.String("reason", err.Error()))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// the new preview exists before the old one is revoked, but is not
	// published until the selection commits
	var previewURL string
	if s.opts.Previews != nil {
		var err error
		previewURL, err = s.opts.Previews.Create(asset)
		if err != nil {
			s.logger.Error("create preview failed", slog.String("file", asset.Name), slog.Any("error", err))
			return fmt.Errorf("create preview for %s: %w", asset.Name, err)
		}
	}

	s.clearLocked()
	s.previewURL = previewURL
	s.asset = asset

	switch {
	case validDuration(asset.Duration):
		s.duration = asset.Duration
	case s.opts.Kind == SlotVideo && s.opts.Prober != nil:
		settled := make(chan struct{})
		s.settled = settled
		go s.probe(s.generation, asset, settled)
	}

	s.logger.Debug("file selected",
		slog.String("file", asset.Name),
		slog.String("mime", asset.MimeType),
		slog.Int64("size", asset.SizeBytes),
	)
	return nil
}

func (s *Slot) probe(generation uint64, asset *Asset, settled chan struct{}) {
	defer close(settled)

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ProbeTimeout)
	defer cancel()

	seconds, err := s.opts.Prober.Probe(ctx, asset)
	if err != nil {
		if !errors.Is(err, ErrProbeUnsupported) {
			s.logger.Warn("duration probe failed", slog.String("file", asset.Name), slog.Any("error", err))
		}
		return
	}
	s.report(generation, seconds)
}

// ReportDuration records a duration observed for the current selection.
// Zero, negative and NaN values are treated as "not yet known" and ignored.
func (s *Slot) ReportDuration(seconds float64) {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()
	s.report(generation, seconds)
}

func (s *Slot) report(generation uint64, seconds float64) {
	if !validDuration(seconds) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asset == nil || s.generation != generation {
		return
	}
	s.duration = seconds
}

// Reset revokes the preview and clears the selection. Calling it on an empty
// slot does nothing.
func (s *Slot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Slot) clearLocked() {
	if s.previewURL != "" && s.opts.Previews != nil {
		s.opts.Previews.Revoke(s.previewURL)
	}
	s.previewURL = ""
	s.asset = nil
	s.duration = 0
	s.generation++
	s.settled = closedSettled
}

// Asset returns the current selection or nil.
func (s *Slot) Asset() *Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset
}

// PreviewURL returns the live preview handle for the current selection.
func (s *Slot) PreviewURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewURL
}

// Duration returns the last known duration in seconds, zero when unknown.
func (s *Slot) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Populated reports whether the slot currently holds an asset.
func (s *Slot) Populated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset != nil
}

// ProbeSettled returns a channel that is closed once the duration probe for
// the current selection has finished. It is already closed when no probe runs.
func (s *Slot) ProbeSettled() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

func validDuration(seconds float64) bool {
	return seconds > 0 && !math.IsNaN(seconds) && !math.IsInf(seconds, 0)
}
