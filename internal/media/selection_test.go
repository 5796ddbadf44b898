package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"
)

type stubPreviews struct {
	mu      sync.Mutex
	next    int
	live    map[string]bool
	revoked []string
	err     error
}

func newStubPreviews() *stubPreviews {
	return &stubPreviews{live: make(map[string]bool)}
}

func (s *stubPreviews) Create(asset *Asset) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.next++
	u := fmt.Sprintf("preview://%d", s.next)
	s.live[u] = true
	return u, nil
}

func (s *stubPreviews) Revoke(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, u)
	s.revoked = append(s.revoked, u)
}

func (s *stubPreviews) liveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

type proberFunc func(ctx context.Context, asset *Asset) (float64, error)

func (f proberFunc) Probe(ctx context.Context, asset *Asset) (float64, error) {
	return f(ctx, asset)
}

func TestSlotSelectFileRejectsOversizeAndKeepsState(t *testing.T) {
	previews := newStubPreviews()
	slot := NewSlot(SlotOptions{Kind: SlotImage, MaxSize: 100, Previews: previews})

	first := FromBytes("thumb.png", "image/png", make([]byte, 50))
	if err := slot.SelectFile(first); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	previewBefore := slot.PreviewURL()

	err := slot.SelectFile(FromBytes("big.png", "image/png", make([]byte, 101)))
	if !errors.Is(err, &ValidationError{Kind: TooLarge}) {
		t.Fatalf("expected TooLarge, got %v", err)
	}

	if slot.Asset() != first {
		t.Fatal("rejected selection replaced the current asset")
	}
	if slot.PreviewURL() != previewBefore {
		t.Fatalf("preview changed: got %q want %q", slot.PreviewURL(), previewBefore)
	}
	if previews.liveCount() != 1 {
		t.Fatalf("expected one live preview, got %d", previews.liveCount())
	}
}

func TestSlotSelectFileRejectsWrongType(t *testing.T) {
	slot := NewSlot(SlotOptions{Kind: SlotVideo, Accept: "video/*", Previews: newStubPreviews()})

	err := slot.SelectFile(FromBytes("doc.pdf", "application/pdf", []byte("x")))
	if !errors.Is(err, &ValidationError{Kind: UnsupportedType}) {
		t.Fatalf("expected UnsupportedType, got %v", err)
	}
	if slot.Populated() {
		t.Fatal("slot should remain empty")
	}
}

func TestSlotReplacementRevokesPreviousPreview(t *testing.T) {
	previews := newStubPreviews()
	slot := NewSlot(SlotOptions{Kind: SlotImage, Previews: previews})

	if err := slot.SelectFile(FromBytes("a.png", "image/png", []byte("a"))); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	old := slot.PreviewURL()
	if err := slot.SelectFile(FromBytes("b.png", "image/png", []byte("b"))); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}

	if len(previews.revoked) != 1 || previews.revoked[0] != old {
		t.Fatalf("expected %q to be revoked, got %v", old, previews.revoked)
	}
	if previews.liveCount() != 1 {
		t.Fatalf("expected one live preview, got %d", previews.liveCount())
	}
}

func TestSlotResetIsIdempotent(t *testing.T) {
	previews := newStubPreviews()
	slot := NewSlot(SlotOptions{Kind: SlotVideo, Previews: previews})

	asset := FromBytes("clip.webm", "video/webm", []byte("data"))
	asset.Duration = 4
	if err := slot.SelectFile(asset); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}

	slot.Reset()
	slot.Reset()

	if slot.Populated() || slot.PreviewURL() != "" || slot.Duration() != 0 {
		t.Fatal("slot not cleared after reset")
	}
	if len(previews.revoked) != 1 {
		t.Fatalf("expected exactly one revoke, got %d", len(previews.revoked))
	}
	if previews.liveCount() != 0 {
		t.Fatalf("dangling previews: %d", previews.liveCount())
	}
}

func TestSlotUsesKnownDuration(t *testing.T) {
	calls := 0
	slot := NewSlot(SlotOptions{
		Kind: SlotVideo,
		Prober: proberFunc(func(ctx context.Context, asset *Asset) (float64, error) {
			calls++
			return 99, nil
		}),
	})

	asset := FromBytes("screen-recording.webm", "video/webm", []byte("x"))
	asset.Duration = 12.5
	if err := slot.SelectFile(asset); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	<-slot.ProbeSettled()

	if slot.Duration() != 12.5 {
		t.Fatalf("unexpected duration %v", slot.Duration())
	}
	if calls != 0 {
		t.Fatalf("prober should not run for known durations, ran %d times", calls)
	}
}

func TestSlotProbesDurationAsynchronously(t *testing.T) {
	release := make(chan struct{})
	slot := NewSlot(SlotOptions{
		Kind: SlotVideo,
		Prober: proberFunc(func(ctx context.Context, asset *Asset) (float64, error) {
			<-release
			return 31.2, nil
		}),
	})

	if err := slot.SelectFile(FromBytes("clip.mp4", "video/mp4", []byte("x"))); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	if slot.Duration() != 0 {
		t.Fatalf("duration known before probe finished: %v", slot.Duration())
	}

	close(release)
	select {
	case <-slot.ProbeSettled():
	case <-time.After(time.Second):
		t.Fatal("probe did not settle")
	}
	if slot.Duration() != 31.2 {
		t.Fatalf("unexpected duration %v", slot.Duration())
	}
}

func TestSlotStaleProbeIgnored(t *testing.T) {
	release := make(chan struct{})
	slot := NewSlot(SlotOptions{
		Kind: SlotVideo,
		Prober: proberFunc(func(ctx context.Context, asset *Asset) (float64, error) {
			if asset.Name == "old.mp4" {
				<-release
				return 60, nil
			}
			return 0, ErrProbeUnsupported
		}),
	})

	if err := slot.SelectFile(FromBytes("old.mp4", "video/mp4", []byte("x"))); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	stale := slot.ProbeSettled()

	if err := slot.SelectFile(FromBytes("new.mp4", "video/mp4", []byte("y"))); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	close(release)
	<-stale
	<-slot.ProbeSettled()

	if slot.Duration() != 0 {
		t.Fatalf("stale probe leaked into new selection: %v", slot.Duration())
	}
}

func TestSlotReportDurationIgnoresTransientValues(t *testing.T) {
	slot := NewSlot(SlotOptions{Kind: SlotVideo})
	if err := slot.SelectFile(FromBytes("clip.mp4", "video/mp4", []byte("x"))); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}

	slot.ReportDuration(8)
	slot.ReportDuration(0)
	slot.ReportDuration(math.NaN())
	slot.ReportDuration(-1)

	if slot.Duration() != 8 {
		t.Fatalf("unexpected duration %v", slot.Duration())
	}

	slot.ReportDuration(9.5)
	if slot.Duration() != 9.5 {
		t.Fatalf("last valid report should win, got %v", slot.Duration())
	}
}

func TestSlotReportDurationOnEmptySlot(t *testing.T) {
	slot := NewSlot(SlotOptions{Kind: SlotVideo})
	slot.ReportDuration(5)
	if slot.Duration() != 0 {
		t.Fatalf("empty slot should not record a duration, got %v", slot.Duration())
	}
}

func TestSlotPreviewFailure(t *testing.T) {
	previews := newStubPreviews()
	previews.err = errors.New("disk full")
	slot := NewSlot(SlotOptions{Kind: SlotImage, Previews: previews})

	if err := slot.SelectFile(FromBytes("a.png", "image/png", []byte("a"))); err == nil {
		t.Fatal("expected preview error")
	}
	if slot.Populated() {
		t.Fatal("slot should be empty after preview failure")
	}
}

func TestSlotPreviewFailureKeepsPreviousSelection(t *testing.T) {
	previews := newStubPreviews()
	slot := NewSlot(SlotOptions{Kind: SlotImage, Previews: previews})

	first := FromBytes("first.png", "image/png", []byte("first"))
	if err := slot.SelectFile(first); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	firstURL := slot.PreviewURL()

	previews.mu.Lock()
	previews.err = errors.New("disk full")
	previews.mu.Unlock()

	if err := slot.SelectFile(FromBytes("second.png", "image/png", []byte("second"))); err == nil {
		t.Fatal("expected preview error")
	}
	if slot.Asset() != first || slot.PreviewURL() != firstURL {
		t.Fatalf("previous selection lost: %v %q", slot.Asset(), slot.PreviewURL())
	}
	if len(previews.revoked) != 0 || previews.liveCount() != 1 {
		t.Fatalf("previous preview disturbed: revoked=%v live=%d", previews.revoked, previews.liveCount())
	}
}
