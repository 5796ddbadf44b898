package form

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vidcast/vidcast/internal/media"
	"github.com/vidcast/vidcast/internal/models"
	"github.com/vidcast/vidcast/internal/upload"
)

const (
	maxVideoSize     = 500 << 20
	maxThumbnailSize = 10 << 20
)

type countingPreviews struct {
	mu   sync.Mutex
	n    int
	live map[string]bool
}

func (p *countingPreviews) Create(asset *media.Asset) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live == nil {
		p.live = make(map[string]bool)
	}
	p.n++
	u := "preview://" + asset.Name + "/" + string(rune('a'+p.n))
	p.live[u] = true
	return u, nil
}

func (p *countingPreviews) Revoke(u string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.live, u)
}

func (p *countingPreviews) liveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

type backend struct {
	mu          sync.Mutex
	issued      int
	puts        []string
	sizes       []int64
	records     []models.VideoRecord
	failPutName string
}

func (b *backend) IssueVideoUploadCredential(ctx context.Context) (models.UploadCredential, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issued++
	return models.UploadCredential{AssetID: "vid-42", TargetURL: "https://store/videos/vid-42/source", AccessToken: "v-key"}, nil
}

func (b *backend) IssueThumbnailUploadCredential(ctx context.Context, assetID string) (models.UploadCredential, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issued++
	return models.UploadCredential{
		TargetURL:   "https://store/thumbnails/" + assetID,
		AccessToken: "t-key",
		CDNURL:      "https://cdn.example.com/thumbnails/" + assetID,
	}, nil
}

func (b *backend) Put(ctx context.Context, cred models.UploadCredential, asset *media.Asset) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts = append(b.puts, asset.Name)
	b.sizes = append(b.sizes, asset.SizeBytes)
	if asset.Name == b.failPutName {
		return &upload.StatusError{StatusCode: 500, Message: "storage unavailable"}
	}
	return nil
}

func (b *backend) SaveVideoDetails(ctx context.Context, record models.VideoRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, record)
	return nil
}

type recordingRouter struct {
	paths []string
}

func (r *recordingRouter) Navigate(assetID string) {
	r.paths = append(r.paths, DetailPath(assetID))
}

type fixture struct {
	video     *media.Slot
	thumbnail *media.Slot
	previews  *countingPreviews
	backend   *backend
	router    *recordingRouter
	form      *Controller
}

func newFixture() *fixture {
	previews := &countingPreviews{}
	f := &fixture{
		video:     media.NewSlot(media.SlotOptions{Kind: media.SlotVideo, MaxSize: maxVideoSize, Accept: "video/*", Previews: previews}),
		thumbnail: media.NewSlot(media.SlotOptions{Kind: media.SlotImage, MaxSize: maxThumbnailSize, Accept: "image/*", Previews: previews}),
		previews:  previews,
		backend:   &backend{},
		router:    &recordingRouter{},
	}
	orchestrator := upload.NewOrchestrator(f.backend, f.backend, f.backend)
	f.form = NewController(f.video, f.thumbnail, orchestrator, f.router, nil)
	return f
}

func sizedAsset(name, mime string, size int64) *media.Asset {
	return media.NewAsset(name, mime, size, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("")), nil
	})
}

func TestSubmitEndToEnd(t *testing.T) {
	f := newFixture()

	video := sizedAsset("demo.mp4", "video/mp4", 50<<20)
	if err := f.video.SelectFile(video); err != nil {
		t.Fatalf("select video: %v", err)
	}
	f.video.ReportDuration(12.5)
	if err := f.thumbnail.SelectFile(sizedAsset("demo.png", "image/png", 2<<20)); err != nil {
		t.Fatalf("select thumbnail: %v", err)
	}

	id, err := f.form.Submit(context.Background(), Fields{Title: "Demo", Description: "A demo", Visibility: "public"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != "vid-42" {
		t.Fatalf("unexpected id %q", id)
	}

	if len(f.backend.puts) != 2 || f.backend.sizes[0] != 50<<20 || f.backend.sizes[1] != 2<<20 {
		t.Fatalf("unexpected puts %v %v", f.backend.puts, f.backend.sizes)
	}
	want := models.VideoRecord{
		AssetID:      "vid-42",
		ThumbnailURL: "https://cdn.example.com/thumbnails/vid-42",
		Title:        "Demo",
		Description:  "A demo",
		Visibility:   models.VisibilityPublic,
		Duration:     12.5,
	}
	if len(f.backend.records) != 1 || f.backend.records[0] != want {
		t.Fatalf("unexpected records %+v", f.backend.records)
	}
	if len(f.router.paths) != 1 || f.router.paths[0] != "/video/vid-42" {
		t.Fatalf("unexpected navigation %v", f.router.paths)
	}
	if f.video.Populated() || f.thumbnail.Populated() {
		t.Fatal("slots not cleared after success")
	}
	if f.previews.liveCount() != 0 {
		t.Fatalf("previews not revoked: %d", f.previews.liveCount())
	}
	if f.form.State() != StateIdle || f.form.Error() != "" {
		t.Fatalf("unexpected form state %q error %q", f.form.State(), f.form.Error())
	}
}

func TestSubmitWithoutThumbnail(t *testing.T) {
	f := newFixture()
	if err := f.video.SelectFile(sizedAsset("demo.mp4", "video/mp4", 1024)); err != nil {
		t.Fatalf("select video: %v", err)
	}

	_, err := f.form.Submit(context.Background(), Fields{Title: "Demo", Description: "A demo"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Message != MsgMissingMedia {
		t.Fatalf("expected missing media error, got %v", err)
	}
	if f.form.Error() != MsgMissingMedia {
		t.Fatalf("unexpected message %q", f.form.Error())
	}
	if f.backend.issued != 0 {
		t.Fatal("credentials issued for an incomplete form")
	}
	if !f.video.Populated() {
		t.Fatal("video selection lost on validation failure")
	}
}

func TestSubmitFieldValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		want   string
	}{
		{name: "blank title", fields: Fields{Title: "   ", Description: "d"}, want: MsgMissingDetails},
		{name: "blank description", fields: Fields{Title: "t", Description: ""}, want: MsgMissingDetails},
		{name: "bad visibility", fields: Fields{Title: "t", Description: "d", Visibility: "friends"}, want: MsgInvalidVisibility},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_ = f.video.SelectFile(sizedAsset("v.mp4", "video/mp4", 10))
			_ = f.thumbnail.SelectFile(sizedAsset("t.png", "image/png", 10))

			_, err := f.form.Submit(context.Background(), tt.fields)
			if err == nil || err.Error() != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
			if f.backend.issued != 0 {
				t.Fatal("uploader called for invalid form")
			}
		})
	}
}

func TestSubmitThumbnailTransferFailure(t *testing.T) {
	f := newFixture()
	f.backend.failPutName = "demo.png"
	_ = f.video.SelectFile(sizedAsset("demo.mp4", "video/mp4", 50<<20))
	_ = f.thumbnail.SelectFile(sizedAsset("demo.png", "image/png", 2<<20))

	_, err := f.form.Submit(context.Background(), Fields{Title: "Demo", Description: "A demo"})
	if !errors.Is(err, upload.ErrUploadTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	var upErr *upload.Error
	if !errors.As(err, &upErr) || upErr.Phase != upload.PhaseThumbnailTransfer || upErr.AssetID != "vid-42" {
		t.Fatalf("unexpected error details %+v", upErr)
	}
	if f.form.Error() != MsgUploadFailed {
		t.Fatalf("unexpected message %q", f.form.Error())
	}
	if len(f.backend.records) != 0 || len(f.router.paths) != 0 {
		t.Fatal("record persisted or navigation happened after failure")
	}
	if !f.video.Populated() || !f.thumbnail.Populated() || f.form.State() != StateIdle {
		t.Fatal("form should stay editable with selections intact")
	}

	f.form.ClearError()
	if f.form.Error() != "" {
		t.Fatal("ClearError did not clear the message")
	}
}

type blockingUploader struct {
	started chan struct{}
	release chan struct{}
	calls   int
}

func (b *blockingUploader) Upload(ctx context.Context, req upload.Request) (string, error) {
	b.calls++
	close(b.started)
	<-b.release
	return "vid-1", nil
}

func TestSubmitIsSingleFlight(t *testing.T) {
	video := media.NewSlot(media.SlotOptions{Kind: media.SlotVideo})
	thumb := media.NewSlot(media.SlotOptions{Kind: media.SlotImage})
	_ = video.SelectFile(sizedAsset("v.mp4", "video/mp4", 1))
	_ = thumb.SelectFile(sizedAsset("t.png", "image/png", 1))

	uploader := &blockingUploader{started: make(chan struct{}), release: make(chan struct{})}
	form := NewController(video, thumb, uploader, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := form.Submit(context.Background(), Fields{Title: "t", Description: "d"})
		done <- err
	}()

	<-uploader.started
	if form.State() != StateSubmitting {
		t.Fatalf("unexpected state %q", form.State())
	}
	if _, err := form.Submit(context.Background(), Fields{Title: "t", Description: "d"}); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(uploader.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first Submit() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("submission did not finish")
	}
	if uploader.calls != 1 {
		t.Fatalf("expected one upload, got %d", uploader.calls)
	}
}

func TestSubmitDurationFallsBackToZero(t *testing.T) {
	f := newFixture()
	_ = f.video.SelectFile(sizedAsset("v.mp4", "video/mp4", 10))
	_ = f.thumbnail.SelectFile(sizedAsset("t.png", "image/png", 10))

	if _, err := f.form.Submit(context.Background(), Fields{Title: "t", Description: "d", Visibility: "private"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rec := f.backend.records[0]
	if rec.Duration != 0 || rec.Visibility != models.VisibilityPrivate {
		t.Fatalf("unexpected record %+v", rec)
	}
}
