package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/vidcast/vidcast/internal/media"
	"github.com/vidcast/vidcast/internal/models"
)

type stubIssuer struct {
	calls      []string
	videoCred  models.UploadCredential
	videoErr   error
	thumbCred  models.UploadCredential
	thumbErr   error
	thumbAsset string
}

func (s *stubIssuer) IssueVideoUploadCredential(ctx context.Context) (models.UploadCredential, error) {
	s.calls = append(s.calls, "video_credential")
	return s.videoCred, s.videoErr
}

func (s *stubIssuer) IssueThumbnailUploadCredential(ctx context.Context, assetID string) (models.UploadCredential, error) {
	s.calls = append(s.calls, "thumbnail_credential")
	s.thumbAsset = assetID
	return s.thumbCred, s.thumbErr
}

type stubWriter struct {
	calls []models.UploadCredential
	names []string
	errAt int // 1-based put index that fails; 0 never fails
	err   error
}

func (s *stubWriter) Put(ctx context.Context, cred models.UploadCredential, asset *media.Asset) error {
	s.calls = append(s.calls, cred)
	s.names = append(s.names, asset.Name)
	if s.errAt == len(s.calls) {
		return s.err
	}
	return nil
}

type stubStore struct {
	records []models.VideoRecord
	err     error
}

func (s *stubStore) SaveVideoDetails(ctx context.Context, record models.VideoRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func validIssuer() *stubIssuer {
	return &stubIssuer{
		videoCred: models.UploadCredential{AssetID: "vid-123", TargetURL: "https://store/videos/vid-123", AccessToken: "tok-v"},
		thumbCred: models.UploadCredential{TargetURL: "https://store/thumbnails/vid-123", AccessToken: "tok-t", CDNURL: "https://cdn/thumbnails/vid-123"},
	}
}

func testRequest() Request {
	return Request{
		Video:       media.FromBytes("clip.mp4", "video/mp4", []byte("video")),
		Thumbnail:   media.FromBytes("thumb.png", "image/png", []byte("thumb")),
		Title:       "Demo",
		Description: "A demo",
		Visibility:  models.VisibilityPublic,
		Duration:    12.5,
	}
}

func TestOrchestratorUploadSuccess(t *testing.T) {
	issuer := validIssuer()
	writer := &stubWriter{}
	store := &stubStore{}

	id, err := NewOrchestrator(issuer, writer, store).Upload(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if id != "vid-123" {
		t.Fatalf("unexpected asset id %q", id)
	}

	if issuer.thumbAsset != "vid-123" {
		t.Fatalf("thumbnail credential requested for %q", issuer.thumbAsset)
	}
	if len(writer.calls) != 2 || writer.names[0] != "clip.mp4" || writer.names[1] != "thumb.png" {
		t.Fatalf("unexpected puts %v", writer.names)
	}
	if writer.calls[0].AccessToken != "tok-v" || writer.calls[1].AccessToken != "tok-t" {
		t.Fatalf("puts used the wrong credentials: %+v", writer.calls)
	}

	if len(store.records) != 1 {
		t.Fatalf("expected one record, got %d", len(store.records))
	}
	want := models.VideoRecord{
		AssetID:      "vid-123",
		ThumbnailURL: "https://cdn/thumbnails/vid-123",
		Title:        "Demo",
		Description:  "A demo",
		Visibility:   models.VisibilityPublic,
		Duration:     12.5,
	}
	if store.records[0] != want {
		t.Fatalf("unexpected record: got %+v want %+v", store.records[0], want)
	}
}

func TestOrchestratorVideoCredentialFailureStopsPipeline(t *testing.T) {
	tests := []struct {
		name   string
		issuer *stubIssuer
	}{
		{name: "issuer error", issuer: &stubIssuer{videoErr: errors.New("backend down")}},
		{name: "missing asset id", issuer: &stubIssuer{videoCred: models.UploadCredential{TargetURL: "u", AccessToken: "t"}}},
		{name: "missing token", issuer: &stubIssuer{videoCred: models.UploadCredential{AssetID: "a", TargetURL: "u"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &stubWriter{}
			store := &stubStore{}

			_, err := NewOrchestrator(tt.issuer, writer, store).Upload(context.Background(), testRequest())
			if !errors.Is(err, ErrCredentialIssuance) {
				t.Fatalf("expected ErrCredentialIssuance, got %v", err)
			}
			var upErr *Error
			if !errors.As(err, &upErr) || upErr.Phase != PhaseVideoCredential || upErr.AssetID != "" {
				t.Fatalf("unexpected error details %+v", upErr)
			}
			if len(tt.issuer.calls) != 1 || len(writer.calls) != 0 || len(store.records) != 0 {
				t.Fatalf("later phases ran: issuer=%v puts=%d records=%d", tt.issuer.calls, len(writer.calls), len(store.records))
			}
		})
	}
}

func TestOrchestratorFailurePhases(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*stubIssuer, *stubWriter, *stubStore)
		phase     Phase
		sentinel  error
		wantPuts  int
		wantSaves int
	}{
		{
			name:     "video transfer",
			setup:    func(i *stubIssuer, w *stubWriter, s *stubStore) { w.errAt, w.err = 1, &StatusError{StatusCode: 500} },
			phase:    PhaseVideoTransfer,
			sentinel: ErrUploadTransport,
			wantPuts: 1,
		},
		{
			name:     "thumbnail credential",
			setup:    func(i *stubIssuer, w *stubWriter, s *stubStore) { i.thumbCred.CDNURL = "" },
			phase:    PhaseThumbnailCredential,
			sentinel: ErrCredentialIssuance,
			wantPuts: 1,
		},
		{
			name:     "thumbnail transfer",
			setup:    func(i *stubIssuer, w *stubWriter, s *stubStore) { w.errAt, w.err = 2, &StatusError{StatusCode: 403} },
			phase:    PhaseThumbnailTransfer,
			sentinel: ErrUploadTransport,
			wantPuts: 2,
		},
		{
			name:      "persistence",
			setup:     func(i *stubIssuer, w *stubWriter, s *stubStore) { s.err = errors.New("db down") },
			phase:     PhasePersist,
			sentinel:  ErrPersistence,
			wantPuts:  2,
			wantSaves: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer, writer, store := validIssuer(), &stubWriter{}, &stubStore{}
			tt.setup(issuer, writer, store)

			id, err := NewOrchestrator(issuer, writer, store).Upload(context.Background(), testRequest())
			if id != "" {
				t.Fatalf("expected no asset id, got %q", id)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			var upErr *Error
			if !errors.As(err, &upErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if upErr.Phase != tt.phase {
				t.Fatalf("unexpected phase %q", upErr.Phase)
			}
			if upErr.AssetID != "vid-123" {
				t.Fatalf("orphaned asset id not reported: %q", upErr.AssetID)
			}
			if len(writer.calls) != tt.wantPuts || len(store.records) != tt.wantSaves {
				t.Fatalf("unexpected calls: puts=%d saves=%d", len(writer.calls), len(store.records))
			}
		})
	}
}

func TestOrchestratorDefaultsVisibility(t *testing.T) {
	store := &stubStore{}
	req := testRequest()
	req.Visibility = ""

	if _, err := NewOrchestrator(validIssuer(), &stubWriter{}, store).Upload(context.Background(), req); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if store.records[0].Visibility != models.VisibilityPublic {
		t.Fatalf("unexpected visibility %q", store.records[0].Visibility)
	}
}

func TestOrchestratorRequiresBothAssets(t *testing.T) {
	issuer := validIssuer()
	req := testRequest()
	req.Thumbnail = nil

	_, err := NewOrchestrator(issuer, &stubWriter{}, &stubStore{}).Upload(context.Background(), req)
	if !errors.Is(err, &media.ValidationError{Kind: media.Missing}) {
		t.Fatalf("expected missing asset error, got %v", err)
	}
	if len(issuer.calls) != 0 {
		t.Fatal("credentials requested without both assets")
	}
}
