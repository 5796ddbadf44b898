package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTempPreviewsInMemoryAsset(t *testing.T) {
	previews, err := NewTempPreviews(t.TempDir())
	if err != nil {
		t.Fatalf("NewTempPreviews() error = %v", err)
	}
	defer previews.Close()

	u, err := previews.Create(FromBytes("screen-recording.webm", "video/webm", []byte("chunk-1chunk-2")))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	path := PathFromURL(u)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read preview: %v", err)
	}
	if string(data) != "chunk-1chunk-2" {
		t.Fatalf("unexpected preview contents %q", data)
	}
	if filepath.Ext(path) != ".webm" {
		t.Fatalf("preview lost extension: %s", path)
	}

	previews.Revoke(u)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("preview file still present after revoke: %v", err)
	}
	if previews.Live() != 0 {
		t.Fatalf("expected no live previews, got %d", previews.Live())
	}

	previews.Revoke(u)
}

func TestTempPreviewsFileAsset(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(src, []byte("video-bytes"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	asset, err := FromFile(src)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	if asset.MimeType != "video/mp4" || asset.SizeBytes != int64(len("video-bytes")) {
		t.Fatalf("unexpected asset %+v", asset)
	}

	previews, err := NewTempPreviews(dir)
	if err != nil {
		t.Fatalf("NewTempPreviews() error = %v", err)
	}

	u, err := previews.Create(asset)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	data, err := os.ReadFile(PathFromURL(u))
	if err != nil || string(data) != "video-bytes" {
		t.Fatalf("unexpected preview read: %q, %v", data, err)
	}

	if err := previews.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source removed by Close: %v", err)
	}
	if previews.Live() != 0 {
		t.Fatalf("expected no live previews after Close, got %d", previews.Live())
	}
}

func TestPathFromURLRejectsOtherSchemes(t *testing.T) {
	if got := PathFromURL("https://cdn.example.com/x.png"); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}
