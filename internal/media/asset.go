package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Asset is a candidate media file, either backed by a file on disk or held in
// memory (for example a finished screen recording).
type Asset struct {
	Name      string
	MimeType  string
	SizeBytes int64
	// Duration in seconds when already known by the producer; zero otherwise.
	Duration float64

	path string
	data []byte
	open func() (io.ReadCloser, error)
}

// NewAsset builds an asset from an arbitrary opener. It is mostly useful for
// tests and for sources that stream from somewhere other than disk.
func NewAsset(name, mimeType string, size int64, open func() (io.ReadCloser, error)) *Asset {
	return &Asset{Name: name, MimeType: mimeType, SizeBytes: size, open: open}
}

// FromBytes wraps in-memory bytes as an asset.
func FromBytes(name, mimeType string, data []byte) *Asset {
	return &Asset{Name: name, MimeType: mimeType, SizeBytes: int64(len(data)), data: data}
}

// FromFile stats the file at path and describes it as an asset. The MIME type
// is derived from the file extension.
func FromFile(path string) (*Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat media file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("media file %s is a directory", path)
	}
	return &Asset{
		Name:      filepath.Base(path),
		MimeType:  MimeTypeFromExtension(path),
		SizeBytes: info.Size(),
		path:      path,
	}, nil
}

// Path returns the backing file path, or "" for in-memory assets.
func (a *Asset) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Open returns a fresh reader over the asset bytes.
func (a *Asset) Open() (io.ReadCloser, error) {
	switch {
	case a == nil:
		return nil, errors.New("media asset is nil")
	case a.open != nil:
		return a.open()
	case a.path != "":
		return os.Open(a.path)
	default:
		return io.NopCloser(bytes.NewReader(a.data)), nil
	}
}

// IsVideo reports whether the asset carries a video MIME type.
func (a *Asset) IsVideo() bool {
	return a != nil && strings.HasPrefix(a.MimeType, "video/")
}

var extensionTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// MimeTypeFromExtension maps common media extensions to MIME types, falling
// back to the system registry and finally application/octet-stream.
func MimeTypeFromExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
		return t
	}
	return "application/octet-stream"
}
