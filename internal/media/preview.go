package media

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// PreviewStore hands out preview URLs for assets. Every URL returned by Create
// must eventually be passed to Revoke exactly once by its owner.
type PreviewStore interface {
	Create(asset *Asset) (string, error)
	Revoke(previewURL string)
}

// TempPreviews materialises previews as files in a private temp directory so
// a local player can open them. Revoking a preview deletes its file.
type TempPreviews struct {
	dir string

	mu   sync.Mutex
	live map[string]string // url -> path
}

// NewTempPreviews creates the preview directory under dir (os.TempDir when empty).
func NewTempPreviews(dir string) (*TempPreviews, error) {
	root, err := os.MkdirTemp(dir, "vidcast-preview-*")
	if err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	return &TempPreviews{dir: root, live: make(map[string]string)}, nil
}

// Create links (or copies) the asset into the preview directory.
func (p *TempPreviews) Create(asset *Asset) (string, error) {
	if asset == nil {
		return "", errors.New("preview: nil asset")
	}

	ext := filepath.Ext(asset.Name)
	target := filepath.Join(p.dir, uuid.NewString()+ext)

	if src := asset.Path(); src != "" {
		if abs, err := filepath.Abs(src); err == nil {
			src = abs
		}
		if err := os.Symlink(src, target); err != nil {
			if err := p.copyInto(target, asset); err != nil {
				return "", err
			}
		}
	} else if err := p.copyInto(target, asset); err != nil {
		return "", err
	}

	previewURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String()

	p.mu.Lock()
	p.live[previewURL] = target
	p.mu.Unlock()

	return previewURL, nil
}

func (p *TempPreviews) copyInto(target string, asset *Asset) error {
	src, err := asset.Open()
	if err != nil {
		return fmt.Errorf("preview: open asset: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("preview: create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return fmt.Errorf("preview: write file: %w", err)
	}
	return dst.Close()
}

// Revoke deletes the preview file. Unknown URLs are ignored.
func (p *TempPreviews) Revoke(previewURL string) {
	p.mu.Lock()
	target, ok := p.live[previewURL]
	delete(p.live, previewURL)
	p.mu.Unlock()

	if ok {
		_ = os.Remove(target)
	}
}

// Live returns the number of previews that have not been revoked.
func (p *TempPreviews) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Close revokes every outstanding preview and removes the directory.
func (p *TempPreviews) Close() error {
	p.mu.Lock()
	live := p.live
	p.live = make(map[string]string)
	p.mu.Unlock()

	var result *multierror.Error
	for _, target := range live {
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, err)
		}
	}
	if err := os.RemoveAll(p.dir); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// PathFromURL converts a preview URL produced by TempPreviews back to a path.
func PathFromURL(previewURL string) string {
	u, err := url.Parse(previewURL)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return filepath.FromSlash(strings.TrimPrefix(u.Path, "//"))
}
