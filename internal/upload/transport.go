package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vidcast/vidcast/internal/media"
	"github.com/vidcast/vidcast/internal/models"
)

// AccessKeyHeader carries the upload credential's access token.
const AccessKeyHeader = "AccessKey"

// ProgressFunc receives transfer progress for one asset.
type ProgressFunc func(name string, sent, total int64)

// ProgressReader wraps an io.Reader to report progress.
type ProgressReader struct {
	reader   io.Reader
	name     string
	total    int64
	read     int64
	progress ProgressFunc
}

// NewProgressReader reports every read of r to fn.
func NewProgressReader(r io.Reader, name string, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{reader: r, name: name, total: total, progress: fn}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.read += int64(n)
	if pr.progress != nil && n > 0 {
		pr.progress(pr.name, pr.read, pr.total)
	}
	return n, err
}

// HTTPTransport streams assets to credential target URLs with a PUT request.
type HTTPTransport struct {
	client   *http.Client
	progress ProgressFunc
}

// NewHTTPTransport constructs a transport. A nil client uses http.DefaultClient.
func NewHTTPTransport(client *http.Client, progress ProgressFunc) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client, progress: progress}
}

// Put uploads the asset bytes. Any non-2xx response is an error.
func (t *HTTPTransport) Put(ctx context.Context, cred models.UploadCredential, asset *media.Asset) error {
	if asset == nil {
		return &media.ValidationError{Kind: media.Missing}
	}
	body, err := asset.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", asset.Name, err)
	}
	defer body.Close()

	var reader io.Reader = body
	if t.progress != nil {
		reader = NewProgressReader(body, asset.Name, asset.SizeBytes, t.progress)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cred.TargetURL, reader)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = asset.SizeBytes
	if asset.MimeType != "" {
		req.Header.Set("Content-Type", asset.MimeType)
	}
	req.Header.Set(AccessKeyHeader, cred.AccessToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
