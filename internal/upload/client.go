package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vidcast/vidcast/internal/models"
)

// APIClient talks to the application backend: it issues upload credentials
// and persists video records.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient builds a client for the backend rooted at baseURL.
func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// IssueVideoUploadCredential implements CredentialIssuer.
func (c *APIClient) IssueVideoUploadCredential(ctx context.Context) (models.UploadCredential, error) {
	var cred models.UploadCredential
	err := c.post(ctx, "/api/v1/uploads/video", struct{}{}, &cred)
	return cred, err
}

// IssueThumbnailUploadCredential implements CredentialIssuer.
func (c *APIClient) IssueThumbnailUploadCredential(ctx context.Context, assetID string) (models.UploadCredential, error) {
	var cred models.UploadCredential
	err := c.post(ctx, "/api/v1/uploads/thumbnail", thumbnailCredentialRequest{VideoID: assetID}, &cred)
	return cred, err
}

// SaveVideoDetails implements MetadataStore.
func (c *APIClient) SaveVideoDetails(ctx context.Context, record models.VideoRecord) error {
	return c.post(ctx, "/api/v1/videos", record, nil)
}

// GetVideo fetches a persisted record together with its playback URL.
func (c *APIClient) GetVideo(ctx context.Context, assetID string) (VideoDetails, error) {
	var details VideoDetails
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/videos/"+assetID, nil)
	if err != nil {
		return details, fmt.Errorf("build request: %w", err)
	}
	err = c.do(req, &details)
	return details, err
}

// VideoDetails is the backend's view of a stored video.
type VideoDetails struct {
	Video       models.VideoRecord `json:"video"`
	PlaybackURL string             `json:"playbackUrl"`
}

type thumbnailCredentialRequest struct {
	VideoID string `json:"videoId"`
}

func (c *APIClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
