package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidcast/vidcast/internal/logging"
	"github.com/vidcast/vidcast/internal/models"
	"github.com/vidcast/vidcast/internal/storage"
)

const uploadsRateScope = "uploads"

// UploadHandler issues upload credentials for the two asset slots.
type UploadHandler struct {
	Grants  GrantManager
	Objects ObjectStore
	Limiter RateLimiter
	// PublicBaseURL roots the object write endpoint handed to clients.
	PublicBaseURL string
}

// IssueVideo handles POST /api/v1/uploads/video.
func (h UploadHandler) IssueVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, w, r, uploadsRateScope) {
		return
	}

	if h.Grants == nil {
		logger.Error("upload dependencies unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "upload service unavailable")
		return
	}

	assetID := uuid.NewString()
	key := models.VideoObjectKey(assetID)

	grant, err := h.Grants.Issue(ctx, assetID, key)
	if err != nil {
		logger.Error("issue video upload grant", "videoId", assetID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to issue upload credential")
		return
	}

	logger.Info("video upload credential issued", "videoId", assetID)
	respondJSON(ctx, w, http.StatusOK, models.UploadCredential{
		AssetID:     assetID,
		TargetURL:   h.objectURL(key),
		AccessToken: grant.Token,
	})
}

// IssueThumbnail handles POST /api/v1/uploads/thumbnail.
func (h UploadHandler) IssueThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, w, r, uploadsRateScope) {
		return
	}

	if h.Grants == nil || h.Objects == nil {
		logger.Error("upload dependencies unavailable", "hasGrants", h.Grants != nil, "hasObjects", h.Objects != nil)
		respondError(ctx, w, http.StatusInternalServerError, "upload service unavailable")
		return
	}

	var req thumbnailCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("invalid thumbnail credential payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	parsed, err := uuid.Parse(strings.TrimSpace(req.VideoID))
	if err != nil {
		logger.Warn("thumbnail credential invalid video id", "videoId", req.VideoID)
		respondError(ctx, w, http.StatusBadRequest, "videoId must be a valid uuid")
		return
	}
	assetID := parsed.String()

	// thumbnails are only issued for assets whose video already landed
	if _, err := h.Objects.Stat(ctx, models.VideoObjectKey(assetID)); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			logger.Warn("thumbnail credential for unknown video", "videoId", assetID)
			respondError(ctx, w, http.StatusNotFound, "video upload not found")
			return
		}
		logger.Error("check video object", "videoId", assetID, "error", err)
		respondError(ctx, w, http.StatusBadGateway, "failed to verify video upload")
		return
	}

	key := models.ThumbnailObjectKey(assetID)
	grant, err := h.Grants.Issue(ctx, assetID, key)
	if err != nil {
		logger.Error("issue thumbnail upload grant", "videoId", assetID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to issue upload credential")
		return
	}

	logger.Info("thumbnail upload credential issued", "videoId", assetID)
	respondJSON(ctx, w, http.StatusOK, models.UploadCredential{
		TargetURL:   h.objectURL(key),
		AccessToken: grant.Token,
		CDNURL:      h.Objects.PublicURL(key),
	})
}

func (h UploadHandler) objectURL(key string) string {
	return strings.TrimRight(h.PublicBaseURL, "/") + objectsPathPrefix + key
}

type thumbnailCredentialRequest struct {
	VideoID string `json:"videoId"`
}
