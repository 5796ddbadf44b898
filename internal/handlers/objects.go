package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vidcast/vidcast/internal/auth"
	"github.com/vidcast/vidcast/internal/logging"
	"github.com/vidcast/vidcast/internal/models"
	"github.com/vidcast/vidcast/internal/upload"
)

const objectsPathPrefix = "/api/v1/objects/"

// ObjectHandler is the storage write endpoint that upload credentials point
// at. Each request must carry the access key of an unused grant for exactly
// the addressed key.
type ObjectHandler struct {
	Grants           GrantManager
	Objects          ObjectStore
	MaxVideoSize     int64
	MaxThumbnailSize int64
}

// Put handles PUT /api/v1/objects/{key...}.
func (h ObjectHandler) Put(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Grants == nil || h.Objects == nil {
		logger.Error("object dependencies unavailable", "hasGrants", h.Grants != nil, "hasObjects", h.Objects != nil)
		respondError(ctx, w, http.StatusInternalServerError, "object store unavailable")
		return
	}

	key := objectKey(r)
	limit, ok := h.limitFor(key)
	if !ok {
		logger.Warn("object write to unknown key", "key", key)
		respondError(ctx, w, http.StatusNotFound, "unknown object key")
		return
	}
	logger = logger.With("key", key)

	token := strings.TrimSpace(r.Header.Get(upload.AccessKeyHeader))
	if token == "" {
		respondError(ctx, w, http.StatusUnauthorized, "access key required")
		return
	}

	if r.ContentLength > limit {
		logger.Warn("object body exceeds limit", "contentLength", r.ContentLength, "limit", limit)
		respondError(ctx, w, http.StatusRequestEntityTooLarge, "object too large")
		return
	}

	grant, err := h.Grants.Redeem(ctx, token, key)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrGrantScope):
			respondError(ctx, w, http.StatusForbidden, "access key does not cover this object")
		case errors.Is(err, auth.ErrGrantNotFound), errors.Is(err, auth.ErrGrantExpired):
			logger.Warn("object write rejected", "error", err)
			respondError(ctx, w, http.StatusUnauthorized, "invalid or expired access key")
		default:
			logger.Error("redeem upload grant", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to verify access key")
		}
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	location, err := h.Objects.Save(ctx, key, contentType, http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		if releaseErr := h.Grants.Release(context.WithoutCancel(ctx), grant); releaseErr != nil {
			logger.Error("release upload grant", "error", releaseErr)
		}

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("object body exceeds limit", "limit", limit)
			respondError(ctx, w, http.StatusRequestEntityTooLarge, "object too large")
			return
		}
		logger.Error("store object", "error", err)
		respondError(ctx, w, http.StatusBadGateway, "failed to store object")
		return
	}

	logger.Info("object stored", "videoId", grant.AssetID, "contentType", contentType)
	respondJSON(ctx, w, http.StatusCreated, objectResponse{Key: key, URL: location})
}

func (h ObjectHandler) limitFor(key string) (int64, bool) {
	switch {
	case strings.HasPrefix(key, models.VideoKeyPrefix+"/"):
		return h.MaxVideoSize, h.MaxVideoSize > 0
	case strings.HasPrefix(key, models.ThumbnailKeyPrefix+"/"):
		return h.MaxThumbnailSize, h.MaxThumbnailSize > 0
	default:
		return 0, false
	}
}

func objectKey(r *http.Request) string {
	if key := r.PathValue("key"); key != "" {
		return key
	}
	return strings.TrimPrefix(r.URL.Path, objectsPathPrefix)
}

type objectResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
