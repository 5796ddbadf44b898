package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidcast/vidcast/internal/logging"
	"github.com/vidcast/vidcast/internal/models"
	"github.com/vidcast/vidcast/internal/repositories"
)

const videosPathPrefix = "/api/v1/videos/"

// VideoHandler provides endpoints for persisting and fetching video records.
type VideoHandler struct {
	Videos   VideoStore
	Lookup   VideoLookup
	Verifier AssetVerifier
	// PlaybackURLTemplate is formatted with the video id.
	PlaybackURLTemplate string
	NowFunc             func() time.Time
}

// Create handles POST /api/v1/videos.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Videos == nil {
		logger.Error("video dependencies unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "video service unavailable")
		return
	}

	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid video payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, msg := req.record()
	if msg != "" {
		logger.Warn("video record rejected", "reason", msg, "videoId", req.VideoID)
		respondError(ctx, w, http.StatusBadRequest, msg)
		return
	}
	record.CreatedAt = h.now()
	record.AssetStatus = models.AssetStatusPending

	if err := h.Videos.Create(ctx, record); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "video already exists")
			return
		}
		logger.Error("persist video record", "videoId", record.AssetID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to save video")
		return
	}

	if h.Verifier != nil {
		if err := h.Verifier.Enqueue(ctx, record.AssetID); err != nil {
			logger.Warn("schedule asset verification", "videoId", record.AssetID, "error", err)
		}
	}

	logger.Info("video record created", "videoId", record.AssetID, "visibility", record.Visibility)
	respondJSON(ctx, w, http.StatusCreated, videoResponse{Video: record})
}

// Get handles GET /api/v1/videos/{id}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Lookup == nil {
		logger.Error("video lookup unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "video service unavailable")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		id = strings.TrimPrefix(r.URL.Path, videosPathPrefix)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "video id must be a valid uuid")
		return
	}
	id = parsed.String()

	record, err := h.Lookup.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("lookup video", "videoId", id, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load video")
		return
	}

	resp := videoResponse{Video: record}
	if h.PlaybackURLTemplate != "" {
		resp.PlaybackURL = fmt.Sprintf(h.PlaybackURLTemplate, record.AssetID)
	}
	respondJSON(ctx, w, http.StatusOK, resp)
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

type createVideoRequest struct {
	VideoID      string  `json:"videoId"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Visibility   string  `json:"visibility"`
	Duration     float64 `json:"duration"`
}

func (req createVideoRequest) record() (models.VideoRecord, string) {
	parsed, err := uuid.Parse(strings.TrimSpace(req.VideoID))
	if err != nil {
		return models.VideoRecord{}, "videoId must be a valid uuid"
	}
	id := parsed.String()

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	thumbnail := strings.TrimSpace(req.ThumbnailURL)
	if title == "" || description == "" || thumbnail == "" {
		return models.VideoRecord{}, "title, description and thumbnailUrl are required"
	}

	visibility, ok := models.ParseVisibility(strings.ToLower(strings.TrimSpace(req.Visibility)))
	if !ok {
		return models.VideoRecord{}, "visibility must be public or private"
	}

	if req.Duration < 0 || math.IsNaN(req.Duration) || math.IsInf(req.Duration, 0) {
		return models.VideoRecord{}, "duration must not be negative"
	}

	return models.VideoRecord{
		AssetID:      id,
		ThumbnailURL: thumbnail,
		Title:        title,
		Description:  description,
		Visibility:   visibility,
		Duration:     req.Duration,
	}, ""
}

type videoResponse struct {
	Video       models.VideoRecord `json:"video"`
	PlaybackURL string             `json:"playbackUrl,omitempty"`
}
