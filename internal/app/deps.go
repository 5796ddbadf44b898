package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidcast/vidcast/internal/auth"
	"github.com/vidcast/vidcast/internal/config"
	"github.com/vidcast/vidcast/internal/db"
	"github.com/vidcast/vidcast/internal/handlers"
	"github.com/vidcast/vidcast/internal/middleware"
	"github.com/vidcast/vidcast/internal/repositories"
	"github.com/vidcast/vidcast/internal/storage"
	"github.com/vidcast/vidcast/internal/videos"
)

const rateLimiterIdleTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup stops background workers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	objects, err := storage.NewS3Store(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object store: %w", err)
	}

	videoRepo := repositories.NewPostgresVideoRepository(pool)
	grants := auth.NewManager(cfg.Upload.GrantTTL, repositories.NewPostgresGrantStore(pool))

	verifier := videos.NewAssetVerifier(objects, videoRepo, videos.AssetVerifierConfig{
		QueueSize: cfg.Upload.VerifyQueueSize,
		Workers:   cfg.Upload.VerifyWorkers,
	}, logger)

	limiter := middleware.NewIPRateLimiter(middleware.RateLimitConfig{
		Requests: cfg.Upload.RateLimitRequests,
		Window:   cfg.Upload.RateLimitWindow,
		Burst:    cfg.Upload.RateLimitBurst,
		IdleTTL:  rateLimiterIdleTTL,
	})

	deps := handlers.Dependencies{
		Grants:        grants,
		Objects:       objects,
		Videos:        videoRepo,
		VideoLookup:   videos.NewCachingLookup(videoRepo, cfg.LookupCacheTTL),
		Verifier:      verifier,
		UploadLimiter: limiter,

		PublicBaseURL:       cfg.PublicBaseURL,
		PlaybackURLTemplate: cfg.PlaybackURLTemplate,
		MaxVideoSize:        cfg.Upload.MaxVideoSize,
		MaxThumbnailSize:    cfg.Upload.MaxThumbnailSize,
	}

	return deps, verifier.Shutdown, nil
}
