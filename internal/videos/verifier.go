package videos

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vidcast/vidcast/internal/logging"
	"github.com/vidcast/vidcast/internal/models"
	"github.com/vidcast/vidcast/internal/storage"
)

// ObjectInspector reports whether an uploaded object exists.
type ObjectInspector interface {
	Stat(ctx context.Context, key string) (storage.ObjectInfo, error)
}

// AssetStatusUpdater persists verification results for video records.
type AssetStatusUpdater interface {
	MarkAssetReady(ctx context.Context, assetID string, size int64) error
	MarkAssetFailed(ctx context.Context, assetID string) error
}

// AssetVerifierConfig controls the concurrency characteristics of the verifier.
type AssetVerifierConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// AssetVerifier checks in the background that a registered video's source
// object actually reached the bucket and records the outcome.
type AssetVerifier struct {
	objects ObjectInspector
	updater AssetStatusUpdater
	timeout time.Duration
	logger  *slog.Logger

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAssetVerifier starts the worker pool.
func NewAssetVerifier(objects ObjectInspector, updater AssetStatusUpdater, cfg AssetVerifierConfig, logger *slog.Logger) *AssetVerifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	v := &AssetVerifier{
		objects: objects,
		updater: updater,
		timeout: cfg.Timeout,
		logger:  logger,
		jobs:    make(chan string, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	v.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go v.worker()
	}

	return v
}

// Enqueue schedules verification of the asset's video object.
func (v *AssetVerifier) Enqueue(ctx context.Context, assetID string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return ErrVerifierClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case v.jobs <- assetID:
		return nil
	}
}

// Shutdown stops accepting work and waits for the workers to verify every
// queued asset. If ctx ends first, the remaining jobs are abandoned.
func (v *AssetVerifier) Shutdown(ctx context.Context) error {
	v.mu.Lock()
	if !v.closed {
		v.closed = true
		close(v.jobs)
	}
	v.mu.Unlock()

	done := make(chan struct{})
	go func() {
		v.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		v.cancel()
		return ctx.Err()
	case <-done:
		v.cancel()
		return nil
	}
}

func (v *AssetVerifier) worker() {
	defer v.wg.Done()

	for assetID := range v.jobs {
		if v.ctx.Err() != nil {
			return
		}
		v.verify(assetID)
	}
}

func (v *AssetVerifier) verify(assetID string) {
	ctx, cancel := context.WithTimeout(logging.WithLogger(v.ctx, v.logger), v.timeout)
	defer cancel()

	ctx, span := logging.StartSpan(logging.WithAssetID(ctx, assetID), "videos.verify")
	defer span.End()
	logger := logging.FromContext(ctx)

	if v.objects == nil || v.updater == nil {
		logger.Error("asset verifier missing dependencies", "hasObjects", v.objects != nil, "hasUpdater", v.updater != nil)
		return
	}

	info, err := v.objects.Stat(ctx, models.VideoObjectKey(assetID))
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		logger.Warn("video object missing")
		span.RecordError(err)
		if err := v.updater.MarkAssetFailed(ctx, assetID); err != nil {
			logger.Error("record asset failure", "error", err)
		}
	case err != nil:
		// transient store errors leave the record pending
		span.RecordError(err)
		logger.Error("video object lookup failed", "error", err)
	default:
		span.SetAttributes(slog.Int64("size", info.Size))
		if err := v.updater.MarkAssetReady(ctx, assetID, info.Size); err != nil {
			logger.Error("mark asset ready", "error", err)
		}
	}
}
