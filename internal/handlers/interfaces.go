package handlers

import (
	"context"
	"io"

	"github.com/vidcast/vidcast/internal/auth"
	"github.com/vidcast/vidcast/internal/models"
	"github.com/vidcast/vidcast/internal/storage"
)

// GrantManager issues and redeems single-use upload grants.
type GrantManager interface {
	Issue(ctx context.Context, assetID, objectKey string) (auth.Grant, error)
	Redeem(ctx context.Context, token, objectKey string) (auth.Grant, error)
	Release(ctx context.Context, grant auth.Grant) error
}

// ObjectStore streams uploaded bodies into durable storage.
type ObjectStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Stat(ctx context.Context, key string) (storage.ObjectInfo, error)
	PublicURL(key string) string
}

// VideoStore captures persistence for video records.
type VideoStore interface {
	Create(ctx context.Context, record models.VideoRecord) error
}

// VideoLookup resolves a video id to its persisted record.
type VideoLookup interface {
	FindByID(ctx context.Context, assetID string) (models.VideoRecord, error)
}

// AssetVerifier schedules background confirmation that a video object exists.
type AssetVerifier interface {
	Enqueue(ctx context.Context, assetID string) error
}
