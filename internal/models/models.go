package models

import "time"

// Visibility controls who can see a published video.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the supported visibility values.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// ParseVisibility normalises user input, defaulting to public when empty.
func ParseVisibility(value string) (Visibility, bool) {
	switch Visibility(value) {
	case "":
		return VisibilityPublic, true
	case VisibilityPublic, VisibilityPrivate:
		return Visibility(value), true
	default:
		return "", false
	}
}

// UploadCredential authorises exactly one binary write to the object store.
// AssetID is only populated for the primary (video) credential and CDNURL only
// for the thumbnail credential.
type UploadCredential struct {
	AssetID     string `json:"videoId,omitempty"`
	TargetURL   string `json:"uploadUrl"`
	AccessToken string `json:"accessKey"`
	CDNURL      string `json:"cdnUrl,omitempty"`
}

// VideoRecord is the durable metadata persisted once both uploads succeed.
type VideoRecord struct {
	AssetID      string     `json:"videoId"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Visibility   Visibility `json:"visibility"`
	Duration     float64    `json:"duration"`

	CreatedAt   time.Time `json:"createdAt,omitempty"`
	AssetStatus string    `json:"assetStatus,omitempty"`
	AssetSize   int64     `json:"assetSize,omitempty"`
}

const (
	AssetStatusPending = "pending"
	AssetStatusReady   = "ready"
	AssetStatusFailed  = "failed"
)

// Object key prefixes used for the two upload slots.
const (
	VideoKeyPrefix     = "videos"
	ThumbnailKeyPrefix = "thumbnails"
)

// VideoObjectKey returns the storage key holding the source video for an asset.
func VideoObjectKey(assetID string) string {
	return VideoKeyPrefix + "/" + assetID + "/source"
}

// ThumbnailObjectKey returns the storage key holding the thumbnail for an asset.
func ThumbnailObjectKey(assetID string) string {
	return ThumbnailKeyPrefix + "/" + assetID
}
