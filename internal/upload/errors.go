package upload

import (
	"errors"
	"fmt"
)

// Phase identifies a step of the two-phase upload.
type Phase string

const (
	PhaseVideoCredential     Phase = "video_credential"
	PhaseVideoTransfer       Phase = "video_transfer"
	PhaseThumbnailCredential Phase = "thumbnail_credential"
	PhaseThumbnailTransfer   Phase = "thumbnail_transfer"
	PhasePersist             Phase = "persist_metadata"
)

// ErrorKind classifies orchestration failures.
type ErrorKind string

const (
	KindCredentialIssuance ErrorKind = "credential_issuance"
	KindUploadTransport    ErrorKind = "upload_transport"
	KindPersistence        ErrorKind = "persistence"
)

var (
	ErrCredentialIssuance = errors.New("upload credential issuance failed")
	ErrUploadTransport    = errors.New("upload transfer failed")
	ErrPersistence        = errors.New("video metadata persistence failed")
)

// Error reports the phase an upload stopped at. AssetID is set once a video
// credential was issued, so an orphaned asset can be identified.
type Error struct {
	Phase   Phase
	Kind    ErrorKind
	AssetID string
	Err     error
}

func (e *Error) Error() string {
	if e.AssetID != "" {
		return fmt.Sprintf("upload %s (asset %s): %v", e.Phase, e.AssetID, e.Err)
	}
	return fmt.Sprintf("upload %s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrCredentialIssuance:
		return e.Kind == KindCredentialIssuance
	case ErrUploadTransport:
		return e.Kind == KindUploadTransport
	case ErrPersistence:
		return e.Kind == KindPersistence
	}
	return false
}

// StatusError is returned for non-2xx responses from the backend or the
// object store.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}
