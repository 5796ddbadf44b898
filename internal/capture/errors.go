package capture

import (
	"errors"
	"fmt"
)

// ErrorKind classifies capture failures.
type ErrorKind string

const (
	PermissionDenied   ErrorKind = "permission_denied"
	CaptureUnavailable ErrorKind = "capture_unavailable"
)

var (
	// ErrPermissionDenied is returned by sources when the user or platform
	// refuses screen capture.
	ErrPermissionDenied = errors.New("screen capture permission denied")
	// ErrCaptureUnavailable is returned by sources when no capture backend works.
	ErrCaptureUnavailable = errors.New("screen capture unavailable")
)

// CaptureError is returned by Controller.Start when a stream cannot be acquired.
type CaptureError struct {
	Kind ErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Is matches the kind sentinels so callers can use errors.Is(err, ErrPermissionDenied).
func (e *CaptureError) Is(target error) bool {
	switch target {
	case ErrPermissionDenied:
		return e.Kind == PermissionDenied
	case ErrCaptureUnavailable:
		return e.Kind == CaptureUnavailable
	}
	return false
}

func classify(err error) *CaptureError {
	var captureErr *CaptureError
	if errors.As(err, &captureErr) {
		return captureErr
	}
	if errors.Is(err, ErrPermissionDenied) {
		return &CaptureError{Kind: PermissionDenied, Err: err}
	}
	return &CaptureError{Kind: CaptureUnavailable, Err: err}
}
