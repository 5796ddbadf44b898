package videos

import "errors"

var (
	// ErrLookupUnavailable indicates the record lookup is not configured.
	ErrLookupUnavailable = errors.New("video lookup unavailable")
	// ErrVerifierClosed is returned by Enqueue after Shutdown.
	ErrVerifierClosed = errors.New("asset verifier closed")
)
