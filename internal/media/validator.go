package media

import (
	"fmt"
	"path"
	"strings"
)

// ValidationKind classifies why a candidate file was rejected.
type ValidationKind string

const (
	TooLarge        ValidationKind = "too_large"
	UnsupportedType ValidationKind = "unsupported_type"
	Missing         ValidationKind = "missing"
)

// ValidationError is returned when an asset cannot enter the pipeline.
type ValidationError struct {
	Kind    ValidationKind
	Name    string
	Size    int64
	Limit   int64
	Type    string
	Accept  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case TooLarge:
		return fmt.Sprintf("%s is too large (%d bytes, limit %d)", e.Name, e.Size, e.Limit)
	case UnsupportedType:
		return fmt.Sprintf("%s has unsupported type %q (accepts %s)", e.Name, e.Type, e.Accept)
	default:
		return "no file selected"
	}
}

// Is lets callers match on kind with errors.Is(err, &ValidationError{Kind: TooLarge}).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Validate enforces the size limit for a candidate asset. A non-positive limit
// disables the size check.
func Validate(asset *Asset, maxSizeBytes int64) error {
	if asset == nil {
		return &ValidationError{Kind: Missing}
	}
	if maxSizeBytes > 0 && asset.SizeBytes > maxSizeBytes {
		return &ValidationError{Kind: TooLarge, Name: asset.Name, Size: asset.SizeBytes, Limit: maxSizeBytes}
	}
	return nil
}

// ValidateType checks the asset MIME type against a picker-style accept list
// such as "video/*" or "image/png,image/jpeg". An empty accept list allows
// everything.
func ValidateType(asset *Asset, accept string) error {
	if asset == nil {
		return &ValidationError{Kind: Missing}
	}
	if strings.TrimSpace(accept) == "" || Accepts(accept, asset.MimeType) {
		return nil
	}
	return &ValidationError{Kind: UnsupportedType, Name: asset.Name, Type: asset.MimeType, Accept: accept}
}

// Accepts reports whether mimeType matches any pattern in accept.
func Accepts(accept, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, pattern := range strings.Split(accept, ",") {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if pattern == "*/*" || pattern == mimeType {
			return true
		}
		if ok, _ := path.Match(pattern, mimeType); ok {
			return true
		}
	}
	return false
}
