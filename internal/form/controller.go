package form

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/vidcast/vidcast/internal/media"
	"github.com/vidcast/vidcast/internal/models"
	"github.com/vidcast/vidcast/internal/upload"
)

// User-facing messages shown by the form.
const (
	MsgMissingMedia      = "Please upload video and thumbnail."
	MsgMissingDetails    = "Please fill in all the details."
	MsgInvalidVisibility = "Please choose public or private visibility."
	MsgUploadFailed      = "Upload failed. Please try again."
)

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission is still running.
var ErrSubmitInFlight = errors.New("submission already in progress")

// ValidationError is returned when the form cannot be submitted as filled in.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// State is the form's submission state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

// Fields are the text inputs of the upload form.
type Fields struct {
	Title       string
	Description string
	Visibility  string
}

// Uploader runs the upload pipeline for a completed form.
type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (string, error)
}

// Router navigates to the detail page of a published video.
type Router interface {
	Navigate(assetID string)
}

// DetailPath returns the route of a video's detail page.
func DetailPath(assetID string) string {
	return "/video/" + assetID
}

// Controller gates submission on both media slots and the text fields, runs
// the upload and clears the form on success.
type Controller struct {
	video     *media.Slot
	thumbnail *media.Slot
	uploader  Uploader
	router    Router
	logger    *slog.Logger

	mu     sync.Mutex
	state  State
	errMsg string
}

// NewController wires a form around its two media slots.
func NewController(video, thumbnail *media.Slot, uploader Uploader, router Router, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		video:     video,
		thumbnail: thumbnail,
		uploader:  uploader,
		router:    router,
		logger:    logger,
		state:     StateIdle,
	}
}

// State reports whether a submission is running.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Error returns the message to show the user, if any.
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// ClearError dismisses the current message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
}

// Submit validates the form and uploads it, returning the new asset id.
func (c *Controller) Submit(ctx context.Context, fields Fields) (string, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return "", ErrSubmitInFlight
	}

	req, err := c.buildRequest(fields)
	if err != nil {
		c.errMsg = err.Error()
		c.mu.Unlock()
		c.logger.Warn("upload form rejected", "reason", err.Error())
		return "", err
	}

	c.state = StateSubmitting
	c.errMsg = ""
	c.mu.Unlock()

	assetID, err := c.uploader.Upload(ctx, req)

	c.mu.Lock()
	c.state = StateIdle
	if err != nil {
		c.errMsg = userMessage(err)
		c.mu.Unlock()
		c.logger.Error("video upload failed", "error", err)
		return "", err
	}
	c.mu.Unlock()

	c.video.Reset()
	c.thumbnail.Reset()

	c.logger.Info("video published", "videoId", assetID)
	if c.router != nil {
		c.router.Navigate(assetID)
	}
	return assetID, nil
}

func (c *Controller) buildRequest(fields Fields) (upload.Request, error) {
	video, thumbnail := c.video.Asset(), c.thumbnail.Asset()
	if video == nil || thumbnail == nil {
		return upload.Request{}, &ValidationError{Message: MsgMissingMedia}
	}

	title := strings.TrimSpace(fields.Title)
	description := strings.TrimSpace(fields.Description)
	if title == "" || description == "" {
		return upload.Request{}, &ValidationError{Message: MsgMissingDetails}
	}

	visibility, ok := models.ParseVisibility(strings.ToLower(strings.TrimSpace(fields.Visibility)))
	if !ok {
		return upload.Request{}, &ValidationError{Message: MsgInvalidVisibility}
	}

	return upload.Request{
		Video:       video,
		Thumbnail:   thumbnail,
		Title:       title,
		Description: description,
		Visibility:  visibility,
		Duration:    c.video.Duration(),
	}, nil
}

func userMessage(err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	return MsgUploadFailed
}
