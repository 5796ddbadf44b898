package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vidcast/vidcast/internal/logging"
	"github.com/vidcast/vidcast/internal/media"
	"github.com/vidcast/vidcast/internal/models"
)

// CredentialIssuer hands out single-use upload credentials.
type CredentialIssuer interface {
	IssueVideoUploadCredential(ctx context.Context) (models.UploadCredential, error)
	IssueThumbnailUploadCredential(ctx context.Context, assetID string) (models.UploadCredential, error)
}

// ObjectWriter writes an asset's bytes to the destination named by a credential.
type ObjectWriter interface {
	Put(ctx context.Context, cred models.UploadCredential, asset *media.Asset) error
}

// MetadataStore persists the video record once both objects are stored.
type MetadataStore interface {
	SaveVideoDetails(ctx context.Context, record models.VideoRecord) error
}

// Request carries everything one upload attempt needs.
type Request struct {
	Video       *media.Asset
	Thumbnail   *media.Asset
	Title       string
	Description string
	Visibility  models.Visibility
	Duration    float64
}

// Orchestrator runs the credential -> transfer -> persist sequence. Phases run
// strictly one after another; the first failure aborts the attempt and nothing
// already stored is rolled back.
type Orchestrator struct {
	issuer CredentialIssuer
	writer ObjectWriter
	store  MetadataStore
}

// NewOrchestrator wires the orchestrator collaborators.
func NewOrchestrator(issuer CredentialIssuer, writer ObjectWriter, store MetadataStore) *Orchestrator {
	return &Orchestrator{issuer: issuer, writer: writer, store: store}
}

// Upload transfers the video and thumbnail and persists the metadata record,
// returning the asset id on success.
func (o *Orchestrator) Upload(ctx context.Context, req Request) (string, error) {
	if o == nil || o.issuer == nil || o.writer == nil || o.store == nil {
		return "", errors.New("upload orchestrator not configured")
	}
	if req.Video == nil || req.Thumbnail == nil {
		return "", &media.ValidationError{Kind: media.Missing}
	}

	ctx, span := logging.StartSpan(ctx, "upload")
	defer span.End()
	span.SetAttributes(
		slog.Int64("video_bytes", req.Video.SizeBytes),
		slog.Int64("thumbnail_bytes", req.Thumbnail.SizeBytes),
	)

	var videoCred models.UploadCredential
	err := o.run(ctx, PhaseVideoCredential, KindCredentialIssuance, "", func(ctx context.Context) error {
		cred, err := o.issuer.IssueVideoUploadCredential(ctx)
		if err != nil {
			return err
		}
		if cred.AssetID == "" || cred.TargetURL == "" || cred.AccessToken == "" {
			return errors.New("incomplete video credential")
		}
		videoCred = cred
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	assetID := videoCred.AssetID
	ctx = logging.WithAssetID(ctx, assetID)
	span.SetAttributes(slog.String("video_id", assetID))

	err = o.run(ctx, PhaseVideoTransfer, KindUploadTransport, assetID, func(ctx context.Context) error {
		return o.writer.Put(ctx, videoCred, req.Video)
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	var thumbCred models.UploadCredential
	err = o.run(ctx, PhaseThumbnailCredential, KindCredentialIssuance, assetID, func(ctx context.Context) error {
		cred, err := o.issuer.IssueThumbnailUploadCredential(ctx, assetID)
		if err != nil {
			return err
		}
		if cred.TargetURL == "" || cred.AccessToken == "" || cred.CDNURL == "" {
			return errors.New("incomplete thumbnail credential")
		}
		thumbCred = cred
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	err = o.run(ctx, PhaseThumbnailTransfer, KindUploadTransport, assetID, func(ctx context.Context) error {
		return o.writer.Put(ctx, thumbCred, req.Thumbnail)
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	record := models.VideoRecord{
		AssetID:      assetID,
		ThumbnailURL: thumbCred.CDNURL,
		Title:        req.Title,
		Description:  req.Description,
		Visibility:   visibility,
		Duration:     req.Duration,
	}
	err = o.run(ctx, PhasePersist, KindPersistence, assetID, func(ctx context.Context) error {
		return o.store.SaveVideoDetails(ctx, record)
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return assetID, nil
}

func (o *Orchestrator) run(ctx context.Context, phase Phase, kind ErrorKind, assetID string, fn func(context.Context) error) error {
	ctx, span := logging.StartSpan(ctx, "upload."+string(phase))
	defer span.End()

	logger := logging.FromContext(ctx)

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		logger.Error("upload phase failed", slog.Any("error", err))
		return &Error{Phase: phase, Kind: kind, AssetID: assetID, Err: fmt.Errorf("%s: %w", phase, err)}
	}
	logger.Debug("upload phase completed")
	return nil
}
