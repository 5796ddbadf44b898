package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidcast/vidcast/internal/form"
	"github.com/vidcast/vidcast/internal/media"
	"github.com/vidcast/vidcast/internal/upload"
)

type publishFlags struct {
	thumbnail   string
	title       string
	description string
	visibility  string
	noProgress  bool
}

func (f *publishFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.thumbnail, "thumbnail", "", "Thumbnail image file")
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Video title")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Video description")
	cmd.Flags().StringVar(&f.visibility, "visibility", "public", "Visibility: public or private")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "Do not print upload progress")
}

func (f *publishFlags) fields() form.Fields {
	return form.Fields{Title: f.title, Description: f.description, Visibility: f.visibility}
}

// publisher bundles the two media slots with the form that submits them.
type publisher struct {
	video     *media.Slot
	thumbnail *media.Slot
	form      *form.Controller
}

func (a *cliApp) newPublisher(progress bool) *publisher {
	logger := a.log()

	video := media.NewSlot(media.SlotOptions{
		Kind:         media.SlotVideo,
		MaxSize:      a.cfg.MaxVideoSize,
		Accept:       "video/*",
		Prober:       a.opts.NewProber(a.cfg),
		ProbeTimeout: a.cfg.ProbeTimeout,
		Logger:       logger,
	})
	thumbnail := media.NewSlot(media.SlotOptions{
		Kind:    media.SlotImage,
		MaxSize: a.cfg.MaxThumbnailSize,
		Accept:  "image/*",
		Logger:  logger,
	})

	var progressFn upload.ProgressFunc
	if progress {
		progressFn = newProgressPrinter(a.opts.Err).report
	}

	api := upload.NewAPIClient(a.cfg.APIBaseURL, a.opts.HTTPClient)
	transport := upload.NewHTTPTransport(a.opts.HTTPClient, progressFn)
	orchestrator := upload.NewOrchestrator(api, transport, api)
	router := &terminalRouter{out: a.opts.Out, webBase: a.cfg.WebBaseURL}

	return &publisher{
		video:     video,
		thumbnail: thumbnail,
		form:      form.NewController(video, thumbnail, orchestrator, router, logger),
	}
}

// selectThumbnail loads path into the thumbnail slot; an empty path leaves the
// slot empty so the form reports the missing media.
func (p *publisher) selectThumbnail(path string) error {
	if path == "" {
		return nil
	}
	asset, err := media.FromFile(path)
	if err != nil {
		return err
	}
	return p.thumbnail.SelectFile(asset)
}

// submit waits briefly for a pending duration probe, then publishes.
func (p *publisher) submit(ctx context.Context, fields form.Fields, probeWait time.Duration) (string, error) {
	select {
	case <-p.video.ProbeSettled():
	case <-time.After(probeWait):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	assetID, err := p.form.Submit(ctx, fields)
	if err != nil {
		var validation *form.ValidationError
		if errors.As(err, &validation) {
			return "", validation
		}
		return "", fmt.Errorf("%s: %w", p.form.Error(), err)
	}
	return assetID, nil
}

func (a *cliApp) uploadCommand() *cobra.Command {
	var (
		flags     publishFlags
		videoPath string
		probeWait time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a video with its thumbnail and details",
		Long: `Upload a video file and a thumbnail image, then save the video's title,
description and visibility. The video duration is probed with ffprobe when
available and sent as 0 otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.newPublisher(!flags.noProgress)

			if videoPath != "" {
				asset, err := media.FromFile(videoPath)
				if err != nil {
					return err
				}
				if err := p.video.SelectFile(asset); err != nil {
					return err
				}
			}
			if err := p.selectThumbnail(flags.thumbnail); err != nil {
				return err
			}

			_, err := p.submit(cmd.Context(), flags.fields(), probeWait)
			return err
		},
	}

	cmd.Flags().StringVarP(&videoPath, "video", "v", "", "Video file to upload")
	cmd.Flags().DurationVar(&probeWait, "probe-wait", 5*time.Second, "How long to wait for the duration probe before submitting")
	flags.register(cmd)
	return cmd
}
