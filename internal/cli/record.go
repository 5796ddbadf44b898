package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidcast/vidcast/internal/capture"
	"github.com/vidcast/vidcast/internal/media"
)

const stopTimeout = 10 * time.Second

func (a *cliApp) recordCommand() *cobra.Command {
	var (
		flags   publishFlags
		output  string
		noAudio bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the screen, then save or publish the recording",
		Long: `Record the screen until Enter is pressed (or the process is interrupted).

With --thumbnail the recording is published together with the thumbnail and
details. Otherwise, or when --output is given, the recording is written to a
file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := a.log()

			previews, err := media.NewTempPreviews("")
			if err != nil {
				return err
			}
			defer func() {
				if err := previews.Close(); err != nil {
					logger.Warn("cleanup previews", "error", err)
				}
			}()

			ctrl := capture.NewController(capture.Options{
				Source:   a.opts.NewSource(a.cfg),
				Previews: previews,
				Audio:    !noAudio,
				Logger:   logger,
			})
			defer ctrl.Reset()

			lines := readLines(a.opts.In)

			rec, interrupted, err := a.captureTake(ctx, ctrl, lines)
			if err != nil {
				return err
			}

			publish := flags.thumbnail != "" && !interrupted
			if rec.Truncated {
				fmt.Fprintln(a.opts.Err, "Warning: the recording did not finish flushing and is incomplete; it will not be published.")
				publish = false
			}
			if output == "" && !publish {
				output = capture.DefaultRecordingName
			}
			if output != "" {
				if err := os.WriteFile(output, rec.Data, 0o644); err != nil {
					return fmt.Errorf("write recording: %w", err)
				}
				fmt.Fprintf(a.opts.Out, "Saved %s (%.1fs, %s)\n", output, rec.Duration, formatBytes(int64(len(rec.Data))))
			}
			if !publish {
				return nil
			}

			p := a.newPublisher(!flags.noProgress)
			if err := p.video.SelectFile(rec.Asset(capture.DefaultRecordingName)); err != nil {
				return err
			}
			if err := p.selectThumbnail(flags.thumbnail); err != nil {
				return err
			}
			_, err = p.submit(ctx, flags.fields(), 0)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the recording to this file")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Record without audio")
	flags.register(cmd)
	return cmd
}

// captureTake records until the user presses Enter, offering to record again
// until a take is kept. interrupted reports that the context ended the take.
func (a *cliApp) captureTake(ctx context.Context, ctrl *capture.Controller, lines <-chan string) (*capture.Recording, bool, error) {
	for {
		if err := ctrl.Start(ctx); err != nil {
			return nil, false, describeCaptureError(err)
		}
		fmt.Fprintln(a.opts.Out, "Recording... press Enter to stop.")

		interrupted := false
		select {
		case _, ok := <-lines:
			if !ok {
				// no more input; only an interrupt can end the take
				lines = nil
				<-ctx.Done()
				interrupted = true
			}
		case <-ctx.Done():
			interrupted = true
		}

		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.opts.StopTimeout)
		rec, err := ctrl.Stop(stopCtx)
		cancel()
		if err != nil && !errors.Is(err, capture.ErrDrainIncomplete) {
			return nil, false, err
		}
		if rec == nil {
			return nil, false, errors.New("recording did not start")
		}

		if rec.PreviewURL != "" {
			fmt.Fprintf(a.opts.Out, "Preview: %s\n", media.PathFromURL(rec.PreviewURL))
		}
		if interrupted {
			return rec, true, nil
		}
		if rec.Truncated {
			fmt.Fprintln(a.opts.Err, "Warning: the end of this take was lost.")
		}

		fmt.Fprintln(a.opts.Out, "Press Enter to keep this take, or type r and Enter to record again.")
		select {
		case line, ok := <-lines:
			if ok && strings.EqualFold(strings.TrimSpace(line), "r") {
				ctrl.Reset()
				continue
			}
			return rec, false, nil
		case <-ctx.Done():
			return rec, true, nil
		}
	}
}

func describeCaptureError(err error) error {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return fmt.Errorf("screen capture permission was denied: %w", err)
	case errors.Is(err, capture.ErrCaptureUnavailable):
		return fmt.Errorf("screen capture is not available on this system: %w", err)
	default:
		return err
	}
}

// readLines forwards input lines until EOF, then closes the channel.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
