package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidcast/vidcast/internal/capture"
	"github.com/vidcast/vidcast/internal/config"
	"github.com/vidcast/vidcast/internal/media"
)

// Options carries the process environment into the command tree.
type Options struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Config     config.ClientConfig
	HTTPClient *http.Client
	// StopTimeout bounds how long a recording may take to flush after stop.
	StopTimeout time.Duration

	// NewSource and NewProber default to the ffmpeg/ffprobe implementations.
	NewSource func(cfg config.ClientConfig) capture.Source
	NewProber func(cfg config.ClientConfig) media.DurationProber
}

type cliApp struct {
	opts   Options
	cfg    config.ClientConfig
	debug  bool
	logger *slog.Logger
}

// Execute runs the vidcast CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand(Options{
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		Config: config.LoadClient(),
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = stopTimeout
	}
	if opts.NewSource == nil {
		opts.NewSource = func(cfg config.ClientConfig) capture.Source {
			return capture.NewFFmpegSource(cfg.FFmpegPath)
		}
	}
	if opts.NewProber == nil {
		opts.NewProber = func(cfg config.ClientConfig) media.DurationProber {
			return media.NewFFProbe(cfg.FFprobePath, cfg.ProbeTimeout)
		}
	}

	a := &cliApp{opts: opts, cfg: opts.Config}

	root := &cobra.Command{
		Use:   "vidcast",
		Short: "Record the screen and publish videos",
		Long: `vidcast captures screen recordings and uploads videos with a thumbnail
and metadata to a vidcast backend.

Uploads go straight to the object store using single-use credentials issued
by the backend; only the metadata record is sent through the API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.setupLogger()
			return nil
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	flags := root.PersistentFlags()
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&a.cfg.APIBaseURL, "api-url", a.cfg.APIBaseURL, "Backend base URL")
	flags.StringVar(&a.cfg.WebBaseURL, "web-url", a.cfg.WebBaseURL, "Web app base URL used for published links")
	flags.StringVar(&a.cfg.FFmpegPath, "ffmpeg", a.cfg.FFmpegPath, "Path to the ffmpeg binary")
	flags.StringVar(&a.cfg.FFprobePath, "ffprobe", a.cfg.FFprobePath, "Path to the ffprobe binary")

	root.AddCommand(a.uploadCommand())
	root.AddCommand(a.recordCommand())
	root.AddCommand(a.probeCommand())

	return root
}

func (a *cliApp) setupLogger() {
	level := config.ParseLevel(a.cfg.LogLevel)
	if a.debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.opts.Err, &slog.HandlerOptions{Level: level}))
}

func (a *cliApp) log() *slog.Logger {
	if a.logger == nil {
		a.setupLogger()
	}
	return a.logger
}
