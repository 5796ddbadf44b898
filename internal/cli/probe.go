package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidcast/vidcast/internal/media"
)

func (a *cliApp) probeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE",
		Short: "Print the duration of a media file in seconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := media.FromFile(args[0])
			if err != nil {
				return err
			}
			seconds, err := a.opts.NewProber(a.cfg).Probe(cmd.Context(), asset)
			if errors.Is(err, media.ErrProbeUnsupported) {
				return fmt.Errorf("cannot determine duration of %s", asset.Name)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.opts.Out, "%.3f\n", seconds)
			return nil
		},
	}
}
