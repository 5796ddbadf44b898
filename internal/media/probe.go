package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrProbeUnsupported indicates the asset cannot be probed (for example an
// in-memory asset handed to a file-based prober).
var ErrProbeUnsupported = errors.New("duration probe unsupported for asset")

// DurationProber reports the playback duration of a media asset in seconds.
type DurationProber interface {
	Probe(ctx context.Context, asset *Asset) (float64, error)
}

// CommandRunner executes external commands and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// FFProbe reads container durations using the ffprobe CLI tool.
type FFProbe struct {
	Binary  string
	Args    []string
	Run     CommandRunner
	Timeout time.Duration
}

// NewFFProbe constructs a DurationProber that shells out to ffprobe.
func NewFFProbe(binary string, timeout time.Duration) *FFProbe {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FFProbe{
		Binary:  binary,
		Args:    []string{"-v", "quiet", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1"},
		Run:     defaultCommandRunner,
		Timeout: timeout,
	}
}

// Probe runs ffprobe against the asset's backing file. A duration ffprobe
// cannot determine yet ("N/A") is reported as zero without an error.
func (p *FFProbe) Probe(ctx context.Context, asset *Asset) (float64, error) {
	if p == nil {
		return 0, ErrProbeUnsupported
	}
	if asset == nil || asset.Path() == "" {
		return 0, ErrProbeUnsupported
	}
	if p.Run == nil {
		p.Run = defaultCommandRunner
	}

	execCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	args := append([]string{}, p.Args...)
	args = append(args, asset.Path())

	out, err := p.Run(execCtx, p.Binary, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", asset.Name, err)
	}

	return parseDuration(string(out))
}

func parseDuration(output string) (float64, error) {
	value := strings.TrimSpace(output)
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	if value == "" || strings.EqualFold(value, "N/A") {
		return 0, nil
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", value, err)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, nil
	}
	return seconds, nil
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.Output()
}
