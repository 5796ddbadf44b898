package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultChunkSize    = 64 * 1024
	defaultStopGrace    = 5 * time.Second
	defaultStartupGrace = 750 * time.Millisecond
)

// FFmpegSource captures the screen by running ffmpeg and reading a WebM
// (VP8/Opus) stream from its stdout.
type FFmpegSource struct {
	Binary       string
	Format       string // x11grab, avfoundation or gdigrab
	Input        string
	AudioFormat  string
	AudioInput   string
	FrameRate    int
	ChunkSize    int
	StopGrace    time.Duration
	StartupGrace time.Duration
	Logger       *slog.Logger
}

// NewFFmpegSource returns a source configured for the current platform.
func NewFFmpegSource(binary string) *FFmpegSource {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	src := &FFmpegSource{
		Binary:       binary,
		FrameRate:    30,
		ChunkSize:    defaultChunkSize,
		StopGrace:    defaultStopGrace,
		StartupGrace: defaultStartupGrace,
	}
	switch runtime.GOOS {
	case "darwin":
		src.Format = "avfoundation"
		src.Input = "1"
	case "windows":
		src.Format = "gdigrab"
		src.Input = "desktop"
	default:
		src.Format = "x11grab"
		src.Input = os.Getenv("DISPLAY")
		if src.Input == "" {
			src.Input = ":0.0"
		}
		src.AudioFormat = "pulse"
		src.AudioInput = "default"
	}
	return src
}

// Args builds the ffmpeg argument list for the given constraints.
func (s *FFmpegSource) Args(constraints Constraints) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}

	input := s.Input
	withAudio := constraints.Audio
	if s.Format == "avfoundation" {
		// avfoundation takes "video:audio" in a single input
		if withAudio {
			input += ":0"
		} else {
			input += ":none"
		}
	}

	args = append(args, "-f", s.Format)
	if s.FrameRate > 0 {
		args = append(args, "-framerate", strconv.Itoa(s.FrameRate))
	}
	args = append(args, "-i", input)

	if withAudio && s.Format != "avfoundation" {
		if s.AudioFormat != "" {
			args = append(args, "-f", s.AudioFormat, "-i", s.AudioInput)
		} else {
			withAudio = false
		}
	}

	args = append(args, "-c:v", "libvpx", "-deadline", "realtime", "-cpu-used", "8", "-b:v", "2M")
	if withAudio {
		args = append(args, "-c:a", "libopus")
	} else {
		args = append(args, "-an")
	}
	return append(args, "-f", "webm", "pipe:1")
}

// Acquire starts ffmpeg and returns the running stream once the process has
// survived its startup grace period.
func (s *FFmpegSource) Acquire(ctx context.Context, constraints Constraints) (Stream, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := s.Args(constraints)

	cmd := exec.Command(s.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s not found", ErrCaptureUnavailable, s.Binary)
		}
		return nil, fmt.Errorf("%w: start %s: %v", ErrCaptureUnavailable, s.Binary, err)
	}
	logger.Debug("ffmpeg capture started", slog.Int("pid", cmd.Process.Pid), slog.Any("args", args))

	chunkSize := s.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	proc := &ffmpegProcess{
		cmd:    cmd,
		grace:  s.StopGrace,
		chunks: make(chan []byte, 16),
		exited: make(chan struct{}),
	}
	if proc.grace <= 0 {
		proc.grace = defaultStopGrace
	}
	go proc.pump(stdout, chunkSize)

	startup := s.StartupGrace
	if startup <= 0 {
		startup = defaultStartupGrace
	}
	timer := time.NewTimer(startup)
	defer timer.Stop()

	select {
	case <-proc.exited:
		return nil, classifyExit(proc.waitErr, stderr.String())
	case <-ctx.Done():
		go func() {
			for range proc.chunks {
			}
		}()
		_ = proc.stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	stream := &ffmpegStream{proc: proc}
	stream.tracks = append(stream.tracks, &processTrack{kind: TrackVideo, proc: proc})
	if constraints.Audio && (s.Format == "avfoundation" || s.AudioFormat != "") {
		stream.tracks = append(stream.tracks, &processTrack{kind: TrackAudio, proc: proc})
	}
	return stream, nil
}

func classifyExit(waitErr error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "not authorized") ||
		strings.Contains(lower, "not permitted") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	}
	if msg == "" && waitErr != nil {
		msg = waitErr.Error()
	}
	return fmt.Errorf("%w: ffmpeg exited: %s", ErrCaptureUnavailable, msg)
}

type ffmpegProcess struct {
	cmd    *exec.Cmd
	grace  time.Duration
	chunks chan []byte

	exited  chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

func (p *ffmpegProcess) pump(stdout io.Reader, chunkSize int) {
	for {
		buf := make([]byte, chunkSize)
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			p.chunks <- buf[:n]
		}
		if err != nil {
			break
		}
	}
	close(p.chunks)
	p.waitErr = p.cmd.Wait()
	close(p.exited)
}

func (p *ffmpegProcess) running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

func (p *ffmpegProcess) stop() error {
	p.stopOnce.Do(func() {
		if !p.running() {
			return
		}
		if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
			p.stopErr = p.cmd.Process.Kill()
			return
		}
		timer := time.NewTimer(p.grace)
		defer timer.Stop()
		select {
		case <-p.exited:
		case <-timer.C:
			p.stopErr = p.cmd.Process.Kill()
		}
	})
	return p.stopErr
}

type ffmpegStream struct {
	proc   *ffmpegProcess
	tracks []Track
}

func (s *ffmpegStream) Tracks() []Track       { return s.tracks }
func (s *ffmpegStream) Chunks() <-chan []byte { return s.proc.chunks }
func (s *ffmpegStream) MimeType() string      { return "video/webm" }

// processTrack is a track backed by the shared ffmpeg process; stopping any
// track stops the process.
type processTrack struct {
	kind TrackKind
	proc *ffmpegProcess

	mu      sync.Mutex
	stopped bool
}

func (t *processTrack) Kind() TrackKind { return t.kind }

func (t *processTrack) Stop() error {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	return t.proc.stop()
}

func (t *processTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.stopped && t.proc.running()
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   bytes.Buffer
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if over := b.buf.Len() - b.limit; over > 0 {
		b.buf.Next(over)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
