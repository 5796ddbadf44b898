package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFFProbeProbe(t *testing.T) {
	probe := NewFFProbe("", time.Second)
	probe.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary != "ffprobe" {
			t.Fatalf("unexpected binary %q", binary)
		}
		if got := args[len(args)-1]; got != "/tmp/clip.mp4" {
			t.Fatalf("unexpected input %q", got)
		}
		return []byte("12.500000\n"), nil
	}

	asset := &Asset{Name: "clip.mp4", MimeType: "video/mp4", path: "/tmp/clip.mp4"}
	seconds, err := probe.Probe(context.Background(), asset)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if seconds != 12.5 {
		t.Fatalf("unexpected duration %v", seconds)
	}
}

func TestFFProbeOutputs(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    float64
		wantErr bool
	}{
		{name: "not available", output: "N/A\n", want: 0},
		{name: "empty", output: "", want: 0},
		{name: "negative", output: "-3", want: 0},
		{name: "garbage", output: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := NewFFProbe("ffprobe", time.Second)
			probe.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
				return []byte(tt.output), nil
			}
			got, err := probe.Probe(context.Background(), &Asset{Name: "x", path: "/tmp/x"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Probe() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFFProbeInMemoryUnsupported(t *testing.T) {
	probe := NewFFProbe("ffprobe", time.Second)
	probe.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		t.Fatal("runner should not be called")
		return nil, nil
	}
	_, err := probe.Probe(context.Background(), FromBytes("a.webm", "video/webm", []byte("x")))
	if !errors.Is(err, ErrProbeUnsupported) {
		t.Fatalf("expected ErrProbeUnsupported, got %v", err)
	}
}

func TestFFProbeRunnerError(t *testing.T) {
	probe := NewFFProbe("ffprobe", time.Second)
	boom := errors.New("boom")
	probe.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return nil, boom
	}
	if _, err := probe.Probe(context.Background(), &Asset{Name: "x", path: "/tmp/x"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
}
