package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vidcast/vidcast/internal/form"
)

// terminalRouter "navigates" by printing the published video's link.
type terminalRouter struct {
	out     io.Writer
	webBase string
}

func (r *terminalRouter) Navigate(assetID string) {
	fmt.Fprintf(r.out, "Published: %s%s\n", strings.TrimRight(r.webBase, "/"), form.DetailPath(assetID))
}

// progressPrinter reports transfer progress, printing at most once per
// percentage point per file.
type progressPrinter struct {
	out io.Writer

	mu   sync.Mutex
	last map[string]int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, last: make(map[string]int)}
}

func (p *progressPrinter) report(name string, sent, total int64) {
	if total <= 0 {
		return
	}
	pct := int(sent * 100 / total)

	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.last[name]; ok && prev == pct {
		return
	}
	p.last[name] = pct

	fmt.Fprintf(p.out, "\rUploading %s: %3d%% (%s / %s)", name, pct, formatBytes(sent), formatBytes(total))
	if sent >= total {
		fmt.Fprintln(p.out)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
