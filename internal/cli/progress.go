package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aryankumar/atlas-report/internal/output"
)

// progress redraws a single "Fetching clusters" line on an interactive
// stderr. Elsewhere it stays silent and the logs tell the story.
type progress struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	enabled bool
	drawn   bool
}

func newProgress(w io.Writer, total int, enabled bool) *progress {
	f, ok := w.(*os.File)
	return &progress{
		w:       w,
		total:   total,
		enabled: enabled && ok && output.IsTerminal(f),
	}
}

// Update is an inventory.ProgressFunc; workers call it concurrently
func (p *progress) Update(completed, total int) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\rFetching clusters: %d/%d projects", completed, total)
	p.drawn = true
}

// Done ends the progress line
func (p *progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}
