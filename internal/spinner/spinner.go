// Package spinner renders a terminal progress indicator for long-running
// pipeline phases such as corpus preparation and model fitting.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Progress animates a spinner next to a phase label and a running elapsed
// time. It is safe to update the label from other goroutines while the
// animation runs.
type Progress struct {
	frames []string
	delay  time.Duration
	writer io.Writer

	mu      sync.RWMutex
	phase   string
	active  bool
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a progress indicator writing to w, initially labeled phase.
func New(ctx context.Context, w io.Writer, phase string) *Progress {
	pctx, cancel := context.WithCancel(ctx)
	return &Progress{
		frames: []string{"◜", "◠", "◝", "◞", "◡", "◟"},
		delay:  100 * time.Millisecond,
		writer: w,
		phase:  phase,
		ctx:    pctx,
		cancel: cancel,
	}
}

// Start begins the animation. Calling Start on a running indicator is a
// no-op.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return
	}
	p.active = true
	p.started = time.Now()

	p.wg.Add(1)
	go p.run()
}

// Phase replaces the label without interrupting the animation.
func (p *Progress) Phase(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = label
}

// Active reports whether the animation is running.
func (p *Progress) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Stop ends the animation and clears the line. When the writer is a
// terminal the whole line is erased; redirected output gets a bare
// carriage return so captured logs stay readable.
func (p *Progress) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()

	if f, ok := p.writer.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.writer, "\r\033[2K")
	} else {
		fmt.Fprint(p.writer, "\r")
	}
}

func (p *Progress) run() {
	defer p.wg.Done()

	frame := 0
	ticker := time.NewTicker(p.delay)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			glyph := p.frames[frame%len(p.frames)]
			label := p.phase
			elapsed := time.Since(p.started).Round(time.Second)
			p.mu.RUnlock()

			fmt.Fprintf(p.writer, "\r%s %s (%s)", glyph, label, elapsed)
			frame++
		}
	}
}
