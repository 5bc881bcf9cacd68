// Package progress reports how far a build or restore has advanced.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Sink receives progress for a single operation. Start is called once with
// the expected number of steps, Advance after each step, Finish at the end.
type Sink interface {
	Start(total int)
	Advance(n int)
	Finish(msg string)
}

// For returns a Bar drawing on f when enabled and f is a terminal, and Nop
// otherwise.
func For(f *os.File, enabled bool) Sink {
	if !enabled || f == nil {
		return Nop{}
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return Nop{}
	}
	return NewBar(f)
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Start(int)     {}
func (Nop) Advance(int)   {}
func (Nop) Finish(string) {}

var doneStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))

// Bar renders a single-line progress bar with a pos/len counter.
type Bar struct {
	w     io.Writer
	model progress.Model
	pos   int
	total int
}

// NewBar returns a Bar writing to w.
func NewBar(w io.Writer) *Bar {
	return &Bar{
		w:     w,
		model: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (b *Bar) Start(total int) {
	b.total = total
	b.pos = 0
	b.draw()
}

func (b *Bar) Advance(n int) {
	b.pos += n
	if b.total > 0 && b.pos > b.total {
		b.pos = b.total
	}
	b.draw()
}

func (b *Bar) Finish(msg string) {
	if b.total > 0 {
		b.pos = b.total
	}
	b.draw()
	fmt.Fprintf(b.w, " %s\n", doneStyle.Render(msg))
}

func (b *Bar) draw() {
	fmt.Fprintf(b.w, "\r%s %d/%d", b.model.ViewAs(b.percent()), b.pos, b.total)
}

func (b *Bar) percent() float64 {
	if b.total <= 0 {
		return 1
	}
	return float64(b.pos) / float64(b.total)
}

// Recorder keeps every call so tests can assert on progress.
type Recorder struct {
	mu       sync.Mutex
	Total    int
	Advances []int
	Finished []string
}

func (r *Recorder) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Total = total
}

func (r *Recorder) Advance(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Advances = append(r.Advances, n)
}

func (r *Recorder) Finish(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = append(r.Finished, msg)
}

// Steps returns the sum of all advances.
func (r *Recorder) Steps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, n := range r.Advances {
		sum += n
	}
	return sum
}
