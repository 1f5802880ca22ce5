// Package progress renders a single-line progress bar for batch lookups.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 40

// Bar counts finished items out of a known total.
type Bar struct {
	out       io.Writer
	label     string
	total     int
	current   int
	mu        sync.Mutex
	startTime time.Time
	lastPrint time.Time
	done      bool
}

// New creates a progress bar on stdout.
func New(total int, label string) *Bar {
	return NewWithWriter(os.Stdout, total, label)
}

// NewWithWriter creates a progress bar that renders to w.
func NewWithWriter(w io.Writer, total int, label string) *Bar {
	now := time.Now()
	return &Bar{
		out:       w,
		label:     label,
		total:     total,
		startTime: now,
		lastPrint: now,
	}
}

// Increment records one finished item. The bar is redrawn at most every
// 500ms, and always for the last item.
func (b *Bar) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current < b.total {
		b.current++
	}
	now := time.Now()
	if now.Sub(b.lastPrint) > 500*time.Millisecond || b.current >= b.total {
		b.render()
		b.lastPrint = now
	}
}

// Current returns the number of finished items.
func (b *Bar) Current() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Finish draws the completed bar and ends the line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return
	}
	b.current = b.total
	b.render()
	fmt.Fprintln(b.out)
	b.done = true
}

func (b *Bar) render() {
	if b.done || b.total <= 0 {
		return
	}

	elapsed := time.Since(b.startTime)
	var eta time.Duration
	if b.current > 0 {
		eta = elapsed / time.Duration(b.current) * time.Duration(b.total-b.current)
	}

	filled := barWidth * b.current / b.total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(b.out, "\r[%s] %d/%d %s (%.1f%%) - Elapsed: %s - ETA: %s   ",
		bar,
		b.current,
		b.total,
		b.label,
		float64(b.current)/float64(b.total)*100,
		formatDuration(elapsed),
		formatDuration(eta),
	)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
