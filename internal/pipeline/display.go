package pipeline

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Display prints stage progress. It writes to stderr in the CLI so that
// markdown on stdout stays clean.
type Display struct {
	w       io.Writer
	title   string
	verbose bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewDisplay creates a display writing to w. With verbose set, lines are
// printed plainly instead of being updated in place.
func NewDisplay(w io.Writer, title string, verbose bool) *Display {
	return &Display{w: w, title: title, verbose: verbose}
}

// detailColumnWidth is the display width reserved for the stage detail.
var detailColumnWidth = 32

// ansiEscapeRe matches ANSI terminal escape sequences and C0/DEL control characters.
var ansiEscapeRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|[\x00-\x1f\x7f]`)

func sanitize(s string) string {
	return ansiEscapeRe.ReplaceAllString(s, "")
}

// truncate sanitizes s and cuts it to detailColumnWidth runes.
func truncate(s string) string {
	s = sanitize(s)
	if utf8.RuneCountInString(s) <= detailColumnWidth {
		return s
	}
	runes := []rune(s)
	return string(runes[:detailColumnWidth-1]) + "…"
}

// Header prints the run header.
func (d *Display) Header() {
	fmt.Fprintf(d.w, "\n📝 renote — %s\n", sanitize(d.title))
	fmt.Fprintln(d.w, strings.Repeat("─", 72))
}

// StepStart prints a running line. Outside verbose mode the line is redrawn
// every second with the elapsed time until StepDone or StepFailed.
func (d *Display) StepStart(name, detail string) {
	detail = truncate(detail)
	if d.verbose {
		fmt.Fprintf(d.w, "⏳ %-10s %-32s running...\n", name, detail)
		return
	}
	fmt.Fprintf(d.w, "⏳ %-10s %-32s running...", name, detail)

	stop := make(chan struct{})
	done := make(chan struct{})
	d.mu.Lock()
	d.stop, d.done = stop, done
	d.mu.Unlock()
	start := time.Now()

	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(d.w, "\r⏳ %-10s %-32s running... %.0fs",
					name, detail, time.Since(start).Seconds())
			}
		}
	}()
}

func (d *Display) stopTicker() {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

func (d *Display) prefix() string {
	if d.verbose {
		return ""
	}
	return "\r"
}

// StepDone prints a completed stage with its item count.
func (d *Display) StepDone(name, detail string, items int, duration time.Duration) {
	d.stopTicker()
	fmt.Fprintf(d.w, "%s✅ %-10s %-32s %6d items %6.1fs\n",
		d.prefix(), name, truncate(detail), items, duration.Seconds())
}

// StepFailed prints a failed stage.
func (d *Display) StepFailed(name, detail string, err error) {
	d.stopTicker()
	fmt.Fprintf(d.w, "%s❌ %-10s %-32s %s\n", d.prefix(), name, truncate(detail), sanitize(err.Error()))
}

// maxWarnings caps the warning list; the rest is summarised as a count.
const maxWarnings = 20

// Warnings prints non-fatal problems, such as items that could not be
// classified.
func (d *Display) Warnings(warns []error) {
	if len(warns) == 0 {
		return
	}
	fmt.Fprintf(d.w, "⚠️  %d warning(s)\n", len(warns))
	shown := warns
	if len(shown) > maxWarnings {
		shown = shown[:maxWarnings]
	}
	for _, w := range shown {
		fmt.Fprintf(d.w, "  │ %s\n", sanitize(w.Error()))
	}
	if len(warns) > maxWarnings {
		fmt.Fprintf(d.w, "  │ ... (%d more)\n", len(warns)-maxWarnings)
	}
}

// Summary prints the final run summary.
func (d *Display) Summary(items, requests int, total time.Duration) {
	fmt.Fprintln(d.w, strings.Repeat("─", 72))
	fmt.Fprintf(d.w, "✅ Done  %d items  %d requests  %.1fs\n", items, requests, total.Seconds())
	fmt.Fprintln(d.w)
}

// Failed prints a failure summary.
func (d *Display) Failed(err error) {
	fmt.Fprintln(d.w, strings.Repeat("─", 72))
	fmt.Fprintf(d.w, "❌ Failed: %s\n\n", sanitize(err.Error()))
}
