package output

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Progress displays per-module scan progress. A nil *Progress is valid and
// does nothing.
type Progress struct {
	bar *progressbar.ProgressBar
}

// ProgressEnabled reports whether a progress bar should be drawn on stderr.
func ProgressEnabled(quiet bool) bool {
	return !quiet && term.IsTerminal(int(os.Stderr.Fd()))
}

// NewProgress creates a progress bar for total units writing to w.
func NewProgress(w io.Writer, total int, description string) *Progress {
	if total <= 0 {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return &Progress{bar: bar}
}

// Increment records one completed unit.
func (p *Progress) Increment() {
	if p == nil {
		return
	}
	_ = p.bar.Add(1)
}

// Finish completes and clears the bar.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}
