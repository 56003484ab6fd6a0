package output

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/maxvaer/reconx/internal/scanner"
)

// TextWriter writes colored result lines for kept outcomes.
type TextWriter struct {
	w     io.Writer
	quiet bool

	green, cyan, yellow, red, dim *color.Color
}

// NewTextWriter creates a text writer. noColor disables escape codes.
func NewTextWriter(w io.Writer, noColor, quiet bool) *TextWriter {
	t := &TextWriter{
		w:      w,
		quiet:  quiet,
		green:  color.New(color.FgGreen),
		cyan:   color.New(color.FgCyan),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		dim:    color.New(color.Faint),
	}
	if noColor {
		for _, c := range []*color.Color{t.green, t.cyan, t.yellow, t.red, t.dim} {
			c.DisableColor()
		}
	}
	return t
}

// WriteHeader prints the module banner line.
func (t *TextWriter) WriteHeader(module string, units int) error {
	if t.quiet {
		return nil
	}
	_, err := fmt.Fprintf(t.w, "%s\n", t.cyan.Sprintf("[*] %s: %d probes", module, units))
	return err
}

// WriteResult prints one outcome line.
func (t *TextWriter) WriteResult(o *scanner.Outcome) error {
	if o.Error != nil {
		_, err := fmt.Fprintf(t.w, "%s  %s\n", t.red.Sprintf("ERR"), o.Unit.URL)
		return err
	}

	var size int64
	suffix := ""
	if o.Payload != nil {
		size = o.Payload.ContentLength
		if o.Payload.FinalURL != "" && o.Payload.FinalURL != o.Unit.URL {
			suffix = " -> " + o.Payload.FinalURL
		}
	}
	_, err := fmt.Fprintf(t.w, "%s  %8d  %s%s\n",
		t.colorForStatus(o.Status).Sprintf("%3d", o.Status),
		size,
		o.Unit.URL,
		suffix,
	)
	return err
}

// WriteLine prints an arbitrary result line, e.g. a discovered hostname.
func (t *TextWriter) WriteLine(s string) error {
	_, err := fmt.Fprintf(t.w, "%s  %s\n", t.green.Sprint("+"), s)
	return err
}

// WriteFooter prints the module summary.
func (t *TextWriter) WriteFooter(stats Stats, reportPath string) error {
	if t.quiet {
		return nil
	}
	line := fmt.Sprintf("Completed: %d/%d requests | Kept: %d | Errors: %d | Duration: %s | %.1f req/s",
		stats.Completed,
		stats.TotalRequests,
		stats.KeptCount,
		stats.ErrorCount,
		stats.Duration.Round(time.Millisecond),
		stats.RequestsPerSec,
	)
	if stats.Partial {
		line += " | " + t.yellow.Sprint("partial")
	}
	if _, err := fmt.Fprintf(t.w, "%s\n", t.dim.Sprint(line)); err != nil {
		return err
	}
	if reportPath != "" {
		_, err := fmt.Fprintf(t.w, "Report saved to %s\n", t.cyan.Sprint(reportPath))
		return err
	}
	return nil
}

func (t *TextWriter) colorForStatus(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return t.green
	case code >= 300 && code < 400:
		return t.cyan
	case code >= 400 && code < 500:
		return t.yellow
	default:
		return t.red
	}
}
