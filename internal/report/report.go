// Package report renders simulator statistics as styled text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultBarWidth = 40
	DefaultRecent   = 10
)

// Format specifies the output format for reports.
type Format string

const (
	// FormatText outputs human-readable text.
	FormatText Format = "text"

	// FormatJSON outputs indented JSON.
	FormatJSON Format = "json"
)

// Options controls report rendering.
type Options struct {
	// Format selects text or JSON output.
	// Default: FormatText
	Format Format

	// Color enables lipgloss styling. Styling is still dropped when the
	// writer is not a terminal.
	// Default: true
	Color bool

	// BarWidth is the width of the access distribution bars in cells.
	// Default: 40
	BarWidth int

	// Recent is how many history entries the full report lists.
	// Default: 10
	Recent int

	// Language drives digit grouping of counters.
	// Default: language.English
	Language language.Tag
}

// DefaultOptions returns sensible defaults for reports.
func DefaultOptions() Options {
	return Options{
		Format:   FormatText,
		Color:    true,
		BarWidth: DefaultBarWidth,
		Recent:   DefaultRecent,
		Language: language.English,
	}
}

// Reporter writes reports to a single writer.
type Reporter struct {
	opts   Options
	writer io.Writer
	num    *message.Printer
	styles styles
}

// New creates a Reporter. Zero-valued options fall back to their defaults.
func New(w io.Writer, opts Options) *Reporter {
	def := DefaultOptions()
	if opts.Format == "" {
		opts.Format = def.Format
	}
	if opts.BarWidth <= 0 {
		opts.BarWidth = def.BarWidth
	}
	if opts.Recent <= 0 {
		opts.Recent = def.Recent
	}
	if opts.Language == language.Und {
		opts.Language = def.Language
	}
	return &Reporter{
		opts:   opts,
		writer: w,
		num:    message.NewPrinter(opts.Language),
		styles: newStyles(lipgloss.NewRenderer(w), opts.Color),
	}
}

// Options returns the effective options.
func (r *Reporter) Options() Options { return r.opts }

// JSON writes v as indented JSON followed by a newline.
func (r *Reporter) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	_, err = fmt.Fprintf(r.writer, "%s\n", data)
	return err
}

// Stats writes a stats value: its String form as text, or the value as JSON.
func (r *Reporter) Stats(v fmt.Stringer) error {
	if r.opts.Format == FormatJSON {
		return r.JSON(v)
	}
	_, err := io.WriteString(r.writer, v.String())
	return err
}

// Message writes a one-line status message. In JSON mode it is wrapped as
// {"message": "..."}.
func (r *Reporter) Message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if r.opts.Format == FormatJSON {
		return r.JSON(struct {
			Message string `json:"message"`
		}{msg})
	}
	_, err := fmt.Fprintln(r.writer, msg)
	return err
}

// Error writes an error as "Error: <msg>", or {"error": "<msg>"} in JSON mode.
func (r *Reporter) Error(err error) error {
	if r.opts.Format == FormatJSON {
		return r.JSON(struct {
			Error string `json:"error"`
		}{err.Error()})
	}
	_, werr := fmt.Fprintln(r.writer, r.styles.err.Render("Error: "+err.Error()))
	return werr
}

// Count formats n with locale digit grouping, e.g. 12,345.
func (r *Reporter) Count(n uint64) string {
	return r.num.Sprintf("%d", n)
}
