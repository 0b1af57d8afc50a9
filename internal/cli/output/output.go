// Package output renders CLI output: styled messages, tables and a spinner.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/kevinelliott/stackpick/pkg/config"
)

// Printer writes styled messages. Errors and warnings go to errOut.
type Printer struct {
	out      io.Writer
	errOut   io.Writer
	styles   *Styles
	renderer *lipgloss.Renderer
	noColor  bool
}

// NewPrinter creates a printer on stdout and stderr.
func NewPrinter(cfg *config.Config, noColor bool) *Printer {
	return NewPrinterTo(os.Stdout, os.Stderr, noColor || (cfg != nil && !cfg.UI.UseColors))
}

// NewPrinterTo creates a printer on the given writers.
func NewPrinterTo(out, errOut io.Writer, noColor bool) *Printer {
	r := lipgloss.NewRenderer(out)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		out:      out,
		errOut:   errOut,
		styles:   NewStyles(r),
		renderer: r,
		noColor:  noColor,
	}
}

// Styles returns the printer's styles.
func (p *Printer) Styles() *Styles {
	return p.styles
}

// Writer returns the standard output writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// NoColor reports whether colour is disabled.
func (p *Printer) NoColor() bool {
	return p.noColor
}

// Print writes a formatted line.
func (p *Printer) Print(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Println writes an empty line.
func (p *Printer) Println() {
	fmt.Fprintln(p.out)
}

// Success writes a line prefixed with a check mark.
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.styles.Success.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Info writes an informational line.
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintln(p.out, p.styles.Info.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// Warning writes a warning line to errOut.
func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprintln(p.errOut, p.styles.Warning.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Error writes an error line to errOut.
func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintln(p.errOut, p.styles.Error.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Table creates a table writing to the printer's output.
func (p *Printer) Table() *Table {
	return newTable(p.out, p.renderer)
}
