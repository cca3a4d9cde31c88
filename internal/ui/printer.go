package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Printer writes styled command output. Styling is dropped automatically
// for pipes, CI, and NO_COLOR.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
	quiet  bool
}

// NewPrinter creates a printer for w, detecting whether color is usable.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		out:    w,
		styles: GetStyles(!useColor(w)),
	}
}

// NewPlainPrinter creates a printer that never styles, for tests and
// machine-read output.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{out: w, styles: NoColorStyles()}
}

// SetQuiet suppresses everything except errors and explicitly forced lines.
func (p *Printer) SetQuiet(quiet bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quiet = quiet
}

// Header prints a bold section heading.
func (p *Printer) Header(text string) {
	p.print(p.styles.Header.Render(text) + "\n")
}

// Line prints an unstyled line.
func (p *Printer) Line(format string, args ...any) {
	p.print(fmt.Sprintf(format, args...) + "\n")
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	p.print(p.styles.Success.Render(fmt.Sprintf(format, args...)) + "\n")
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	p.print(p.styles.Warning.Render("warning: ") + fmt.Sprintf(format, args...) + "\n")
}

// Error prints an error line even in quiet mode.
func (p *Printer) Error(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprint(p.out, p.styles.Error.Render("error: ")+fmt.Sprintf(format, args...)+"\n")
}

// Match prints one similarity result line: tag, score, usage.
func (p *Printer) Match(tag string, similarity float64, usage int) {
	p.print(fmt.Sprintf("  %s  %s  %s\n",
		p.styles.Tag.Render(fmt.Sprintf("%-24s", tag)),
		p.styles.Score.Render(fmt.Sprintf("%.3f", similarity)),
		p.styles.Label.Render(fmt.Sprintf("(%d notes)", usage))))
}

// Merge prints one merge suggestion line.
func (p *Printer) Merge(keep, merge string, similarity float64, keepUsage, mergeUsage int) {
	p.print(fmt.Sprintf("  %s %s %s  %s  %s\n",
		p.styles.Tag.Render(merge),
		p.styles.Dim.Render("->"),
		p.styles.Tag.Render(keep),
		p.styles.Score.Render(fmt.Sprintf("%.3f", similarity)),
		p.styles.Label.Render(fmt.Sprintf("(%d vs %d notes)", mergeUsage, keepUsage))))
}

// KeyValue prints an aligned label/value pair.
func (p *Printer) KeyValue(key, value string) {
	p.print(fmt.Sprintf("  %s %s\n",
		p.styles.Label.Render(fmt.Sprintf("%-16s", key+":")), value))
}

// Rule prints a separator line.
func (p *Printer) Rule() {
	p.print(p.styles.Dim.Render(strings.Repeat("-", 48)) + "\n")
}

func (p *Printer) print(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quiet {
		return
	}
	_, _ = fmt.Fprint(p.out, s)
}
