package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/pipeline"
)

// Palette. Numbers are ANSI 256 colors.
var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorFail   = lipgloss.Color("167")
	colorLink   = lipgloss.Color("75")
	colorInk    = lipgloss.Color("255")
	colorMuted  = lipgloss.Color("245")
	colorFaint  = lipgloss.Color("240")
)

// Styles shared by the commands and the inspect browser.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleLink      = lipgloss.NewStyle().Foreground(colorLink).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorFaint)
	StyleValue     = lipgloss.NewStyle().Foreground(colorInk)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorAccent)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorWarn)
)

var (
	styleOK      = lipgloss.NewStyle().Foreground(colorOK)
	styleFail    = lipgloss.NewStyle().Foreground(colorFail)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleCommand = lipgloss.NewStyle().Foreground(colorLink)
	styleKey     = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
)

const (
	markOK    = "✓"
	markFail  = "✗"
	markWarn  = "!"
	markInfo  = "›"
	markArrow = "→"
)

// console writes the human-facing status lines of a command. Results go
// to out; the spinner draws on err so piped output stays clean. Writes are
// serialized so the spinner goroutine never interleaves with a message.
type console struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
}

func newConsole(out, err io.Writer) *console {
	return &console{out: out, err: err}
}

func (c *console) line(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

func (c *console) success(format string, args ...any) {
	c.line(styleOK.Render(markOK) + " " + fmt.Sprintf(format, args...))
}

func (c *console) failure(format string, args ...any) {
	c.line(styleFail.Render(markFail) + " " + fmt.Sprintf(format, args...))
}

func (c *console) warning(format string, args ...any) {
	c.line(StyleWarning.Render(markWarn) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (c *console) info(format string, args ...any) {
	c.line(styleMuted.Render(markInfo) + " " + fmt.Sprintf(format, args...))
}

// detail writes an indented secondary line.
func (c *console) detail(format string, args ...any) {
	c.line("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// file announces a written artifact.
func (c *console) file(path string) {
	c.line("  " + StyleDim.Render(markArrow) + " " + StyleValue.Render(path))
}

func (c *console) field(key, value string) {
	c.line(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// stats summarizes a score on one line and says whether the layout or
// render was served from the cache.
func (c *console) stats(st pipeline.Stats, cached bool) {
	parts := []string{
		StyleDim.Render(fmt.Sprintf("%d events", st.Events)),
		StyleDim.Render(fmt.Sprintf("%d measures", st.Measures)),
	}
	if st.Rows > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d rows", st.Rows)))
	}
	if st.Failed > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d failed", st.Failed)))
	}
	source := styleMuted.Render("fresh")
	if cached {
		source = styleOK.Render("cached")
	}
	sep := StyleDim.Render(" · ")
	c.line("  " + strings.Join(append(parts, source), sep))
}

// diagnostics lists the events that could not be laid out, numbered from
// one the way a reader counts measures.
func (c *console) diagnostics(diags []document.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	c.warning("%d event(s) could not be laid out", len(diags))
	for _, d := range diags {
		c.detail("measure %d, event %d: %s (%s)", d.Measure+1, d.Item+1, d.Message, d.Event)
	}
}

// next suggests the command that usually follows.
func (c *console) next(description, cmd string) {
	c.line(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func (c *console) blank() {
	c.line("")
}

// frame redraws the spinner line in place.
func (c *console) frame(glyph, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.err, "\r%s %s", styleSpinner.Render(glyph), StyleDim.Render(message))
}

// clear blanks a spinner line of n cells.
func (c *console) clear(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.err, "\r%s\r", strings.Repeat(" ", n))
}
