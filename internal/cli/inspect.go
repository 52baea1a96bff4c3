package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/pipeline"
	"github.com/matzehuels/engrave/pkg/storage"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorInk)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorFaint)
)

// inspectCommand creates the inspect command, an interactive browser for
// a layout.
func (c *CLI) inspectCommand() *cobra.Command {
	var lf layoutFlags

	cmd := &cobra.Command{
		Use:   "inspect [score|layout.json|id]",
		Short: "Browse a layout interactively",
		Long: `Browse a layout interactively.

Lists every measure with its row, width and vertical extent. Selecting a
measure shows its items: kind, duration, width, top and bottom, stem
direction, ledger lines and staggered heads. Events that failed to lay out
are listed under their measure.

The argument is a score file, a layout document or the id of a stored score.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(&lf)
			if err != nil {
				return err
			}
			doc, err := c.resolveDocument(cmd.Context(), args[0], opts, lf.noCache)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(newInspectModel(doc), tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	lf.register(cmd)
	return cmd
}

// resolveDocument loads arg as a stored id, a layout document or a score.
func (c *CLI) resolveDocument(ctx context.Context, arg string, opts pipeline.Options, noCache bool) (*document.Document, error) {
	if errors.ValidateScoreID(arg) == nil {
		var doc *document.Document
		err := c.withStore(ctx, func(s storage.Store) error {
			var err error
			doc, err = c.storedDocument(ctx, s, arg)
			return err
		})
		return doc, err
	}
	if strings.HasSuffix(arg, ".layout.json") || strings.HasSuffix(arg, ".bson") {
		return c.loadDocument(arg, &opts)
	}
	doc, _, err := c.buildDocument(ctx, arg, opts, noCache)
	return doc, err
}

// =============================================================================
// inspectModel - Interactive layout browser
// =============================================================================

// measureRef locates a measure on the staff.
type measureRef struct {
	row, index int // index counts measures across rows
	m          staff.Measure
}

// inspectModel is the bubbletea model for browsing measures and items.
type inspectModel struct {
	doc      *document.Document
	measures []measureRef
	cursor   int
	offset   int
	height   int
}

func newInspectModel(doc *document.Document) inspectModel {
	var refs []measureRef
	for ri, row := range doc.Staff.Rows {
		for _, m := range row.Measures {
			refs = append(refs, measureRef{row: ri, index: len(refs), m: m})
		}
	}
	return inspectModel{doc: doc, measures: refs, height: 10}
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.measures)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = max(len(m.measures)-1, 0)
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height/3, 5)
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
	return m, nil
}

func (m inspectModel) View() string {
	var b strings.Builder

	title := m.doc.Title
	if title == "" {
		title = "Untitled"
	}
	s := m.doc.Staff
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%d rows · %d measures · %s × %s",
		len(s.Rows), len(m.measures), num(s.Width()), num(s.Height()))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	if len(m.measures) == 0 {
		b.WriteString(listDimStyle.Render("  no measures"))
		return b.String()
	}

	end := min(m.offset+m.height, len(m.measures))
	for i := m.offset; i < end; i++ {
		ref := m.measures[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%srow %-3d measure %-4d width %-8s items %d",
			cursor, ref.row+1, ref.index+1, num(ref.m.Width), len(ref.m.Items))
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		if n := len(m.diagnostics(ref.index)); n > 0 {
			b.WriteString(" " + StyleWarning.Render(fmt.Sprintf("%d failed", n)))
		}
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.measures))))
	b.WriteString("\n\n")

	ref := m.measures[m.cursor]
	b.WriteString(itemTable(ref.m.Items))
	b.WriteString("\n")
	for _, d := range m.diagnostics(ref.index) {
		b.WriteString(StyleWarning.Render(fmt.Sprintf("  ! event %d: %s (%s)", d.Item+1, d.Message, d.Event)))
		b.WriteString("\n")
	}
	return b.String()
}

// diagnostics returns the failures reported for measure index.
func (m inspectModel) diagnostics(index int) []document.Diagnostic {
	var out []document.Diagnostic
	for _, d := range m.doc.Diagnostics {
		if d.Measure == index {
			out = append(out, d)
		}
	}
	return out
}

// itemTable renders the items of one measure.
func itemTable(items []staff.Item) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = itemRow(i, it)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorFaint)).
		Headers("#", "Kind", "Duration", "Width", "Top", "Bottom", "Stem", "Ledgers", "Heads").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < len(items) && items[row].Kind == staff.ItemPlaceholder {
				return lipgloss.NewStyle().Foreground(colorWarn)
			}
			if col == 0 {
				return listDimStyle
			}
			return listNormalStyle
		})
	return t.Render()
}

func itemRow(i int, it staff.Item) []string {
	dur, stem, ledgers, heads := "—", "—", "—", "—"
	switch it.Kind {
	case staff.ItemNotes:
		dur = it.Duration.String()
		stem = "down"
		if it.StemUp {
			stem = "up"
		}
		if len(it.Ledgers) > 0 {
			ledgers = strconv.Itoa(len(it.Ledgers))
		}
		heads = strconv.Itoa(len(it.Heads))
		if it.Staggered {
			heads += " staggered"
		}
	case staff.ItemRest:
		dur = it.Duration.String()
	}
	return []string{
		strconv.Itoa(i + 1), it.Kind.String(), dur,
		num(it.Width), num(it.Top), num(it.Bottom),
		stem, ledgers, heads,
	}
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) }

// =============================================================================
// Helpers
// =============================================================================

func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}
