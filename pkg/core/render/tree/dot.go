package tree

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/engrave/pkg/core/render"
	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/errors"
)

// Options configures layout tree rendering.
type Options struct {
	// Detailed adds extents, stems and ledger counts to item labels.
	// When false, items show only their kind and width.
	Detailed bool

	// MaxItems limits how many items per measure are drawn. Zero draws all.
	MaxItems int
}

// ToDOT converts a staff layout to Graphviz DOT: the staff at the root,
// then rows, measures and items in reading order.
//
// Placeholder items are rendered with dashed outlines and grey fill so
// failed events stand out.
func ToDOT(s *staff.Staff, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=lightblue];\n", "staff",
		fmt.Sprintf("staff\nwidth: %s\nheight: %s", num(s.Width()), num(s.Height())))

	var edges []string
	edge := func(from, to string) { edges = append(edges, fmt.Sprintf("  %q -> %q;\n", from, to)) }

	for ri, row := range s.Rows {
		rid := fmt.Sprintf("r%d", ri)
		fmt.Fprintf(&buf, "  %q [label=%q];\n", rid,
			fmt.Sprintf("row %d\nwidth: %s\nextra: %s", ri+1, num(row.Width), num(s.Extra(row))))
		edge("staff", rid)

		for mi, m := range row.Measures {
			mid := fmt.Sprintf("%s/m%d", rid, mi)
			fmt.Fprintf(&buf, "  %q [label=%q];\n", mid,
				fmt.Sprintf("measure %d\nwidth: %s", mi+1, num(m.Width)))
			edge(rid, mid)

			for ii, it := range m.Items {
				if opts.MaxItems > 0 && ii >= opts.MaxItems {
					more := mid + "/more"
					fmt.Fprintf(&buf, "  %q [label=%q, style=dotted];\n", more,
						fmt.Sprintf("+%d more", len(m.Items)-ii))
					edge(mid, more)
					break
				}
				iid := fmt.Sprintf("%s/i%d", mid, ii)
				attrs := fmtAttrs(it, fmtLabel(it, opts.Detailed))
				fmt.Fprintf(&buf, "  %q [%s];\n", iid, strings.Join(attrs, ", "))
				edge(mid, iid)
			}
		}
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func fmtLabel(it staff.Item, detailed bool) string {
	head := it.Kind.String()
	if it.Kind == staff.ItemNotes || it.Kind == staff.ItemRest {
		head += " " + it.Duration.String()
	}
	parts := []string{head, "width: " + num(it.Width)}
	if !detailed {
		return strings.Join(parts, "\n")
	}

	parts = append(parts, "top: "+num(it.Top), "bottom: "+num(it.Bottom))
	if it.Kind == staff.ItemNotes {
		dir := "down"
		if it.StemUp {
			dir = "up"
		}
		parts = append(parts, fmt.Sprintf("heads: %d", len(it.Heads)), "stem: "+dir)
		if len(it.Ledgers) > 0 {
			parts = append(parts, fmt.Sprintf("ledgers: %d", len(it.Ledgers)))
		}
		if it.Staggered {
			parts = append(parts, "staggered")
		}
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(it staff.Item, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if it.Kind == staff.ItemPlaceholder {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render DOT")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}
