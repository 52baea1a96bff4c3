package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/pipeline"
)

// visualizeCommand creates the visualize command for rendering a layout
// document.
func (c *CLI) visualizeCommand() *cobra.Command {
	var (
		lf layoutFlags
		rf renderFlags
	)

	cmd := &cobra.Command{
		Use:   "visualize [layout.json]",
		Short: "Render a layout document",
		Long: `Render a layout document.

The visualize command takes a document written by 'layout' and renders it.
Besides the notation formats it can draw the layout tree itself: -f dot
writes Graphviz DOT and -f tree renders it to SVG, one node per row, measure
and item with its width and extents (more with --detailed). Placeholder
items are drawn dashed.

BSON documents carry no layout and are laid out again first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.renderOptions(&lf, &rf)
			if err != nil {
				return err
			}
			return c.runVisualize(cmd.Context(), args[0], opts, rf.output, lf.noCache)
		},
	}

	cmd.Flags().StringVar(&lf.policy, "policy", "", "invalid event policy when laying out again: skip (default), placeholder, fail")
	cmd.Flags().StringVar(&lf.font, "font", "", "SMuFL font file (.otf/.ttf) for outlines and the SVG font face")
	cmd.Flags().BoolVar(&lf.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVarP(&rf.formats, "format", "f", "", "output format(s): svg (default), png, pdf, json, dot, tree (comma-separated)")
	cmd.Flags().StringVarP(&rf.output, "output", "o", "", "output file (single format), base path (multiple) or - for stdout")
	cmd.Flags().StringVar(&rf.title, "title", "", "document title (default: from the document)")
	cmd.Flags().BoolVar(&rf.outlines, "outlines", false, "draw glyphs as paths instead of font text (SVG)")
	cmd.Flags().StringVar(&rf.background, "background", "", "background color (SVG, PDF)")
	cmd.Flags().Float64Var(&rf.scale, "scale", 0, "pixel density (PNG, default 2)")
	cmd.Flags().BoolVar(&rf.transparent, "transparent", false, "transparent background (PNG)")
	cmd.Flags().BoolVar(&rf.detailed, "detailed", false, "show item details (dot, tree)")

	return cmd
}

// runVisualize loads the document and renders it.
func (c *CLI) runVisualize(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	doc, err := c.loadDocument(input, &opts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spin := startSpinner(ctx, c.ui, "Rendering "+input+"...")

	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, doc, opts)
	if err != nil {
		spin.fail("Visualization")
		return fmt.Errorf("visualize: %w", err)
	}
	spin.stop()

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: artifacts,
		formats:   opts.Formats,
		input:     basePath("", input),
		output:    output,
	})
	if err != nil {
		return err
	}
	if output == "-" {
		return nil
	}

	c.ui.success("Rendered %s", input)
	for _, p := range paths {
		c.ui.file(p)
	}
	c.ui.stats(pipeline.Stats{
		Events:   doc.Score.Len(),
		Measures: len(doc.Score.Measures),
		Rows:     len(doc.Staff.Rows),
	}, cacheHit)
	return nil
}

// loadDocument reads a layout document, laying it out again when it has no
// staff. The document's renderer replaces the configured one.
func (c *CLI) loadDocument(path string, opts *pipeline.Options) (*document.Document, error) {
	doc, err := document.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", path, err)
	}
	opts.Renderer = doc.Renderer
	if doc.Staff != nil {
		return doc, nil
	}

	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	c.Logger.Debug("laying out stored document", "id", doc.ID)
	if err := doc.Relayout(opts.Renderer, opts.Metrics(), pipeline.Substitute(opts.Policy, opts.Renderer)); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return doc, nil
}
