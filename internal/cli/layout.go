package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/pipeline"
)

// layoutCommand creates the layout command for computing a layout document.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		lf     layoutFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout [score]",
		Short: "Compute the staff layout of a score",
		Long: `Compute the staff layout of a score.

The layout command parses a score and lays it out, writing a layout document
(<input>.layout.json, or BSON when -o ends in .bson). The document holds the
score, the renderer constants, every row, measure and item with its extents,
and a diagnostic for each event that could not be laid out.

Render the document with 'visualize' or browse it with 'inspect'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(&lf)
			if err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), args[0], opts, output, lf.noCache)
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")

	return cmd
}

// runLayout parses and lays out input, then writes the document.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	doc, cached, err := c.buildDocument(ctx, input, opts, noCache)
	if err != nil {
		return err
	}

	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", input) + ".layout.json"
	}
	if err := document.WriteFile(doc, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	c.ui.success("Layout complete")
	c.ui.file(outputPath)
	c.ui.stats(pipeline.Stats{
		Events:   doc.Score.Len(),
		Measures: len(doc.Score.Measures),
		Rows:     len(doc.Staff.Rows),
	}, cached)
	c.ui.diagnostics(doc.Diagnostics)

	c.ui.blank()
	c.ui.next("Render", "engrave visualize "+outputPath)
	return nil
}

// buildDocument parses and lays out input through the runner, reporting
// whether the layout came from the cache.
func (c *CLI) buildDocument(ctx context.Context, input string, opts pipeline.Options, noCache bool) (*document.Document, bool, error) {
	if err := readSource(input, &opts); err != nil {
		return nil, false, err
	}
	if err := opts.ValidateForParse(); err != nil {
		return nil, false, err
	}
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return nil, false, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spin := startSpinner(ctx, c.ui, "Laying out "+input+"...")

	sc, err := runner.Parse(ctx, opts)
	if err != nil {
		spin.fail("Parse")
		return nil, false, fmt.Errorf("parse: %w", err)
	}
	l, cached, err := runner.LayoutWithCacheInfo(ctx, sc, opts)
	if err != nil {
		spin.fail("Layout")
		return nil, false, fmt.Errorf("layout: %w", err)
	}
	spin.stop()
	prog.done(fmt.Sprintf("Laid out %d measures in %d rows", len(sc.Measures), len(l.Staff.Rows)))

	doc := pipeline.NewDocument(sc, opts)
	doc.Staff = l.Staff
	doc.Diagnostics = l.Diagnostics
	return doc, cached, ctx.Err()
}
