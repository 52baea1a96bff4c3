package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bep/debounce"
	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/pipeline"
)

// watchInterval is how often --watch polls the input file.
const watchInterval = 250 * time.Millisecond

// watchDelay is the quiet period after the last change before re-rendering.
const watchDelay = 300 * time.Millisecond

// renderFlags holds render command flags not covered by layoutFlags.
type renderFlags struct {
	formats     string
	output      string
	title       string
	outlines    bool
	background  string
	scale       float64
	transparent bool
	detailed    bool
	watch       bool
}

// renderCommand creates the render command: score to artifacts in one step.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		lf layoutFlags
		rf renderFlags
	)

	cmd := &cobra.Command{
		Use:   "render [score]",
		Short: "Render a score to SVG, PNG, PDF or JSON",
		Long: `Render a score to SVG, PNG, PDF or JSON.

The score is parsed (text notation, or MIDI when the file is a Standard MIDI
File), laid out on a staff that wraps into rows, and rendered to each
requested format. Outputs are written next to the input unless -o is given;
use -o - to write a single format to stdout.

Results are cached, so re-rendering an unchanged score is instant. With
--watch the score is re-rendered whenever the file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.renderOptions(&lf, &rf)
			if err != nil {
				return err
			}
			if rf.watch {
				return c.watchRender(cmd.Context(), args[0], opts, rf.output, lf.noCache)
			}
			return c.runRender(cmd.Context(), args[0], opts, rf.output, lf.noCache)
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVarP(&rf.formats, "format", "f", "", "output format(s): svg (default), png, pdf, json, document, dot, tree (comma-separated)")
	cmd.Flags().StringVarP(&rf.output, "output", "o", "", "output file (single format), base path (multiple) or - for stdout")
	cmd.Flags().StringVar(&rf.title, "title", "", "document title (default: from the score)")
	cmd.Flags().BoolVar(&rf.outlines, "outlines", false, "draw glyphs as paths instead of font text (SVG)")
	cmd.Flags().StringVar(&rf.background, "background", "", "background color (SVG, PDF)")
	cmd.Flags().Float64Var(&rf.scale, "scale", 0, "pixel density (PNG, default 2)")
	cmd.Flags().BoolVar(&rf.transparent, "transparent", false, "transparent background (PNG)")
	cmd.Flags().BoolVar(&rf.detailed, "detailed", false, "show item details (dot, tree)")
	cmd.Flags().BoolVarP(&rf.watch, "watch", "w", false, "re-render when the score changes")

	return cmd
}

// renderOptions merges config, layout flags and render flags.
func (c *CLI) renderOptions(lf *layoutFlags, rf *renderFlags) (pipeline.Options, error) {
	opts, err := c.options(lf)
	if err != nil {
		return opts, err
	}
	opts.Formats = parseFormats(rf.formats, opts.Formats)
	opts.Title = rf.title
	opts.Outlines = opts.Outlines || rf.outlines
	if rf.background != "" {
		opts.Background = rf.background
	}
	if rf.scale > 0 {
		opts.Scale = rf.scale
	}
	opts.Transparent = rf.transparent
	opts.Detailed = rf.detailed
	if err := pipeline.ValidateFormats(opts.Formats); err != nil {
		return opts, err
	}
	return opts, nil
}

// runRender renders input once and writes the artifacts.
func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	if err := readSource(input, &opts); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spin := startSpinner(ctx, c.ui, "Rendering "+input+"...")

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spin.fail("Render")
		return err
	}
	spin.stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		formats:   opts.Formats,
		input:     input,
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
	c.ui.stats(result.Stats, result.CacheInfo.RenderHit)
	c.ui.diagnostics(result.Document.Diagnostics)
	return nil
}

// watchRender renders input, then again after every change until ctx is
// done. Render errors are reported and watching continues.
func (c *CLI) watchRender(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	if output == "-" {
		return fmt.Errorf("--watch cannot write to stdout")
	}

	render := func() {
		if err := c.runRender(ctx, input, opts, output, noCache); err != nil && ctx.Err() == nil {
			c.ui.failure("%v", err)
		}
	}
	render()
	c.ui.info("Watching %s (ctrl+c to stop)", input)

	changed := make(chan struct{}, 1)
	debounced := debounce.New(watchDelay)
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	last := modTime(input)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if mt := modTime(input); !mt.Equal(last) {
				last = mt
				debounced(func() {
					select {
					case changed <- struct{}{}:
					default:
					}
				})
			}
		case <-changed:
			loggerFromContext(ctx).Debug("score changed", "path", input)
			render()
		}
	}
}

// modTime returns the file's modification time, or zero if it is missing.
func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
