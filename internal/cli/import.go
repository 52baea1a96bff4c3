package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/pipeline"
)

// importCommand creates the import command, which adds a score to the
// document store.
func (c *CLI) importCommand() *cobra.Command {
	var (
		lf    layoutFlags
		title string
	)

	cmd := &cobra.Command{
		Use:   "import [score]",
		Short: "Add a score to the document store",
		Long: `Add a score to the document store.

The score (text notation or a MIDI file) is parsed and laid out, then saved
under a new id in the configured store: files under ~/.local/share/engrave,
or MongoDB with [store] backend = "mongo". MIDI options choose the track,
quantization grid, clef and key signature.

Stored scores are listed with 'scores list' and served by 'serve'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(&lf)
			if err != nil {
				return err
			}
			opts.Title = title
			return c.runImport(cmd.Context(), args[0], opts, lf.noCache)
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "title (default: from the score)")

	return cmd
}

func (c *CLI) runImport(ctx context.Context, input string, opts pipeline.Options, noCache bool) error {
	doc, _, err := c.buildDocument(ctx, input, opts, noCache)
	if err != nil {
		return err
	}

	store, err := c.newStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := store.Put(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	c.ui.success("Imported %s", input)
	c.ui.field("ID", StyleHighlight.Render(doc.ID))
	if doc.Title != "" {
		c.ui.field("Title", doc.Title)
	}
	c.ui.field("Measures", StyleNumber.Render(fmt.Sprint(len(doc.Score.Measures))))
	c.ui.diagnostics(doc.Diagnostics)
	c.ui.blank()
	c.ui.next("Inspect", "engrave inspect "+doc.ID)
	return nil
}
