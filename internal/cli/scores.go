package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/pipeline"
	"github.com/matzehuels/engrave/pkg/storage"
)

// scoresCommand creates the document store management command.
func (c *CLI) scoresCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Manage stored scores",
	}

	cmd.AddCommand(c.scoresListCommand())
	cmd.AddCommand(c.scoresShowCommand())
	cmd.AddCommand(c.scoresExportCommand())
	cmd.AddCommand(c.scoresRemoveCommand())

	return cmd
}

// withStore opens the configured store for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(storage.Store) error) error {
	store, err := c.newStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func (c *CLI) scoresListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored scores, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s storage.Store) error {
				list, err := s.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					c.ui.info("No stored scores")
					return nil
				}
				for _, sum := range list {
					title := sum.Title
					if title == "" {
						title = StyleDim.Render("(untitled)")
					}
					c.ui.line(fmt.Sprintf("%s  %s  %s  %s",
						StyleHighlight.Render(sum.ID),
						StyleDim.Render(fmt.Sprintf("%-4s", sum.Format)),
						StyleDim.Render(formatRelativeTime(sum.UpdatedAt)),
						StyleValue.Render(title)))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of scores (0 for all)")
	return cmd
}

func (c *CLI) scoresShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a stored score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s storage.Store) error {
				doc, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				c.ui.field("ID", StyleHighlight.Render(doc.ID))
				c.ui.field("Title", doc.Title)
				c.ui.field("Source", doc.Source.Format+" "+doc.Source.Filename)
				c.ui.field("Time", doc.Score.Time.String())
				c.ui.field("Key", doc.Score.Key.String())
				c.ui.field("Measures", StyleNumber.Render(fmt.Sprint(len(doc.Score.Measures))))
				c.ui.field("Events", StyleNumber.Render(fmt.Sprint(doc.Score.Len())))
				c.ui.field("Created", doc.CreatedAt.Local().Format("Jan 2, 2006 15:04"))
				c.ui.field("Updated", doc.UpdatedAt.Local().Format("Jan 2, 2006 15:04"))
				c.ui.diagnostics(doc.Diagnostics)
				return nil
			})
		},
	}
}

func (c *CLI) scoresExportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Write a stored score as a layout document",
		Long: `Write a stored score as a layout document.

The score is laid out again with its stored renderer and written to -o
(default: <id>.layout.json), ready for 'visualize' or 'inspect'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s storage.Store) error {
				doc, err := c.storedDocument(cmd.Context(), s, args[0])
				if err != nil {
					return err
				}
				path := output
				if path == "" {
					path = doc.ID + ".layout.json"
				}
				if path == "-" {
					return document.Write(doc, os.Stdout)
				}
				if err := document.WriteFile(doc, path); err != nil {
					return err
				}
				c.ui.success("Exported %s", doc.ID)
				c.ui.file(path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .json or .bson (- for stdout)")
	return cmd
}

func (c *CLI) scoresRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]...",
		Aliases: []string{"delete"},
		Short:   "Delete stored scores",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s storage.Store) error {
				for _, id := range args {
					if err := s.Delete(cmd.Context(), id); err != nil {
						return err
					}
					c.ui.success("Deleted %s", id)
				}
				return nil
			})
		},
	}
}

// storedDocument loads a document from the store and lays it out with its
// stored renderer.
func (c *CLI) storedDocument(ctx context.Context, s storage.Store, id string) (*document.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	opts, err := c.options(&layoutFlags{})
	if err != nil {
		return nil, err
	}
	opts.Renderer = doc.Renderer
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	if err := doc.Relayout(opts.Renderer, opts.Metrics(), pipeline.Substitute(opts.Policy, opts.Renderer)); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return doc, nil
}
