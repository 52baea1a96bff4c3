package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/internal/server"
	"github.com/matzehuels/engrave/pkg/cache"
)

// serveCommand creates the serve command, which runs the HTTP render
// service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		lf   layoutFlags
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP render service",
		Long: `Run the HTTP render service.

POST a score to /render to get an artifact back, or to /scores to store it.
Stored scores are listed at /scores and rendered at /scores/{id}/render.svg
(or .png, .pdf, .json, .dot, .tree). Layout flags set the defaults; requests
override them with query parameters.

The cache, store and CORS origins come from the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := c.options(&lf)
			if err != nil {
				return err
			}
			if err := opts.ValidateForLayout(); err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, lf.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()
			runner.Keyer = cache.NewScopedKeyer(runner.Keyer, "server:")

			store, err := c.newStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			if addr == "" {
				addr = c.Config.Server.Addr
			}
			srv := server.New(server.Options{
				Runner:       runner,
				Store:        store,
				Defaults:     opts,
				CORSOrigins:  c.Config.Server.CORSOrigins,
				MaxBodyBytes: c.Config.Server.MaxBodyBytes,
				Logger:       c.Logger,
			})
			c.ui.success("Serving on %s", StyleLink.Render(addr))
			return srv.ListenAndServe(ctx, addr)
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}
