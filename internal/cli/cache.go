package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/pkg/cache"
	"github.com/matzehuels/engrave/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the score, layout and artifact cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached entries",
		Long: `Remove all cached entries from the configured backend.

For the file backend this empties the cache directory. For Redis it deletes
the keys under the configured prefix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.Config.Cache.Backend == config.BackendNone {
				c.ui.info("Caching is disabled")
				return nil
			}

			cc, err := c.newCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cc.Close()

			var (
				n     int
				where string
			)
			switch cc := cache.Unwrap(cc).(type) {
			case *cache.FileCache:
				n, err = cc.Clear()
				where = "Directory: " + cc.Dir()
			case *cache.RedisCache:
				n, err = cc.Clear(cmd.Context())
				where = "Redis: " + c.Config.Cache.RedisAddr
			default:
				c.ui.info("Cache is empty")
				return nil
			}
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			c.ui.success("Cleared %d cached entries", n)
			c.ui.detail("%s", where)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.Config.Cache.Dir
			if dir == "" {
				var err error
				if dir, err = cacheDir(); err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
			}
			c.ui.line(dir)
			return nil
		},
	}
}
