// Command matcherctl runs the playdate matcher against the configured store from the command line
// and raises catalog sync signals.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"example.com/playdate/internal/config"
	"example.com/playdate/internal/observability"
	"example.com/playdate/internal/persistence"
)

// cli carries state shared by subcommands.
type cli struct {
	v       *viper.Viper
	verbose bool
	cfg     config.Config
	logger  *zap.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "matcherctl",
		Short:         "Query the playdate matcher from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFrom(c.v)
			if err != nil {
				return err
			}
			c.cfg = cfg
			if c.verbose {
				logger, err := observability.NewLogger(cfg.LogMode)
				if err != nil {
					return err
				}
				c.logger = logger
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML config file (env CONFIG_FILE)")
	flags.String("postgres-url", "", "Postgres connection string (env POSTGRES_URL)")
	flags.String("fixture", "", "fixture YAML used when no Postgres URL is set (env FIXTURE_PATH)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr")
	_ = c.v.BindPFlag("config_file", flags.Lookup("config"))
	_ = c.v.BindPFlag("postgres_url", flags.Lookup("postgres-url"))
	_ = c.v.BindPFlag("fixture_path", flags.Lookup("fixture"))

	root.AddCommand(newMatchCommand(c), newPickerCommand(c), newNotifySyncCommand(c))
	return root
}

// openStore opens the configured store; the caller must invoke the returned close function.
func (c *cli) openStore(ctx context.Context) (persistence.Store, func(), error) {
	return persistence.Open(ctx, c.cfg, c.logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
