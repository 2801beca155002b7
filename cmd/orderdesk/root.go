package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vaidashi/order-status-sync/internal/api"
	"github.com/vaidashi/order-status-sync/internal/config"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// cli carries the configuration every subcommand runs with
type cli struct {
	v   *viper.Viper
	cfg *config.Config
	log logger.Logger
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	c := &cli{v: v}

	root := &cobra.Command{
		Use:           "orderdesk",
		Short:         "Order desk: live order list with tracking sync",
		Version:       api.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `orderdesk keeps an operator's order list fresh by polling the order store
and mirrors every status change into the customer-facing tracking collection.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(c.v)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			c.cfg = cfg
			c.log = logger.NewLogger(cfg.LogLevel, cfg.Env)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				logger.Sync(c.log)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("db-driver", "", "Document store driver (postgres, sqlite, memory)")
	flags.String("sqlite-path", "", "SQLite database file")
	c.bind("LOG_LEVEL", flags.Lookup("log-level"))
	c.bind("DB_DRIVER", flags.Lookup("db-driver"))
	c.bind("SQLITE_PATH", flags.Lookup("sqlite-path"))

	root.AddCommand(newServeCmd(c))
	root.AddCommand(newPingCmd(c))
	root.AddCommand(newOrdersCmd(c))
	root.AddCommand(newTrackingCmd(c))
	root.AddCommand(newTokenCmd(c))

	return root
}

// bind lets a flag override the environment for key when it is set
func (c *cli) bind(key string, flag *pflag.Flag) {
	if err := c.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag.Name, err))
	}
}
