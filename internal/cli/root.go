// Package cli implements the rulemerge command tree.
package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rulemerge/internal/config"
	"rulemerge/internal/logging"
)

type rootOptions struct {
	configFile string
	verbosity  int
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "rulemerge",
		Short: MsgRootShort,
		Long:  MsgRootLong,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(opts.verbosity, cmd.ErrOrStderr())
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", MsgFlagVerbose)

	rootCmd.AddCommand(newBuildCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newNormalizeCmd())
	rootCmd.AddCommand(newMatchCmd(opts))

	return rootCmd
}

// loadConfig reads the configuration and raises the log level when the
// file asks for more detail than the flags did.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Log.Verbosity > o.verbosity {
		logging.Setup(cfg.Log.Verbosity, cmd.ErrOrStderr())
	}
	if cfg.File != "" {
		log.Debug().Str("file", cfg.File).Msg("config loaded")
	}
	return cfg, nil
}
