package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fixclient/config"
)

// newRootCommand builds the cobra command tree. Each subcommand reads its
// own config via loadConfig so "run", "reset-seqnum", and "show-checkpoint"
// can be invoked independently (e.g. from a cron job or an operator shell)
// without sharing process state.
func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "fixclient",
		Short: "FIX 4.4 client-side session engine",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	root.AddCommand(newRunCommand(&configFile))
	root.AddCommand(newResetSeqNumCommand(&configFile))
	root.AddCommand(newShowCheckpointCommand(&configFile))
	return root
}

// loadConfig resolves configuration the way config.Load documents: CLI
// flags override environment variables override configFile override
// defaults. flags is the invoking subcommand's own flag set, so
// e.g. "run --reset_seq_num" binds onto cfg.ResetSeqNum without every
// subcommand sharing one global FlagSet.
func loadConfig(configFile string, flags *pflag.FlagSet) (*config.Config, error) {
	return config.Load(configFile, flags)
}
