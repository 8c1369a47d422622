package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(cc *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vocabmaster",
		Short:         "AI study material for your vocabulary",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cc.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&cc.envFile, "env-file", ".env", "Environment file loaded before the configuration (ignored if missing)")
	flags.StringVar(&cc.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flags.StringVar(&cc.logFile, "log-file", "", "Also write logs to this file, rotated at 1 MB")
	flags.BoolVar(&cc.jsonOutput, "json", false, "Print results as JSON")

	for _, cmd := range newActionCommands(cc) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newConfigCommand(cc))
	rootCmd.AddCommand(newServeCommand(cc))

	return rootCmd
}
