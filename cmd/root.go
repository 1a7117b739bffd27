// Package cmd implements the growth-copilot command-line interface.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungdaddii/growth-copilot-prod-sub002/cmd/analyze"
	"github.com/yungdaddii/growth-copilot-prod-sub002/cmd/serve"
)

// version is overridden at build time with -ldflags.
var version = "dev"

// cfgFile holds the path to the configuration file.
var cfgFile string

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "growth-copilot",
		Short:         "Website growth analysis with conversational follow-up",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is $CONFIG_PATH or ./config.yml)",
	)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("growth-copilot version %s\n", version)
		},
	})
	root.AddCommand(serve.Command(&cfgFile))
	root.AddCommand(analyze.Command(&cfgFile))
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
