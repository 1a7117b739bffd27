// Package serve implements the serve command that runs the HTTP service.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/bootstrap"
)

// Command returns the serve command. cfgFile is bound to the root's
// persistent --config flag.
func Command(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis API and conversation service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.Start(cmd.Context(), *cfgFile)
		},
	}
}
