package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the apiclient command tree. environ supplies the
// process environment; nil selects os.Environ.
func NewRootCommand(version string, environ func() []string) *cobra.Command {
	if environ == nil {
		environ = os.Environ
	}

	rootCmd := &cobra.Command{
		Use:   "apiclient",
		Short: "Issue requests through the resilient API client",
		Long: `Command line access to the API client used by the web application.

Requests go through the same retry, classification and correlation logic as
application calls, so the outcome printed here is exactly what a feature
module would observe.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		NewRequestCommand(environ),
		NewConfigCommand(environ),
		NewVersionCommand(version),
	)
	return rootCmd
}
