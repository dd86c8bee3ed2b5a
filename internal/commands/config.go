package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaborage/apiclient/config"
	"github.com/gaborage/apiclient/logger"
)

// NewConfigCommand creates the config command, which prints the effective
// configuration after defaults, file and environment are merged.
func NewConfigCommand(environ func() []string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Example: `  # Show what the client would use
  APICLIENT_CLIENT__BASE_URL=https://api.example.com apiclient config`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Options{File: file, Environ: environ})
			if err != nil {
				return err
			}

			// default headers may carry credentials
			masked := *cfg
			if len(cfg.Client.Headers) > 0 {
				filter := logger.NewSensitiveDataFilter(nil)
				masked.Client.Headers = make(map[string]string, len(cfg.Client.Headers))
				for k, v := range cfg.Client.Headers {
					masked.Client.Headers[k] = filter.FilterString(k, v)
				}
			}

			out, err := json.MarshalIndent(masked, "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "config", "c", "", "YAML config file")
	return cmd
}
