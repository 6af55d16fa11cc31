package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abworrall/dust-sed/pkg/config"
)

func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the configuration in effect",
		Long: `Config prints the settings the other commands would run with, as YAML:
the defaults, overlaid with the config file if there is one. Redirect it
into ` + config.ConfigDir() + `/config.yaml to start a config file.`,
		Args: cobra.NoArgs,
		RunE: runConfigCmd,
	}
}

func runConfigCmd(cmd *cobra.Command, args []string) error {
	cfg, filename, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if filename == "" {
		filename = "none, using defaults"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", filename)
	fmt.Fprint(cmd.OutOrStdout(), cfg.AsYaml())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	return nil
}
