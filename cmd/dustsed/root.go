package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abworrall/dust-sed/pkg/config"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dustsed",
		Short: "Aperture photometry and dust SED fitting",
		Long: `dustsed reduces far infrared and radio maps to physical quantities.

Regions drawn in DS9 become apertures; the object regions (red, by
default) are measured against the sky estimated from the others, and
nested object regions are differenced into annuli. Tables of multi-band
photometry are fitted with a modified blackbody to get dust temperature,
emissivity index and column density.

Settings come from a YAML config file (by default config.yaml in the
dust-sed XDG config dir); flags override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "config file (default: "+config.ConfigDir()+"/config.yaml)")
	cmd.PersistentFlags().CountP("verbose", "v", "more logging; repeat for more")

	cmd.AddCommand(NewPhotometryCmd())
	cmd.AddCommand(NewHIMassCmd())
	cmd.AddCommand(NewFitCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config, or the default one
// if there is one, and applies --verbose.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	filename, _ := cmd.Flags().GetString("config")
	explicit := filename != ""
	if !explicit {
		filename = config.DefaultPath()
	}

	cfg := config.NewConfig()
	if filename != "" {
		var err error
		cfg, err = config.Load(filename)
		switch {
		case errors.Is(err, config.ErrConfigNotFound) && !explicit:
			filename = ""
		case err != nil:
			return cfg, filename, err
		}
	}

	if v, _ := cmd.Flags().GetCount("verbose"); v > 0 {
		cfg.Verbosity = v
	}
	if cfg.Verbosity > 0 && filename != "" {
		log.Printf("Loaded configuration from %s\n", filename)
	}

	return cfg, filename, nil
}

// finishConfig validates the config once the command's flags are applied.
func finishConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.Verbosity > 1 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}
	return nil
}

func readLines(filename string) ([]string, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v", filename, err)
	}
	return strings.Split(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n"), nil
}
