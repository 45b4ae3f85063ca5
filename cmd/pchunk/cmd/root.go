/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/pchunk/pkg/config"
	"github.com/ssargent/pchunk/pkg/container"
	"github.com/ssargent/pchunk/pkg/di"
)

type contextKey string

const configKey contextKey = "config"

// deps is the dependency container injected by main
var deps *di.Container

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	deps = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pchunk",
		Short: "pchunk - PNG chunk inspector",
		Long: `pchunk lists, verifies, extracts and repairs the chunks of a PNG file.

Chunks are located from their length fields. When those are damaged pchunk
falls back to scanning for known chunk types, so broken files can still be
inspected and rebuilt.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// Store in command context
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	root.PersistentFlags().String("mode", "", "Decode mode: auto, strict or heuristic (overrides config)")

	root.AddCommand(
		newInfoCmd(),
		newExtractCmd(),
		newDumpCmd(),
		newRepairCmd(),
		newServeCmd(),
		newInitCmd(),
	)

	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file when present and applies --mode. An
// explicitly named config file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	switch {
	case cmd.Name() == "init":
		// init writes the file; an existing one is handled there
	case config.ConfigExists(configPath):
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case explicit:
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		if _, err := container.ParseMode(mode); err != nil {
			return nil, err
		}
		cfg.Parse.Mode = mode
	}

	return cfg, nil
}

// configFrom returns the config stored by the root command
func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey).(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}
