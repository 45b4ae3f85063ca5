/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/pchunk/pkg/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file with a generated API key",
		Long: `Create the pchunk configuration file with default settings and a freshly
generated API key for the REST server.

Examples:
  pchunk init
  pchunk init --config ./pchunk.yaml --archive-dir ./data/archive --print-key`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			archiveDir, _ := cmd.Flags().GetString("archive-dir")
			force, _ := cmd.Flags().GetBool("force")
			printKey, _ := cmd.Flags().GetBool("print-key")

			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}

			if config.ConfigExists(configPath) && !force {
				cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", configPath)
				return nil
			}

			cfg, err := config.BootstrapConfig(configPath, archiveDir)
			if err != nil {
				return err
			}

			cmd.Printf("✅ Configuration created at %s\n", configPath)
			if printKey {
				cmd.Printf("\n🔑 API Key: %s\n", cfg.Server.APIKey)
				cmd.Printf("\n⚠️  Store this key securely! It is also saved in %s\n", configPath)
			}
			cmd.Printf("\nYou can now start the server with:\n")
			cmd.Printf("  pchunk serve --config %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().String("archive-dir", "", "Directory of the image archive")
	cmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	cmd.Flags().Bool("print-key", false, "Print the generated API key")

	return cmd
}
