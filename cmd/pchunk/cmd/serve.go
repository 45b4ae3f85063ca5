/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/pchunk/pkg/api"
	"github.com/ssargent/pchunk/pkg/container"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the pchunk REST API server. Requests must carry the API key in
the X-API-Key header. Uploaded images are kept in the archive directory.

Run 'pchunk init' first to create a config file with a generated API key.

Examples:
  pchunk serve
  pchunk serve --port 9000 --bind 0.0.0.0
  pchunk serve --api-key mysecretkey --archive-dir ./data/archive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)

			// Override config with command line flags if provided
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("bind") {
				cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
			}
			if cmd.Flags().Changed("api-key") {
				cfg.Server.APIKey, _ = cmd.Flags().GetString("api-key")
			}
			if cmd.Flags().Changed("archive-dir") {
				cfg.Archive.Dir, _ = cmd.Flags().GetString("archive-dir")
			}

			if cfg.Server.APIKey == "" {
				return fmt.Errorf("no API key configured (run 'pchunk init' or pass --api-key)")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			mode, err := container.ParseMode(cfg.Parse.Mode)
			if err != nil {
				return err
			}

			if deps == nil {
				return fmt.Errorf("dependency container not initialized")
			}

			store, err := deps.GetArchiveOpener()(cfg.Archive.Dir)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmd.Printf("🚀 Starting pchunk server on %s:%d\n", cfg.Server.Bind, cfg.Server.Port)
			cmd.Printf("📁 Archive directory: %s\n", cfg.Archive.Dir)

			starter := deps.GetServerFactory().CreateServerStarter()
			return starter.StartServer(ctx, store, api.ServerConfig{
				Port:           cfg.Server.Port,
				Bind:           cfg.Server.Bind,
				APIKey:         cfg.Server.APIKey,
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
				Mode:           mode,
			})
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	cmd.Flags().String("api-key", "", "API key for client authentication")
	cmd.Flags().String("archive-dir", "", "Directory of the image archive")

	return cmd
}
