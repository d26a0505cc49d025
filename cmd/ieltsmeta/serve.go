package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/ieltsmeta/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction server",
	Long: `Start the ieltsmeta HTTP server.

The inference engine is loaded before the server accepts requests and is
released when the server shuts down (via Ctrl+C or SIGTERM). Provider
settings are reloaded when the config file changes.

The listen address comes from server.host and server.port, which can also be
set with IELTSMETA_SERVER_HOST/IELTSMETA_SERVER_PORT or plain HOST/PORT.

The server provides:
  - /                   - Service information
  - /health             - Health check with model_loaded
  - /api/extract/url    - Extract metadata from an image URL
  - /api/extract/file   - Extract metadata from an uploaded image
  - /api/extract/batch  - Extract metadata from several image URLs
  - /swagger            - API documentation

Examples:
  ieltsmeta serve                          # Start on default port 8000
  PORT=3000 ieltsmeta serve                # Start on custom port
  ieltsmeta serve --config ./config.yaml   # Use a specific config file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := loadConfig()
		if err != nil {
			return err
		}

		logger := newLogger(mgr.Get().Log.Level)
		mgr.SetLogger(logger)
		if f := mgr.ConfigFileUsed(); f != "" {
			logger.Info("loaded config", "file", f)
		}

		srv, err := server.New(server.Config{
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		mgr.WatchConfig()

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
