// Imagegen-server is the HTTP gateway in front of the external image API.
//
// It validates generation requests, forwards them to the configured
// upstream, adds a limitation notice when the upstream returns fewer
// results than asked for, and lets clients switch the upstream URL at
// runtime. Settings come from the environment and an optional .env file.
//
// Usage:
//
//	imagegen-server serve [flags]
//
// See 'imagegen-server serve --help' for available options.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/imagegen/internal/gateway"
	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "imagegen-server",
	Short: "imagegen HTTP gateway",
	Long: `A standalone HTTP gateway between imagegen clients and the external
text-to-image search API.

The gateway serves /create, /config, /health, /api-status, /api-endpoints,
/change-api-url and Prometheus metrics on /metrics.

Note: For the terminal client, use the separate 'imagegen' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	envFile  string
	logLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the gateway and serve until interrupted.

Configuration is read from environment variables. A .env file is loaded
first; variables already set in the environment win over it.

  HOST                  Listen host (default 0.0.0.0)
  SERVICE_PORT          Listen port (default 8000)
  EXTERNAL_API_URL      Upstream generation URL
  API_TIMEOUT_SECONDS   Upstream timeout (default 600)
  API_CONNECT_TIMEOUT   Upstream connect and probe timeout (default 10s)
  ENDPOINTS_FILE        YAML list of predefined upstream endpoints
  CORS_ORIGINS          Comma-separated allowed origins (default *)
  MDNS_ADVERTISE        Advertise as _imagegen._tcp (default false)
  TLS_CERT_FILE         Serve HTTPS with this certificate
  TLS_KEY_FILE          ...and this key
  DEBUG_MODE            Report debug mode in /config
  LOG_LEVEL             debug, info, warn or error (default info)`,
	Example: `  # Start with a .env file in the current directory
  imagegen-server serve

  # Point at a different upstream
  EXTERNAL_API_URL=http://gpu-2:8001/api/create imagegen-server serve

  # Use another env file and verbose logs
  imagegen-server serve --env-file /etc/imagegen/gateway.env --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to a .env file (ignored if missing)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := gateway.LoadSettings(envFile)
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
	}

	if err := logging.Initialize(settings.LogLevel); err != nil {
		return err
	}
	defer logging.Sync()

	srv, err := gateway.New(settings)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("imagegen-server %s (commit: %s)\n", version.Version, version.Commit)
	},
}
