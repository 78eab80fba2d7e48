package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/apiclient"
	"github.com/muurk/imagegen/internal/config"
	"github.com/muurk/imagegen/internal/logging"
)

// Global flags
var (
	serverFlag  string
	timeoutFlag time.Duration
	configPath  string
	logLevel    string
	logFile     string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "Gateway name from the config file or a full URL (default: the configured default)")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Request timeout, e.g. 90s or 10m (default: from config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default: OS config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent if unset")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stdout")
}

// setup runs before every command
func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := logging.InitializeWithOutput(logLevel, logFile); err != nil {
		return err
	}
	return nil
}

// clientEnv is what every gateway command needs: the effective registry
// (file plus IMAGEGEN_* overrides), the gateway URL and the timeout.
type clientEnv struct {
	registry  *config.Registry
	serverURL string
	timeout   time.Duration
}

// loadClientEnv resolves the gateway in the order --server, IMAGEGEN_SERVER,
// default server. Environment overrides only change the in-memory copy.
func loadClientEnv() (*clientEnv, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGEGEN_* environment: %w", err)
	}
	target := serverFlag
	if envServer := reg.ApplyEnv(overrides); target == "" {
		target = envServer
	}

	url, err := reg.ResolveServer(target)
	if err != nil {
		return nil, err
	}

	timeout := reg.Timeout()
	if timeoutFlag > 0 {
		timeout = timeoutFlag
	}

	logging.Debug("Resolved gateway",
		zap.String("server", url),
		zap.Duration("timeout", timeout))

	return &clientEnv{registry: reg, serverURL: url, timeout: timeout}, nil
}

// client builds an API client for the resolved gateway
func (e *clientEnv) client() *apiclient.Client {
	c := apiclient.NewClient(e.serverURL)
	c.SetTimeout(e.timeout)
	return c
}

// outputDir is where saved images go unless a flag says otherwise
func (e *clientEnv) outputDir() string {
	if dir := e.registry.Preferences.OutputDir; dir != "" {
		return dir
	}
	return "."
}

// appLogFile keeps logs off the alternate screen. An explicit --log-file or
// IMAGEGEN_LOG_FILE wins; otherwise logs go next to the config file.
func appLogFile() string {
	if logFile != "" {
		return logFile
	}
	if env := os.Getenv(logging.LogFileEnvVar); env != "" {
		return env
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return os.DevNull
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.DevNull
	}
	return filepath.Join(dir, "imagegen.log")
}

// editRegistry loads the file without environment overrides, so a Save
// never persists a one-off IMAGEGEN_* value.
func editRegistry() (*config.Registry, error) {
	reg, err := config.ReloadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return reg, nil
}
