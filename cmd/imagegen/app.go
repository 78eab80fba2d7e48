package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/imagegen/internal/controller"
	"github.com/muurk/imagegen/internal/endpoints"
	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/state"
	"github.com/muurk/imagegen/internal/tui"
	"github.com/muurk/imagegen/internal/ui"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Launch the interactive app",
	Long: `Launch the full-screen interactive app.

The app provides:
- A prompt form with model, index and result count selectors
- Results with similarity scores and the raw JSON response
- A live connection indicator for the external API
- An endpoints screen to switch the gateway's upstream

This is the default when imagegen runs without a command.`,
	Example: `  # Launch against the default gateway
  imagegen
  # Or explicitly:
  imagegen app

  # Launch against a gateway on another machine
  imagegen --server http://10.0.0.5:8000

  # Keep a debug log while using the app
  imagegen --log-level debug --log-file /tmp/imagegen.log`,
	RunE: runApp,
}

func init() {
	rootCmd.AddCommand(appCmd)
}

func runApp(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the interactive app needs a terminal; use 'imagegen generate' in scripts")
	}

	// Log lines would corrupt the alternate screen
	if logLevel != "" || os.Getenv(logging.LogLevelEnvVar) != "" {
		if err := logging.InitializeWithOutput(logLevel, appLogFile()); err != nil {
			return err
		}
	}
	defer logging.Sync()

	env, err := loadClientEnv()
	if err != nil {
		return err
	}
	client := env.client()

	store := state.NewStore()
	store.UpdateSettings(env.registry.Preferences.Settings)

	renderer := ui.NewRenderer(ui.WithColor(true))
	ctl := controller.New(store, client, renderer,
		controller.WithPresets(env.registry.Preferences.Presets))

	bridge := tui.NewBridge()
	manager := endpoints.NewManager(client,
		endpoints.WithInterval(env.registry.MonitorInterval()),
		endpoints.WithStatusListener(bridge.StatusListener()),
		endpoints.WithNoticeListener(bridge.NoticeListener()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, tui.Options{
		Store:      store,
		Controller: ctl,
		Manager:    manager,
		Renderer:   renderer,
		Config:     client,
		Bridge:     bridge,
		OutputDir:  env.outputDir(),
	})
}
