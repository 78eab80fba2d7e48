package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/imagegen/internal/apiclient"
	"github.com/muurk/imagegen/internal/endpoints"
	"github.com/muurk/imagegen/internal/ui"
	"github.com/muurk/imagegen/internal/urls"
)

// Monitor command flags
var monitorInterval time.Duration

// healthCmd checks that the gateway itself answers
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the gateway is running",
	Long: `Call the gateway's /health endpoint.

This only checks the gateway process. Use 'imagegen status' to check the
external image API behind it.`,
	Example: `  # Check the default gateway
  imagegen health

  # Check a gateway by URL
  imagegen health --server http://10.0.0.5:8000`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

// statusCmd checks the gateway's connection to the external API
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the connection to the external API",
	Long: `Ask the gateway whether it can reach the external image API.

The gateway probes the origin of its current upstream URL. Any HTTP answer
counts as connected; a timeout or refused connection counts as
disconnected.`,
	Example: `  # Check the upstream of the default gateway
  imagegen status`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// endpointsCmd lists the predefined upstreams
var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List the gateway's predefined upstream endpoints",
	Long: `List the upstream endpoints the gateway offers, marking the one in use.

Switch between them with 'imagegen set-url <url>'.`,
	Example: `  # List endpoints
  imagegen endpoints`,
	Args: cobra.NoArgs,
	RunE: runEndpoints,
}

// setURLCmd switches the gateway's upstream
var setURLCmd = &cobra.Command{
	Use:   "set-url <url>",
	Short: "Switch the gateway's upstream URL",
	Long: `Point the gateway at a different external API URL.

The URL must start with http:// or https://. The change takes effect for
every client of the gateway and lasts until the gateway restarts. The
connection is checked right after the switch.`,
	Example: `  # Switch to a predefined endpoint
  imagegen set-url http://gpu-2:8001/api/create

  # Switch the upstream of a named gateway
  imagegen set-url https://search.example.com/api/create --server lab`,
	Args: cobra.ExactArgs(1),
	RunE: runSetURL,
}

// monitorCmd watches the connection until interrupted
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the connection to the external API",
	Long: `Check the external API connection now and then on every interval,
printing each change until Ctrl+C.`,
	Example: `  # Watch with the configured interval
  imagegen monitor

  # Check every 5 seconds
  imagegen monitor --interval 5s`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 0, "Poll interval (default: from config)")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(endpointsCmd)
	rootCmd.AddCommand(setURLCmd)
	rootCmd.AddCommand(monitorCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	env, err := loadClientEnv()
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("Gateway Health", "imagegen health", ui.Field{Key: "Server", Value: env.serverURL})

	health := env.client().CheckHealth(cmd.Context())
	if health == nil {
		printer.PrintError("Gateway unreachable", fmt.Errorf("no answer from %s", env.serverURL), []string{
			"Start the gateway: imagegen-server serve",
			"Find gateways on the LAN: imagegen discover",
			"Gateway setup guide: " + urls.GatewaySetup,
		})
		return fmt.Errorf("gateway unreachable")
	}

	printer.PrintSuccess("Gateway is "+health.Status,
		ui.Field{Key: "Service", Value: health.Service},
		ui.Field{Key: "Timestamp", Value: health.Timestamp})
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := loadClientEnv()
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("External API Status", "imagegen status", ui.Field{Key: "Server", Value: env.serverURL})

	status := env.client().CheckAPIStatus(cmd.Context())
	if status == nil {
		printer.PrintError("Gateway unreachable", fmt.Errorf("no answer from %s", env.serverURL), nil)
		return fmt.Errorf("gateway unreachable")
	}

	details := []ui.Field{
		{Key: "API URL", Value: status.APIURL},
		{Key: "Probe", Value: status.ConnectionTest},
	}
	if status.Error != "" {
		details = append(details, ui.Field{Key: "Error", Value: status.Error})
	}
	if status.Note != "" {
		details = append(details, ui.Field{Key: "Note", Value: status.Note})
	}

	if !status.Connected() {
		printer.PrintWarning(endpoints.StatusDisconnected.Label(), details...)
		return nil
	}
	printer.PrintSuccess(endpoints.StatusConnected.Label(), details...)
	return nil
}

func runEndpoints(cmd *cobra.Command, args []string) error {
	env, err := loadClientEnv()
	if err != nil {
		return err
	}

	resp, err := env.client().ListEndpoints(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list endpoints: %s", apiclient.GetShortErrorMessage(err))
	}

	fmt.Printf("Current upstream: %s\n\n", resp.CurrentURL)

	if len(resp.PredefinedEndpoints) == 0 {
		fmt.Println("No predefined endpoints.")
		fmt.Println("\nSet ENDPOINTS_FILE on the gateway to offer a list, or use:")
		fmt.Println("  imagegen set-url <url>")
		fmt.Printf("\nFor more information, see: %s\n", urls.GatewaySetup)
		return nil
	}

	for i, ep := range resp.PredefinedEndpoints {
		marker := " "
		if ep.URL == resp.CurrentURL {
			marker = "●"
		}
		fmt.Printf("%s %d. %s\n", marker, i+1, ep.Name)
		fmt.Printf("     URL:  %s\n", ep.URL)
		if ep.Description != "" {
			fmt.Printf("     Desc: %s\n", ep.Description)
		}
		fmt.Println()
	}

	fmt.Println("Use 'imagegen set-url <url>' to switch upstream")
	return nil
}

func runSetURL(cmd *cobra.Command, args []string) error {
	env, err := loadClientEnv()
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	manager := endpoints.NewManager(env.client(),
		endpoints.WithNoticeListener(func(n endpoints.Notice) {
			switch n.Level {
			case endpoints.NoticeError:
				printer.Println(ui.FailureMarker + " " + n.Message)
			default:
				printer.Println(ui.SuccessMarker + " " + n.Message)
			}
		}))

	ctx := cmd.Context()
	if err := manager.LoadEndpoints(ctx); err != nil {
		return fmt.Errorf("%s", apiclient.GetShortErrorMessage(err))
	}
	old := manager.CurrentURL()

	if err := manager.ChangeURL(ctx, args[0]); err != nil {
		var urlErr *endpoints.URLError
		if errors.As(err, &urlErr) {
			return errors.New(urlErr.Message)
		}
		return err
	}

	fmt.Printf("\n  Old: %s\n  New: %s\n\n", old, manager.CurrentURL())
	fmt.Printf("Connection: %s\n", manager.Status().Label())
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	env, err := loadClientEnv()
	if err != nil {
		return err
	}

	interval := env.registry.MonitorInterval()
	if monitorInterval > 0 {
		interval = monitorInterval
	}

	manager := endpoints.NewManager(env.client(),
		endpoints.WithInterval(interval),
		endpoints.WithStatusListener(func(c endpoints.StatusChange) {
			if c.To == endpoints.StatusChecking {
				return
			}
			line := fmt.Sprintf("%s  %s", time.Now().Format(time.TimeOnly), c.To.Label())
			if c.Flash {
				line += "  (changed)"
			}
			fmt.Println(line)
		}))
	defer manager.Cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Monitoring %s every %s (Ctrl+C to stop)...\n\n", env.serverURL, interval)

	mon := manager.StartMonitoring(ctx)
	select {
	case <-ctx.Done():
	case <-mon.Done():
	}
	fmt.Println("\nStopped.")
	return nil
}
