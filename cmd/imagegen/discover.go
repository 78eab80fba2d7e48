package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/imagegen/internal/discovery"
	"github.com/muurk/imagegen/internal/urls"
)

// Discover command flags
var (
	discoverWait string
	discoverSave bool
)

// discoverCmd finds gateways on the network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find imagegen gateways on the local network",
	Long: `Find imagegen gateways using mDNS/DNS-SD discovery.

This command listens for gateways advertising _imagegen._tcp and displays
each one with its address, version and URL. Found gateways are saved to the
config file under their instance name so they can be used with --server.

Here --timeout is the scan window rather than a request timeout.`,
	Example: `  # Scan for 5 seconds (default)
  imagegen discover

  # Longer scan for busy networks
  imagegen discover --timeout 15s

  # Wait for one gateway that is still starting
  imagegen discover --wait "imagegen on studio" --timeout 30s

  # Scan without touching the config file
  imagegen discover --save=false`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverWait, "wait", "", "Stop as soon as this instance name answers")
	discoverCmd.Flags().BoolVar(&discoverSave, "save", true, "Save found gateways to the config file")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	reg, err := editRegistry()
	if err != nil {
		return err
	}
	timeout := reg.DiscoverDuration()
	if timeoutFlag > 0 {
		timeout = timeoutFlag
	}

	fmt.Printf("Scanning for imagegen gateways (timeout: %s)...\n\n", timeout)

	var gateways []*discovery.Gateway
	if discoverWait != "" {
		scanner := discovery.NewScanner()
		scanner.Timeout = timeout
		gw, err := scanner.WaitForGateway(cmd.Context(), discoverWait)
		if err != nil {
			return fmt.Errorf("gateway %q not found: %w", discoverWait, err)
		}
		gateways = append(gateways, gw)
	} else {
		gateways, err = discovery.ScanForGateways(cmd.Context(), timeout)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	}

	if len(gateways) == 0 {
		fmt.Println("No gateways found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the gateway runs with MDNS_ADVERTISE=true")
		fmt.Println("  - Check that you are on the same network segment")
		fmt.Println("  - Some networks block multicast; use --server with the URL instead")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Printf("\nFor more information, see: %s\n", urls.Discovery)
		return nil
	}

	fmt.Printf("Found %d gateway(s):\n\n", len(gateways))

	found := make(map[string]string, len(gateways))
	for i, gw := range gateways {
		fmt.Printf("%d. %s\n", i+1, gw.Instance)
		fmt.Printf("   Name:    %s\n", gw.Name())
		fmt.Printf("   Host:    %s\n", gw.Hostname)
		fmt.Printf("   URL:     %s\n", gw.BaseURL())
		if v := gw.Version(); v != "" {
			fmt.Printf("   Version: %s\n", v)
		}
		fmt.Println()
		found[gw.Name()] = gw.BaseURL()
	}

	if !discoverSave {
		return nil
	}
	if err := markSeen(found); err != nil {
		return fmt.Errorf("failed to save gateways: %w", err)
	}
	fmt.Println("Saved to config. Use 'imagegen --server <name>' to connect")
	fmt.Println("Use 'imagegen config default <name>' to make one the default")
	return nil
}
