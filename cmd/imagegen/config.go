package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/imagegen/internal/config"
	"github.com/muurk/imagegen/internal/protocol"
	"github.com/muurk/imagegen/internal/urls"
)

// Config command flags
var (
	serverDescription string
	makeDefault       bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the local configuration file",
	Long: `Manage the imagegen configuration file.

The file lists known gateways by short name, the default gateway, request
timeouts, the default generation settings and named presets. Its location
follows OS conventions, see 'imagegen config show'.

IMAGEGEN_* environment variables override the file for a single run and are
never written back.

See ` + urls.ClientConfig + ` for every setting.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file if none exists",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge servers and presets from a YAML, JSON or TOML file",
	Long: `Merge the servers and presets of another configuration file into this one.

The format is chosen by extension: .yaml/.yml, .json or .toml. Entries in
the imported file replace entries with the same name. Other preferences
are left alone.`,
	Example: `  # Share a team's gateway list
  imagegen config import team.toml`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigImport,
}

var configExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the configuration as YAML, JSON or TOML",
	Example: `  imagegen config export backup.json
  imagegen config export team.toml`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigExport,
}

var configServersCmd = &cobra.Command{
	Use:   "servers",
	Short: "List known gateways",
	Args:  cobra.NoArgs,
	RunE:  runConfigServers,
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server <name> <url>",
	Short: "Add or update a gateway",
	Example: `  # Register a gateway on another machine
  imagegen config set-server lab http://10.0.0.5:8000 --description "Lab GPU box"

  # Register and make it the default
  imagegen config set-server lab http://10.0.0.5:8000 --default`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSetServer,
}

var configRemoveServerCmd = &cobra.Command{
	Use:   "remove-server <name>",
	Short: "Remove a gateway",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigRemoveServer,
}

var configDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the gateway used when --server is not given",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigDefault,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List generation presets",
	Long: `List the named presets usable with 'imagegen generate --preset' and
with Ctrl+P in the interactive app.`,
	Args: cobra.NoArgs,
	RunE: runPresetsList,
}

var presetsSetCmd = &cobra.Command{
	Use:   "set <name> <model> <index> <count>",
	Short: "Add or update a preset",
	Example: `  # A quick preset with the small model
  imagegen presets set quick b32 cos 3`,
	Args: cobra.ExactArgs(4),
	RunE: runPresetsSet,
}

func init() {
	configSetServerCmd.Flags().StringVar(&serverDescription, "description", "", "Free-form description")
	configSetServerCmd.Flags().BoolVar(&makeDefault, "default", false, "Also make this the default gateway")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configImportCmd)
	configCmd.AddCommand(configExportCmd)
	configCmd.AddCommand(configServersCmd)
	configCmd.AddCommand(configSetServerCmd)
	configCmd.AddCommand(configRemoveServerCmd)
	configCmd.AddCommand(configDefaultCmd)
	presetsCmd.AddCommand(presetsSetCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(presetsCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	reg, err := editRegistry()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Printf("# %s", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Print(" (not created yet, showing defaults)")
	}
	fmt.Printf("\n\n%s", data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.CreateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Config file: %s\n", path)
	return nil
}

func runConfigImport(cmd *cobra.Command, args []string) error {
	other, err := config.LoadFile(args[0])
	if err != nil {
		return err
	}
	reg, err := editRegistry()
	if err != nil {
		return err
	}

	servers, presets := reg.Merge(other)
	if err := config.SaveGlobal(); err != nil {
		return err
	}
	fmt.Printf("✓ Imported %d server(s) and %d preset(s) from %s\n", servers, presets, args[0])
	return nil
}

func runConfigExport(cmd *cobra.Command, args []string) error {
	reg, err := editRegistry()
	if err != nil {
		return err
	}
	if err := reg.Export(args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %s\n", args[0])
	return nil
}

func runConfigServers(cmd *cobra.Command, args []string) error {
	reg, err := editRegistry()
	if err != nil {
		return err
	}

	names := reg.ServerNames()
	if len(names) == 0 {
		fmt.Println("No servers configured.")
		fmt.Println("\nAdd one with: imagegen config set-server <name> <url>")
		fmt.Println("Or find gateways on the LAN: imagegen discover")
		return nil
	}

	for _, name := range names {
		s := reg.GetServer(name)
		marker := " "
		if name == reg.Preferences.DefaultServer {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
		fmt.Printf("    URL:       %s\n", s.URL)
		if s.Description != "" {
			fmt.Printf("    Desc:      %s\n", s.Description)
		}
		fmt.Printf("    Last seen: %s\n", lastSeen(s))
		if s.Discovered {
			fmt.Println("    Source:    mDNS discovery")
		}
		fmt.Println()
	}
	fmt.Println("* default server")
	return nil
}

func runConfigSetServer(cmd *cobra.Command, args []string) error {
	reg, err := editRegistry()
	if err != nil {
		return err
	}

	name := args[0]
	if err := reg.SetServer(name, args[1], serverDescription); err != nil {
		return err
	}
	if makeDefault {
		if err := reg.SetDefaultServer(name); err != nil {
			return err
		}
	}
	if err := config.SaveGlobal(); err != nil {
		return err
	}

	fmt.Printf("✓ Server %q → %s\n", name, reg.GetServer(name).URL)
	if makeDefault {
		fmt.Printf("✓ %q is now the default server\n", name)
	}
	return nil
}

func runConfigRemoveServer(cmd *cobra.Command, args []string) error {
	reg, err := editRegistry()
	if err != nil {
		return err
	}
	if err := reg.RemoveServer(args[0]); err != nil {
		return err
	}
	if err := config.SaveGlobal(); err != nil {
		return err
	}
	fmt.Printf("✓ Removed server %q\n", args[0])
	return nil
}

func runConfigDefault(cmd *cobra.Command, args []string) error {
	reg, err := editRegistry()
	if err != nil {
		return err
	}
	if err := reg.SetDefaultServer(args[0]); err != nil {
		return err
	}
	if err := config.SaveGlobal(); err != nil {
		return err
	}
	fmt.Printf("✓ %q is now the default server\n", args[0])
	return nil
}

func runPresetsList(cmd *cobra.Command, args []string) error {
	reg, err := editRegistry()
	if err != nil {
		return err
	}

	current := reg.Preferences.Settings
	fmt.Printf("Default settings: %s / %s / %d\n\n", current.ModelType, current.IndexType, current.SearchNum)

	if len(reg.Preferences.Presets) == 0 {
		fmt.Println("No presets.")
		fmt.Println("\nAdd one with: imagegen presets set <name> <model> <index> <count>")
		return nil
	}

	fmt.Printf("%-12s %-10s %-6s %s\n", "NAME", "MODEL", "INDEX", "COUNT")
	for _, name := range slices.Sorted(maps.Keys(reg.Preferences.Presets)) {
		p := reg.Preferences.Presets[name]
		fmt.Printf("%-12s %-10s %-6s %d\n", name, p.ModelType, p.IndexType, p.SearchNum)
	}
	return nil
}

func runPresetsSet(cmd *cobra.Command, args []string) error {
	count, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("invalid count value: %w", err)
	}

	reg, err := editRegistry()
	if err != nil {
		return err
	}
	preset := protocol.Settings{ModelType: args[1], IndexType: args[2], SearchNum: count}
	if err := reg.SetPreset(args[0], preset); err != nil {
		return err
	}
	if err := config.SaveGlobal(); err != nil {
		return err
	}
	fmt.Printf("✓ Preset %q: %s / %s / %d\n", args[0], preset.ModelType, preset.IndexType, preset.SearchNum)
	return nil
}

// markSeen records gateways found by discovery and saves the file
func markSeen(found map[string]string) error {
	reg, err := editRegistry()
	if err != nil {
		return err
	}
	for name, url := range found {
		reg.MarkSeen(name, url, true)
	}
	return config.SaveGlobal()
}

// lastSeen formats a server's last contact for listings
func lastSeen(s *config.Server) string {
	if s.LastSeen.IsZero() {
		return "never"
	}
	return s.LastSeen.Local().Format(time.DateTime)
}
