// Imagegen is the terminal client for the imagegen gateway.
//
// It turns a text prompt into images by calling a gateway that fronts the
// external image search API. Running without arguments opens the
// interactive app; the subcommands cover one-shot generation, gateway
// checks, upstream switching and the local configuration file.
//
// Usage:
//
//	imagegen [command] [flags]
//
// See 'imagegen --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/imagegen/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "imagegen",
	Short: "Text-to-image search client",
	Long: `A terminal client for the imagegen gateway.

Type a prompt, pick a CLIP model, an index type and how many results you
want, and the gateway returns the generated query image plus the closest
matches from the external image API.

If no command is specified, the interactive app will launch automatically.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the app when no subcommand provided
		return runApp(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("imagegen %s (commit: %s)\n", version.Version, version.Commit)
	},
}
