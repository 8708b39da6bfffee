// Tn3270 is a terminal emulator for IBM 3270 hosts.
//
// It connects to TN3270 services over telnet or telnets (TLS), renders
// the 24x80 screen in the terminal, and routes keyboard input through
// the 3270 field model. It also ships offline tooling: a data-stream
// decoder for captured traffic, saved host profiles, and mDNS host
// discovery.
//
// Usage:
//
//	tn3270 [host[:port] | profile] [flags]
//	tn3270 [command] [flags]
//
// Running with a bare target connects to it directly.
// See 'tn3270 --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muldry/tn3270/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tn3270 [host[:port] | profile]",
	Short: "TN3270 Terminal Emulator",
	Long: `A terminal emulator for IBM 3270 hosts.

Connects to TN3270 services over telnet or telnets, renders the host
screen, and routes input through the 3270 field model. Targets can be
given as host[:port] or as the name of a saved profile.

Running with a target and no command is shorthand for 'tn3270 connect'.`,
	Version: version.Version,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: connect when a target is given
		if len(args) == 0 {
			return cmd.Help()
		}
		return runConnect(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and protocol information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tn3270 %s (commit: %s)\n", version.Version, version.Commit)
		fmt.Printf("protocol: %s\n", version.Protocol)
		fmt.Printf("terminal: %s\n", version.TerminalModel)
	},
}
