// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arpreflect",
	Short: "arpreflect - ARP frame classifier and neighbor reflector",
	Long: `arpreflect inspects link-layer frames, forwards well-formed ARP and drops
everything else. For every accepted frame it emits the sender's hardware and
protocol address as an event, which can be printed or installed into the
kernel neighbor table.

Frames come from a capture file, an AF_PACKET socket or a TAP device.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults apply when empty)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
}
