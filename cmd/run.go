package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/arpreflect/internal/daemon"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture and classify frames in the foreground",
	Long: `Run the classifier against the configured source in the foreground.

The daemon will:
  1. Load configuration and initialize logging and metrics
  2. Open the source and start the classifier workers
  3. Deliver events to the enabled reporters
  4. Stop on SIGTERM/SIGINT, or when a capture file is exhausted
  5. Reload the log configuration on SIGHUP

Examples:
  arpreflect run -c /etc/arpreflect/config.yml
  arpreflect run -c config.yml -p /var/run/arpreflect.pid`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(configFile, pidFile, cmd.OutOrStdout())
	},
}

var pidFile string

func init() {
	runCmd.Flags().StringVarP(&pidFile, "pidfile", "p", "",
		"PID file path (none when empty)")
}

func runDaemon(configPath, pidFile string, out io.Writer) error {
	d, err := daemon.New(configPath, pidFile, out)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// blocks until shutdown
	return d.Run()
}
