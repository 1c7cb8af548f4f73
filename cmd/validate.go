package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/arpreflect/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without opening any source.

Examples:
  arpreflect validate -c config.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile, cmd.OutOrStdout())
	},
}

func runValidate(path string, out io.Writer) error {
	if path == "" {
		return fmt.Errorf("--config is required")
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(out, "INVALID: %v\n", err)
		return err
	}

	var reporters []string
	if cfg.Reporters.Console.Enabled {
		reporters = append(reporters, "console")
	}
	if cfg.Reporters.Neighbor.Enabled {
		reporters = append(reporters, "neighbor("+cfg.Reporters.Neighbor.Interface+")")
	}

	fmt.Fprintf(out, "VALID: source %q, %d worker(s), sink %d bytes, reporters [%s]\n",
		cfg.Source.Type,
		cfg.Pipeline.Workers,
		cfg.Sink.CapacityBytes,
		strings.Join(reporters, ", "),
	)
	return nil
}
