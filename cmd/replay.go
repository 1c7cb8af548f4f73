package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/arpreflect/internal/config"
	"firestige.xyz/arpreflect/internal/daemon"
	"firestige.xyz/arpreflect/internal/log"
	"firestige.xyz/arpreflect/internal/pipeline"
	"firestige.xyz/arpreflect/internal/reporter/console"
	"firestige.xyz/arpreflect/internal/sink/ring"
	"firestige.xyz/arpreflect/internal/source/file"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Classify frames from a capture file",
	Long: `Classify every frame of a pcap or pcapng file offline.

Events are printed to stdout; forwarded frames can be written to a new
capture file. A summary goes to stderr. Log, trace and sink settings are
taken from the config file when one is given.

Examples:
  arpreflect replay -r in.pcap
  arpreflect replay -r in.pcapng -w arp-only.pcap --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runReplay(ctx, configFile, replayOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

type replayOptions struct {
	Input   string
	Output  string
	Format  string
	Workers int
	Quiet   bool
}

var replayOpts replayOptions

func init() {
	replayCmd.Flags().StringVarP(&replayOpts.Input, "read", "r", "", "capture file to read (required)")
	replayCmd.Flags().StringVarP(&replayOpts.Output, "write", "w", "", "write forwarded frames to this pcap file")
	replayCmd.Flags().StringVar(&replayOpts.Format, "format", console.FormatText, "event format: text, json or yaml")
	replayCmd.Flags().IntVar(&replayOpts.Workers, "workers", 1, "classifier workers")
	replayCmd.Flags().BoolVarP(&replayOpts.Quiet, "quiet", "q", false, "do not print events")
	replayCmd.MarkFlagRequired("read")
}

func runReplay(ctx context.Context, configPath string, opts replayOptions, out, summary io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	src, err := file.Open(opts.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	sink, err := ring.New(cfg.Sink.CapacityBytes)
	if err != nil {
		return err
	}

	var reporters []pipeline.Reporter
	if !opts.Quiet {
		r, err := console.New(out, opts.Format)
		if err != nil {
			return err
		}
		reporters = append(reporters, r)
	}

	var fwd pipeline.Forwarder
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.Output, err)
		}
		defer f.Close()
		pf, err := pipeline.NewPcapForwarder(f, 65535)
		if err != nil {
			return err
		}
		fwd = pf
	}

	p := pipeline.New(pipeline.Config{
		Name:       file.Name,
		Source:     src,
		Classifier: daemon.NewClassifier(cfg.Trace, sink),
		Events:     sink,
		Forwarder:  fwd,
		Reporters:  reporters,
		Workers:    opts.Workers,
		QueueSize:  cfg.Pipeline.QueueSize,
	})
	if err := p.Run(ctx); err != nil {
		return err
	}

	stats := p.Stats()
	fmt.Fprintf(summary, "%d frames: %d forwarded, %d dropped (too short %d, not arp %d, truncated %d); %d events, %d lost\n",
		stats.Received, stats.Forwarded, stats.Dropped,
		stats.DropReasons["too_short"], stats.DropReasons["unsupported_proto"], stats.DropReasons["field_truncated"],
		stats.Emitted, stats.Lost)
	return nil
}
