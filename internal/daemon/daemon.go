// Package daemon implements the capture daemon lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"firestige.xyz/arpreflect/internal/config"
	"firestige.xyz/arpreflect/internal/log"
	"firestige.xyz/arpreflect/internal/metrics"
	"firestige.xyz/arpreflect/internal/pipeline"
)

const shutdownTimeout = 5 * time.Second

// Daemon runs one capture pipeline until a signal arrives or a finite
// source is exhausted.
type Daemon struct {
	config     *config.GlobalConfig
	configPath string
	pidFile    string
	out        io.Writer

	components    *Components
	pipeline      *pipeline.Pipeline
	metricsServer *metrics.Server // nil if metrics disabled

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	runErr   error
	sigChan  chan os.Signal
	stopOnce sync.Once
}

// New loads the configuration and creates a daemon. Console events go to out.
func New(configPath, pidFile string, out io.Writer) (*Daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	d := &Daemon{
		config:     cfg,
		configPath: configPath,
		pidFile:    pidFile,
		out:        out,
		done:       make(chan struct{}),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start initializes logging, metrics and the pipeline, and starts capturing.
func (d *Daemon) Start() error {
	if err := d.initLogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := log.GetLogger()
	logger.WithFields(map[string]interface{}{
		"config": d.configPath,
		"source": d.config.Source.Type,
	}).Info("starting arpreflect daemon")

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	if err := d.startMetrics(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	components, err := Build(d.config, d.out)
	if err != nil {
		d.stopMetrics()
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	d.components = components
	d.pipeline = components.Pipeline(d.config.Source.Type, d.config.Pipeline, nil)

	go func() {
		defer close(d.done)
		d.runErr = d.pipeline.Run(d.ctx)
	}()

	logger.Info("daemon started successfully")
	return nil
}

// Run blocks until shutdown. SIGTERM and SIGINT stop the daemon, SIGHUP
// reloads the log configuration. A pipeline that ends by itself also stops
// the daemon; its error is returned.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	logger := log.GetLogger()
	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				logger.WithField("signal", sig.String()).Info("received shutdown signal")
				d.Stop()
				return nil
			case syscall.SIGHUP:
				if err := d.Reload(); err != nil {
					logger.WithError(err).Error("failed to reload config")
				}
			}

		case <-d.done:
			logger.Info("pipeline finished")
			d.Stop()
			return d.runErr
		}
	}
}

// Stop cancels the pipeline, waits for it to drain and releases resources.
// It is safe to call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(d.stop)
}

func (d *Daemon) stop() {
	logger := log.GetLogger()
	logger.Info("initiating graceful shutdown")

	d.cancel()
	if d.pipeline != nil {
		<-d.done
	}
	if d.components != nil {
		if err := d.components.Close(); err != nil {
			logger.WithError(err).Warn("error closing source")
		}
	}

	d.stopMetrics()

	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}
	if err := d.removePIDFile(); err != nil {
		logger.WithError(err).Error("error removing PID file")
	}

	if d.pipeline != nil {
		stats := d.pipeline.Stats()
		logger.WithFields(map[string]interface{}{
			"received":  stats.Received,
			"forwarded": stats.Forwarded,
			"dropped":   stats.Dropped,
			"emitted":   stats.Emitted,
			"lost":      stats.Lost,
		}).Info("daemon stopped gracefully")
	}
}

// Stats returns the pipeline counters.
func (d *Daemon) Stats() pipeline.Stats {
	if d.pipeline == nil {
		return pipeline.Stats{}
	}
	return d.pipeline.Stats()
}

// Reload re-reads the config file. Only the log section is applied; other
// changes require a restart and are reported.
func (d *Daemon) Reload() error {
	logger := log.GetLogger()
	logger.WithField("path", d.configPath).Info("reloading configuration")

	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	var requiresRestart []string
	if newConfig.Source.Type != d.config.Source.Type {
		requiresRestart = append(requiresRestart, "source")
	}
	if newConfig.Sink != d.config.Sink {
		requiresRestart = append(requiresRestart, "sink")
	}
	if newConfig.Metrics != d.config.Metrics {
		requiresRestart = append(requiresRestart, "metrics")
	}
	if newConfig.Reporters != d.config.Reporters {
		requiresRestart = append(requiresRestart, "reporters")
	}
	if newConfig.Trace != d.config.Trace {
		requiresRestart = append(requiresRestart, "trace")
	}
	if newConfig.Pipeline != d.config.Pipeline {
		requiresRestart = append(requiresRestart, "pipeline")
	}

	// The global logger is reconfigured in place, so the classifier,
	// pipeline and reporters built at start pick up the new settings.
	if err := log.Init(newConfig.Log); err != nil {
		return fmt.Errorf("failed to apply log config: %w", err)
	}
	d.config.Log = newConfig.Log

	log.GetLogger().WithFields(map[string]interface{}{
		"level":            d.config.Log.Level,
		"requires_restart": requiresRestart,
	}).Info("configuration reloaded")
	return nil
}

func (d *Daemon) initLogging() error {
	if err := log.Init(d.config.Log); err != nil {
		return err
	}
	log.GetLogger().WithFields(map[string]interface{}{
		"level":  d.config.Log.Level,
		"format": d.config.Log.Format,
	}).Debug("logging initialized")
	return nil
}

func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		log.GetLogger().Info("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	if err := d.metricsServer.Start(d.ctx); err != nil {
		d.metricsServer = nil
		return err
	}
	return nil
}

func (d *Daemon) stopMetrics() {
	if d.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.metricsServer.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.GetLogger().WithError(err).Error("error stopping metrics server")
	}
	d.metricsServer = nil
}

func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(d.pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}
	return nil
}

func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}
	return nil
}
