// Command medkit-proxy keeps proxies for medical devices and opens
// connections to them on demand.
//
// Devices come from the configuration file and, with -discover, from mDNS
// advertisements. Ports are probed in the background so that every proxy
// reports whether it is reachable.
//
// Usage:
//
//	medkit-proxy [flags]
//
// Flags:
//
//	-config string         Configuration file path
//	-log-level string      Log level: debug, info, warn, error
//	-log-format string     Log format: text, json
//	-protocol-log string   Write a protocol capture to this file
//	-discover              Bind devices advertised over mDNS
//	-interactive           Enable interactive command mode
//
// Examples:
//
//	# Start with a device file and a shell
//	medkit-proxy -config /etc/medkit/devices.yaml -interactive
//
//	# Discover devices and capture all traffic
//	medkit-proxy -discover -protocol-log proxy.mklog -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medkit-core/medkit-go/cmd/medkit-proxy/interactive"
	"github.com/medkit-core/medkit-go/internal/config"
	"github.com/medkit-core/medkit-go/internal/observability"
	"github.com/medkit-core/medkit-go/pkg/log"
)

// version is set at build time.
var version = "dev"

type flags struct {
	ConfigFile  string
	LogLevel    string
	LogFormat   string
	ProtocolLog string
	Discover    bool
	Interactive bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&f.LogFormat, "log-format", "", "Log format: text, json")
	flag.StringVar(&f.ProtocolLog, "protocol-log", "", "Write a protocol capture to this file")
	flag.BoolVar(&f.Discover, "discover", false, "Bind devices advertised over mDNS")
	flag.BoolVar(&f.Interactive, "interactive", false, "Enable interactive command mode")
	flag.Parse()
	return f
}

// apply overrides configuration values with flags given on the command line.
func (f flags) apply(cfg *config.Config) {
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.Log.Format = f.LogFormat
	}
	if f.ProtocolLog != "" {
		cfg.Log.Protocol = f.ProtocolLog
	}
	if f.Discover {
		cfg.Discovery.Enabled = true
	}
}

func main() {
	if err := run(parseFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "medkit-proxy: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := config.Load(f.ConfigFile)
	if err != nil {
		return err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var shell *interactive.Shell
	logCfg := observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.OTEL.Service,
	}
	if f.Interactive {
		// Shell is created before the logger so log output goes through
		// readline; its cache is attached below.
		shell, err = interactive.New(nil, nil)
		if err != nil {
			return err
		}
		logCfg.Output = shell.Stdout()
	}
	logger := observability.InitLogger(logCfg)

	metrics, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		ServiceName:    cfg.OTEL.Service,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}()

	protoLog, closeProtoLog, err := openProtocolLog(cfg.Log.Protocol, logger)
	if err != nil {
		return err
	}
	defer closeProtoLog()

	a, err := newApp(cfg, logger, protoLog)
	if err != nil {
		return err
	}
	logger.Info("medkit-proxy starting",
		"version", version,
		"devices", a.cache.Len(),
		"discovery", cfg.Discovery.Enabled)

	errc := make(chan error, 1)
	go func() { errc <- a.run(ctx) }()

	if shell != nil {
		shell.Attach(a.cache, a.values)
		go shell.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	case runErr = <-errc:
	}

	logger.Info("shutting down")
	cancel()
	if err := a.shutdown(10 * time.Second); err != nil {
		logger.Warn("close failed", "error", err)
	}
	return runErr
}

// openProtocolLog returns the protocol logger for path. Debug logging also
// mirrors protocol events to the operational log.
func openProtocolLog(path string, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open protocol log: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			written, dropped := fl.Stats()
			logger.Info("protocol log closed", "path", path, "written", written, "dropped", dropped)
			_ = fl.Close()
		}
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return log.NewMultiLogger(loggers...), closeFn, nil
	}
}
