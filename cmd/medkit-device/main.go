// Command medkit-device simulates a networked patient monitor.
//
// It serves vital-sign resources over the medkit message protocol on a
// framed TCP port and, unless disabled, advertises itself over mDNS so a
// medkit-proxy started with -discover binds it automatically.
//
// Usage:
//
//	medkit-device [flags]
//
// Flags:
//
//	-id string             Device identifier (default "sim-monitor")
//	-name string           Human-readable name
//	-listen string         Listen address (default ":7400")
//	-priority int          Advertised port priority
//	-advertise             Advertise over mDNS (default true)
//	-interface string      Network interface for mDNS
//	-interval duration     Simulation interval (default 2s)
//	-log-level string      Log level: debug, info, warn, error
//	-protocol-log string   Write a protocol capture to this file
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medkit-core/medkit-go/internal/observability"
	"github.com/medkit-core/medkit-go/pkg/connection"
	"github.com/medkit-core/medkit-go/pkg/discovery"
	"github.com/medkit-core/medkit-go/pkg/log"
)

// Config holds the simulator configuration.
type Config struct {
	DeviceID    string
	Name        string
	Listen      string
	Priority    int
	Advertise   bool
	Interface   string
	Interval    time.Duration
	LogLevel    string
	ProtocolLog string
}

func parseFlags() Config {
	var c Config
	flag.StringVar(&c.DeviceID, "id", "sim-monitor", "Device identifier")
	flag.StringVar(&c.Name, "name", "Simulated Monitor", "Human-readable name")
	flag.StringVar(&c.Listen, "listen", fmt.Sprintf(":%d", discovery.DefaultPort), "Listen address")
	flag.IntVar(&c.Priority, "priority", 0, "Advertised port priority")
	flag.BoolVar(&c.Advertise, "advertise", true, "Advertise over mDNS")
	flag.StringVar(&c.Interface, "interface", "", "Network interface for mDNS")
	flag.DurationVar(&c.Interval, "interval", 2*time.Second, "Simulation interval")
	flag.StringVar(&c.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&c.ProtocolLog, "protocol-log", "", "Write a protocol capture to this file")
	flag.Parse()
	return c
}

func main() {
	if err := run(parseFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "medkit-device: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	if cfg.DeviceID == "" {
		return fmt.Errorf("device id required")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		ServiceName: "medkit-device",
	}).With("device", cfg.DeviceID)

	var protoLog log.Logger
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		defer fl.Close()
		protoLog = fl
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	logger.Info("listening", "address", ln.Addr().String())

	if cfg.Advertise {
		adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{Interface: cfg.Interface})
		err := adv.Advertise(cfg.DeviceID, port, discovery.DeviceInfo{
			DeviceID: cfg.DeviceID,
			Protocol: connection.MessageProtocol,
			Priority: cfg.Priority,
			Name:     cfg.Name,
		})
		if err != nil {
			_ = ln.Close()
			return err
		}
		defer adv.Stop()
		logger.Info("advertising", "service", discovery.ServiceType, "port", port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := newSimulator(cfg.DeviceID, logger, protoLog)
	if err := sim.set(resourceAlarm, 120, time.Now()); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sim.serve(ctx, ln) })
	g.Go(func() error { return sim.simulate(ctx, cfg.Interval) })

	err = g.Wait()
	logger.Info("stopped")
	return err
}
