// Package log provides structured protocol capture for medkit.
//
// This package defines the Logger interface and Event types for capturing
// connectivity events at the layers of a device stack (port, connection,
// proxy). It is separate from operational logging (slog): protocol capture
// produces a machine-readable trace for debugging failover and teardown.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	opts = append(opts, device.WithProtocolLogger(log.NewSlogAdapter(slog.Default())))
//
//	// For production: write to binary file
//	fl, _ := log.NewFileLogger("/var/log/medkit/proxy.mklog")
//
//	// Both: use MultiLogger
//	log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
//   - Port: raw data units crossing a port boundary (FrameEvent)
//   - Connection, Proxy: lifecycle transitions (StateChangeEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .mklog extension.
package log
