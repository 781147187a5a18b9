// Package log provides a structured event trace for the tunnel gateway.
//
// It is separate from operational logging (slog): the trace is a
// machine-readable record of tunnel state transitions, engine errors and
// configuration changes that can be replayed with wgtunnel-log.
//
// # Basic Usage
//
//	// Console only
//	events := log.NewSlogAdapter(slog.Default())
//
//	// File only
//	events, _ := log.NewFileLogger("/var/lib/wgtunnel/tunnel.wlog")
//
//	// Both
//	events := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are tagged with the layer that produced them:
//   - Engine: calls into the tunnel engine (init, connect, routes)
//   - Tunnel: lifecycle manager state changes and handshakes
//   - Config: accepted configuration updates and store failures
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer map keys,
// conventionally using the .wlog extension.
package log
