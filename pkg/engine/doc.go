// Package engine provides tunnel.Engine implementations.
//
// CommandEngine drives a kernel WireGuard interface with the wg(8) and ip(8)
// tools. NoopEngine simulates a peer that comes up on the first connect
// request and is used in standalone mode and tests.
package engine
