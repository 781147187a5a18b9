// Package tunnel manages the lifecycle of a single WireGuard tunnel.
//
// A Manager stages a settings.TunnelConfig (Begin), brings the tunnel up
// through an Engine (Start), polls the engine for peer liveness (Loop) and
// tears it down again (Stop). All four are driven from one host run loop;
// Status accessors may be called from any goroutine.
//
// # States
//
//	IDLE ──Start──▶ INITIALIZED ──peer up──▶ CONNECTED
//	  ▲                  ▲ ◀────peer down──────┘
//	  └──────Stop────────┴──────────Stop───────┘
//
// # Reconnection
//
// While the peer is down the manager re-issues a connect request once the
// retry interval (5s) has elapsed since the previous attempt. The interval
// is fixed: there is no exponential growth, no jitter and no attempt limit.
//
// # Liveness
//
// The engine's peer-up signal is authoritative. The latest handshake time is
// recorded for status reporting only; a stale handshake does not force a
// reconnect.
//
// # Routes
//
// Each time the peer comes up, the tunnel network (address AND netmask) is
// installed as an allowed IP. Failure to do so is logged and the tunnel stays
// connected.
package tunnel
