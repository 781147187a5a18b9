package log

import (
	"time"
)

// Event is a single trace record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the tunnel session (UUID). Empty before the
	// first successful engine init.
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Layer that produced the event.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// Interface is the tunnel interface name, when known.
	Interface string `cbor:"5,keyasint,omitempty"`

	// Endpoint is the configured peer endpoint (host:port).
	Endpoint string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	StateChange  *StateChangeEvent  `cbor:"10,keyasint,omitempty"`
	Error        *ErrorEventData    `cbor:"11,keyasint,omitempty"`
	ConfigChange *ConfigChangeEvent `cbor:"12,keyasint,omitempty"`
	Handshake    *HandshakeEvent    `cbor:"13,keyasint,omitempty"`
}

// Layer indicates which component produced the event.
type Layer uint8

const (
	// LayerEngine is the tunnel engine adapter.
	LayerEngine Layer = 0
	// LayerTunnel is the lifecycle manager.
	LayerTunnel Layer = 1
	// LayerConfig is the configuration store.
	LayerConfig Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerEngine:
		return "ENGINE"
	case LayerTunnel:
		return "TUNNEL"
	case LayerConfig:
		return "CONFIG"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a state change.
	CategoryState Category = 0
	// CategoryError indicates an error.
	CategoryError Category = 1
	// CategoryConfig indicates an accepted configuration update.
	CategoryConfig Category = 2
	// CategoryHandshake indicates a new peer handshake was observed.
	CategoryHandshake Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryConfig:
		return "CONFIG"
	case CategoryHandshake:
		return "HANDSHAKE"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures tunnel, peer and route transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityTunnel is the lifecycle manager state machine.
	StateEntityTunnel StateEntity = 0
	// StateEntityPeer is the peer liveness reported by the engine.
	StateEntityPeer StateEntity = 1
	// StateEntityRoute is the allowed-IP route for the tunnel network.
	StateEntityRoute StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityTunnel:
		return "TUNNEL"
	case StateEntityPeer:
		return "PEER"
	case StateEntityRoute:
		return "ROUTE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}

// ConfigChangeEvent captures an accepted configuration update.
type ConfigChangeEvent struct {
	// Result is the update classification (CHANGED, CHANGED_RESTART).
	Result string `cbor:"1,keyasint"`

	// Source names the producer of the update (rest, console, ...).
	Source string `cbor:"2,keyasint,omitempty"`

	// Keys lists the document keys whose values changed.
	Keys []string `cbor:"3,keyasint,omitempty"`
}

// HandshakeEvent records the latest handshake reported by the engine.
type HandshakeEvent struct {
	// At is the handshake time.
	At time.Time `cbor:"1,keyasint"`
}
