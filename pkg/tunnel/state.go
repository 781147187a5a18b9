package tunnel

// State is the lifecycle state of the tunnel session.
type State uint8

const (
	// StateIdle means the engine is not initialized.
	StateIdle State = iota

	// StateInitialized means the engine is initialized and a connect request
	// has been issued, but the peer is not up.
	StateInitialized

	// StateConnected means the peer is up.
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateInitialized:
		return "INITIALIZED"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}
