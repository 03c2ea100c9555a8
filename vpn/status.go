// Package vpn implements VPN configuration parsing and connection
// management for the TV Bridge backend.
package vpn

import "encoding/json"

// State represents the state of a VPN connection.
type State int

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota
	// StateConnecting indicates a connection is being established.
	StateConnecting
	// StateConnected indicates an active, established connection.
	StateConnected
	// StateDisconnecting indicates the connection is being terminated.
	StateDisconnecting
	// StateError indicates the connection failed or encountered an error.
	StateError
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting..."
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting..."
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MarshalJSON encodes the state as a lowercase wire name.
func (s State) MarshalJSON() ([]byte, error) {
	switch s {
	case StateConnecting:
		return json.Marshal("connecting")
	case StateConnected:
		return json.Marshal("connected")
	case StateDisconnecting:
		return json.Marshal("disconnecting")
	case StateError:
		return json.Marshal("error")
	default:
		return json.Marshal("disconnected")
	}
}

// ConnectionStatus is the point-in-time status record returned by the
// manager. It is produced fresh on every query: the operating system's
// service and process tables are the only source of truth, so no
// connection object is cached between calls.
type ConnectionStatus struct {
	// State is the observed connection state.
	State State `json:"state"`
	// Kind is the protocol family of the matching connection, when known.
	Kind *Kind `json:"kind,omitempty"`
	// Tunnel is the tunnel identifier of the matching connection, when known.
	Tunnel string `json:"tunnel,omitempty"`
	// Error carries a human-readable message when State is StateError.
	Error string `json:"error,omitempty"`
}

// disconnected returns the safe-default status record.
func disconnected() ConnectionStatus {
	return ConnectionStatus{State: StateDisconnected}
}

// connected builds a Connected status for the given kind and tunnel.
func connected(kind Kind, tunnel string) ConnectionStatus {
	k := kind
	return ConnectionStatus{State: StateConnected, Kind: &k, Tunnel: tunnel}
}
