// Package vpn implements VPN configuration parsing and connection
// management for the TV Bridge backend.
package vpn

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies which VPN protocol family a configuration or
// connection belongs to.
type Kind int

const (
	// KindWireGuard is a WireGuard tunnel (.conf configuration).
	KindWireGuard Kind = iota
	// KindOpenVPN is an OpenVPN tunnel (.ovpn configuration).
	KindOpenVPN
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindWireGuard:
		return "WireGuard"
	case KindOpenVPN:
		return "OpenVPN"
	default:
		return "Unknown"
	}
}

// tag returns the wire representation used in JSON and YAML.
func (k Kind) tag() string {
	switch k {
	case KindOpenVPN:
		return "openvpn"
	default:
		return "wireguard"
	}
}

// ParseKind converts a wire or display name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wireguard", "wg":
		return KindWireGuard, nil
	case "openvpn", "ovpn":
		return KindOpenVPN, nil
	default:
		return KindWireGuard, fmt.Errorf("unknown vpn kind: %q", s)
	}
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.tag())
}

// UnmarshalJSON decodes the kind from its wire name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// MarshalYAML encodes the kind as its wire name.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.tag(), nil
}

// UnmarshalYAML decodes the kind from its wire name.
func (k *Kind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	kind, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
