// Package vpn implements VPN configuration parsing and connection
// management for the TV Bridge backend.
// This file contains the best-effort configuration classifier and field
// extractor for WireGuard and OpenVPN files.
package vpn

import "strings"

// ParsedConfig is the result of classifying and scanning a configuration
// file. It is produced once per Parse call and never mutated.
type ParsedConfig struct {
	// Kind is the detected protocol family. Defaults to WireGuard when
	// the content matches neither format.
	Kind Kind `json:"kind"`
	// Endpoint is the remote server as "host:port", when found.
	Endpoint string `json:"endpoint,omitempty"`
	// DNS is the DNS server directive value, when found.
	DNS string `json:"dns,omitempty"`
	// Address is the tunnel interface address, when found.
	Address string `json:"address,omitempty"`
	// Valid is true iff every required field for the detected kind was
	// present. Key material is checked for presence only, never captured.
	Valid bool `json:"valid"`
	// Error is a human-readable diagnostic when Valid is false.
	Error string `json:"error,omitempty"`
}

// defaultOpenVPNPort is used when a remote directive has no port token.
const defaultOpenVPNPort = "1194"

// Parse classifies content as a WireGuard or OpenVPN configuration and
// extracts a handful of fields by line-prefix matching.
//
// Parse is total: it never returns an error. Malformed lines and unknown
// directives are ignored, and missing required fields are reported through
// the Valid flag and the Error diagnostic. This is a heuristic scan, not a
// conformant grammar for either format: keys and certificates are checked
// for presence only, so no secret material is ever held.
func Parse(content string) ParsedConfig {
	switch {
	case isWireGuard(content):
		return parseWireGuard(content)
	case isOpenVPN(content):
		return parseOpenVPN(content)
	default:
		return ParsedConfig{
			Kind:  KindWireGuard,
			Valid: false,
			Error: "unrecognized configuration: expected a WireGuard file with [Interface] and [Peer] sections or an OpenVPN client file",
		}
	}
}

// isWireGuard reports whether the content carries both WireGuard section
// markers. First match wins over the OpenVPN check.
func isWireGuard(content string) bool {
	return strings.Contains(content, "[Interface]") && strings.Contains(content, "[Peer]")
}

// isOpenVPN reports whether the content looks like an OpenVPN client
// configuration: the client token plus either an inline CA block or a
// remote directive.
func isOpenVPN(content string) bool {
	if !strings.Contains(content, "client") {
		return false
	}
	if strings.Contains(content, "<ca>") {
		return true
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "remote ") {
			return true
		}
	}
	return false
}

func parseWireGuard(content string) ParsedConfig {
	cfg := ParsedConfig{Kind: KindWireGuard}

	var hasPrivateKey, hasPublicKey bool
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "Endpoint"):
			cfg.Endpoint = valueAfterEquals(line)
		case strings.HasPrefix(line, "DNS"):
			cfg.DNS = valueAfterEquals(line)
		case strings.HasPrefix(line, "Address"):
			cfg.Address = valueAfterEquals(line)
		case strings.HasPrefix(line, "PrivateKey"):
			hasPrivateKey = true
		case strings.HasPrefix(line, "PublicKey"):
			hasPublicKey = true
		}
	}

	var missing []string
	if !hasPrivateKey {
		missing = append(missing, "PrivateKey")
	}
	if !hasPublicKey {
		missing = append(missing, "PublicKey")
	}
	if cfg.Endpoint == "" {
		missing = append(missing, "Endpoint")
	}

	if len(missing) == 0 {
		cfg.Valid = true
	} else {
		cfg.Error = "missing required WireGuard fields: " + strings.Join(missing, ", ")
	}
	return cfg
}

func parseOpenVPN(content string) ParsedConfig {
	cfg := ParsedConfig{Kind: KindOpenVPN}

	var hasCertificate bool
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "remote ") && cfg.Endpoint == "":
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				host := fields[1]
				port := defaultOpenVPNPort
				if len(fields) >= 3 {
					port = fields[2]
				}
				cfg.Endpoint = host + ":" + port
			}
		case strings.HasPrefix(line, "dhcp-option"):
			fields := strings.Fields(line)
			if len(fields) >= 3 && fields[1] == "DNS" {
				cfg.DNS = fields[len(fields)-1]
			}
		case line == "<ca>" || strings.HasPrefix(line, "ca "):
			hasCertificate = true
		}
	}

	var missing []string
	if cfg.Endpoint == "" {
		missing = append(missing, "remote server")
	}
	if !hasCertificate {
		missing = append(missing, "CA certificate")
	}

	if len(missing) == 0 {
		cfg.Valid = true
	} else {
		cfg.Error = "missing required OpenVPN fields: " + strings.Join(missing, ", ")
	}
	return cfg
}

// valueAfterEquals returns the trimmed text after the first '=' on the
// line, or "" when the line carries no '='.
func valueAfterEquals(line string) string {
	i := strings.Index(line, "=")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(line[i+1:])
}
