// Package vpn implements VPN configuration parsing and connection
// management for the TV Bridge backend.
// This file contains client binary detection. Install locations are a
// data concern: each kind carries an ordered candidate list that can be
// overridden from the application settings.
package vpn

import (
	"fmt"

	"github.com/yllada/tvbridge/common"
)

// ClientInfo describes whether a VPN client is installed and where.
type ClientInfo struct {
	Kind      Kind   `json:"kind"`
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
}

// defaultCandidates lists the well-known install locations probed per
// client kind, in order. No PATH search is performed.
func defaultCandidates() map[Kind][]string {
	return map[Kind][]string{
		KindWireGuard: {
			"/usr/bin/wg-quick",
			"/usr/local/bin/wg-quick",
		},
		KindOpenVPN: {
			"/usr/sbin/openvpn",
			"/usr/bin/openvpn",
		},
	}
}

// installHint returns user-actionable guidance for a missing client.
func installHint(kind Kind) string {
	switch kind {
	case KindOpenVPN:
		return "install the openvpn package (e.g. 'sudo apt install openvpn')"
	default:
		return "install the wireguard-tools package (e.g. 'sudo apt install wireguard-tools')"
	}
}

// Locator resolves VPN client binaries from a per-kind candidate table.
type Locator struct {
	candidates map[Kind][]string
	exists     func(string) bool
}

// NewLocator creates a Locator with the built-in candidate paths.
func NewLocator() *Locator {
	return &Locator{
		candidates: defaultCandidates(),
		exists:     common.FileExists,
	}
}

// SetCandidates overrides the candidate paths for a kind. Empty lists are
// ignored so a partial settings file keeps the defaults.
func (l *Locator) SetCandidates(kind Kind, paths []string) {
	if len(paths) == 0 {
		return
	}
	l.candidates[kind] = paths
}

// Resolve returns the first existing candidate path for the kind.
// Returns an error wrapping common.ErrClientNotFound, with installation
// guidance, when none of the candidates exist.
func (l *Locator) Resolve(kind Kind) (string, error) {
	for _, path := range l.candidates[kind] {
		if l.exists(path) {
			return path, nil
		}
	}
	return "", common.WrapError(common.ErrClientNotFound,
		fmt.Sprintf("%s client not found; %s", kind, installHint(kind)))
}

// Detect probes every kind and reports availability and the resolved path.
func (l *Locator) Detect() map[Kind]ClientInfo {
	result := make(map[Kind]ClientInfo, len(l.candidates))
	for kind := range l.candidates {
		info := ClientInfo{Kind: kind}
		if path, err := l.Resolve(kind); err == nil {
			info.Available = true
			info.Path = path
		}
		result[kind] = info
	}
	return result
}
