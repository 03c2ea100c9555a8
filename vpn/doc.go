// Package vpn implements the VPN subsystem of the TV Bridge backend:
// configuration classification, client binary detection, and the
// connect/disconnect/status operations that drive the platform VPN
// clients through an elevation-capable process launcher.
//
// The package recognizes two configuration formats:
//
//   - WireGuard .conf files, identified by the [Interface] and [Peer]
//     section markers
//   - OpenVPN .ovpn files, identified by the client directive together
//     with a remote directive or an inline <ca> block
//
// Parsing is a best-effort line scan, not a conformant grammar: unknown
// directives are ignored, key material is checked for presence but never
// captured, and the result always comes back as a ParsedConfig record
// with a validity flag instead of an error.
//
// Connection state is never cached. Every status query re-derives the
// answer from the OS link table (WireGuard) or process table (OpenVPN),
// and a query that finds no indicator reports Disconnected rather than
// failing.
package vpn
