// Package common provides shared constants, types, and utilities
// used across the TV Bridge backend.
package common

import "time"

// Application metadata.
const (
	// AppID is the unique identifier for the application.
	AppID = "com.tvbridge.app"
	// AppName is the display name of the application.
	AppName = "TV Bridge"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "tvbridge"
)

// File names used by the application.
const (
	ProfilesFileName    = "profiles.yaml"
	ConfigFileName      = "config.yaml"
	CredentialsFileName = ".credentials"
	LogFileName         = "tvbridge.log"
	HistoryFileName     = "history.db"
)

// Default timeouts and intervals.
const (
	// VerifyTimeout is how long to poll for a running tunnel indicator
	// after launching a VPN client.
	VerifyTimeout = 5 * time.Second
	// VerifyInterval is the poll interval while verifying a launch.
	VerifyInterval = 500 * time.Millisecond
	// ConnectionTimeout is the maximum time a connect operation may take,
	// including the elevation prompt.
	ConnectionTimeout = 60 * time.Second
	// WatchInterval is how often the status watcher re-queries the OS.
	WatchInterval = 3 * time.Second
)

// Tunnel naming.
const (
	// DefaultWireGuardTunnel is used when no name can be derived from the
	// configuration file.
	DefaultWireGuardTunnel = "wg0"
	// OpenVPNTunnelName is the fixed logical name for OpenVPN sessions.
	// OpenVPN connections are tracked by process, not by interface name.
	OpenVPNTunnelName = "openvpn-client"
)

// API defaults.
const (
	// DefaultListenAddr is the loopback address the local REST API binds to.
	// The frontend talks to this address only; it is never exposed externally.
	DefaultListenAddr = "127.0.0.1:7313"
)
