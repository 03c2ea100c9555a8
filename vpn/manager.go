// Package vpn implements VPN configuration parsing and connection
// management for the TV Bridge backend.
// This file contains the Manager type which drives connect, disconnect,
// and status operations by invoking the platform VPN clients through an
// elevation-capable process launcher.
package vpn

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yllada/tvbridge/common"
)

// Event describes a connection lifecycle change, used to feed the
// notification and history sinks.
type Event struct {
	Time   time.Time
	Tunnel string
	Kind   Kind
	Type   string // "connected", "disconnected", "error"
	Detail string
}

// Manager drives VPN connections. Every operation recomputes state from
// the OS service and process tables; the manager holds no connection
// registry, so concurrent calls rely on the OS serializing conflicting
// operations.
type Manager struct {
	runner         Runner
	elevated       Runner
	locator        *Locator
	verifyTimeout  time.Duration
	verifyInterval time.Duration
	onEvent        func(Event)
}

// NewManager creates a Manager that executes real commands, elevating
// privileged operations through pkexec.
func NewManager() *Manager {
	base := ExecRunner{}
	return NewManagerWith(base, Elevated(base), NewLocator())
}

// NewManagerWith creates a Manager with explicit collaborators. Tests use
// this to substitute a scripted runner.
func NewManagerWith(runner, elevated Runner, locator *Locator) *Manager {
	return &Manager{
		runner:         runner,
		elevated:       elevated,
		locator:        locator,
		verifyTimeout:  common.VerifyTimeout,
		verifyInterval: common.VerifyInterval,
	}
}

// Locator returns the client binary locator, so callers can apply
// candidate path overrides from the settings file.
func (m *Manager) Locator() *Locator {
	return m.locator
}

// SetVerifyTiming overrides the post-launch verification poll timing.
func (m *Manager) SetVerifyTiming(timeout, interval time.Duration) {
	m.verifyTimeout = timeout
	m.verifyInterval = interval
}

// SetEventHandler registers a callback invoked after every completed
// connect or disconnect, and on connection errors.
func (m *Manager) SetEventHandler(fn func(Event)) {
	m.onEvent = fn
}

// Detect probes the well-known install locations for every client kind.
func (m *Manager) Detect() map[Kind]ClientInfo {
	return m.locator.Detect()
}

// TunnelName derives the tunnel identifier for a configuration file.
// WireGuard tunnels are named after the config file's base name;
// OpenVPN sessions use a fixed logical name.
func TunnelName(kind Kind, configPath string) string {
	if kind == KindOpenVPN {
		return common.OpenVPNTunnelName
	}
	base := filepath.Base(configPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return common.DefaultWireGuardTunnel
	}
	return base
}

// Connect installs and starts a tunnel for the given configuration file.
//
// The client binary is resolved from the candidate table and invoked
// through the elevation launcher. A cancelled elevation prompt maps to
// common.ErrPermissionDenied; an "already exists" response is treated as
// idempotent success; any other reported failure maps to
// common.ErrExternalFailure. After a successful launch the OS is polled
// for a running indicator; when verification times out the connection is
// still reported as Connected, since slow-starting services routinely
// outlive the verification window.
func (m *Manager) Connect(ctx context.Context, configPath string, kind Kind) (ConnectionStatus, error) {
	return m.connect(ctx, configPath, kind, "")
}

// ConnectWithAuth connects an OpenVPN tunnel using a username/password
// file. The auth file is the caller's to create and remove.
func (m *Manager) ConnectWithAuth(ctx context.Context, configPath, authFile string) (ConnectionStatus, error) {
	return m.connect(ctx, configPath, KindOpenVPN, authFile)
}

func (m *Manager) connect(ctx context.Context, configPath string, kind Kind, authFile string) (ConnectionStatus, error) {
	clientPath, err := m.locator.Resolve(kind)
	if err != nil {
		return m.failure(kind, TunnelName(kind, configPath), err)
	}

	tunnel := TunnelName(kind, configPath)
	common.LogInfo("Connecting %s tunnel %q using %s", kind, tunnel, clientPath)

	var args []string
	switch kind {
	case KindWireGuard:
		args = []string{"up", configPath}
	case KindOpenVPN:
		args = []string{"--config", configPath, "--daemon", tunnel}
		if authFile != "" {
			args = append(args, "--auth-user-pass", authFile)
		}
	}

	res, err := m.elevated.Run(ctx, clientPath, args...)
	if err != nil {
		return m.failure(kind, tunnel,
			fmt.Errorf("%w: could not launch %s: %v", common.ErrExternalFailure, clientPath, err))
	}

	if res.ExitCode != 0 {
		switch {
		case isCancelled(res):
			return m.failure(kind, tunnel,
				common.WrapError(common.ErrPermissionDenied, "connection aborted"))
		case isAlreadyActive(res):
			// The tunnel service already exists: treat the launch as
			// idempotent success and go straight to verification.
			common.LogInfo("Tunnel %q already active, verifying", tunnel)
		default:
			return m.failure(kind, tunnel,
				fmt.Errorf("%w: %s", common.ErrExternalFailure, failureText(res)))
		}
	}

	if m.waitForTunnel(ctx, tunnel, kind) {
		common.LogInfo("Tunnel %q verified running", tunnel)
	} else {
		// Detection is advisory: the client accepted the config, so
		// report Connected even when no indicator appeared in time.
		common.LogWarn("Tunnel %q launched but not verified within %v", tunnel, m.verifyTimeout)
	}

	m.emit(Event{Time: time.Now(), Tunnel: tunnel, Kind: kind, Type: "connected"})
	return connected(kind, tunnel), nil
}

// Disconnect stops and removes a tunnel. WireGuard tunnels are brought
// down by name; OpenVPN sessions are terminated by process name. Client
// errors other than "already down" and a cancelled prompt are logged but
// do not fail the call, which always reports Disconnected on completion.
func (m *Manager) Disconnect(ctx context.Context, tunnel string, kind Kind) (ConnectionStatus, error) {
	if tunnel == "" {
		tunnel = TunnelName(kind, "")
	}
	common.LogInfo("Disconnecting %s tunnel %q", kind, tunnel)

	var res Result
	var err error
	switch kind {
	case KindWireGuard:
		var clientPath string
		clientPath, err = m.locator.Resolve(kind)
		if err != nil {
			return m.failure(kind, tunnel, err)
		}
		res, err = m.elevated.Run(ctx, clientPath, "down", tunnel)
	case KindOpenVPN:
		res, err = m.elevated.Run(ctx, "pkill", "-x", "openvpn")
	}
	if err != nil {
		return m.failure(kind, tunnel,
			fmt.Errorf("%w: could not launch disconnect command: %v", common.ErrExternalFailure, err))
	}

	if res.ExitCode != 0 {
		switch {
		case isCancelled(res):
			common.LogInfo("Disconnect of %q cancelled at the elevation prompt", tunnel)
		case isAlreadyDown(res, kind):
			common.LogInfo("Tunnel %q was already down", tunnel)
		default:
			common.LogError("Disconnect of %q reported: %s", tunnel, failureText(res))
		}
	}

	m.emit(Event{Time: time.Now(), Tunnel: tunnel, Kind: kind, Type: "disconnected"})
	return disconnected(), nil
}

// Status queries the OS for a running indicator of the given tunnel.
// It never fails: absence of evidence is reported as Disconnected.
func (m *Manager) Status(ctx context.Context, tunnel string, kind Kind) ConnectionStatus {
	if tunnel == "" {
		tunnel = TunnelName(kind, "")
	}
	if m.probe(ctx, tunnel, kind) {
		return connected(kind, tunnel)
	}
	return disconnected()
}

// CurrentStatus scans for any active tunnel of either kind: WireGuard
// links in the OS link table first, then a running openvpn process.
func (m *Manager) CurrentStatus(ctx context.Context) ConnectionStatus {
	if name := m.wireGuardLink(ctx); name != "" {
		return connected(KindWireGuard, name)
	}
	if m.probe(ctx, common.OpenVPNTunnelName, KindOpenVPN) {
		return connected(KindOpenVPN, common.OpenVPNTunnelName)
	}
	return disconnected()
}

// waitForTunnel polls the OS for a running indicator until it appears or
// the verification window closes.
func (m *Manager) waitForTunnel(ctx context.Context, tunnel string, kind Kind) bool {
	deadline := time.Now().Add(m.verifyTimeout)
	for {
		if m.probe(ctx, tunnel, kind) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(m.verifyInterval):
		}
	}
}

// probe checks the OS for a single tunnel indicator. WireGuard tunnels
// appear as network links; OpenVPN sessions as a named process.
func (m *Manager) probe(ctx context.Context, tunnel string, kind Kind) bool {
	switch kind {
	case KindWireGuard:
		res, err := m.runner.Run(ctx, "ip", "-o", "link", "show", "dev", tunnel)
		return err == nil && res.ExitCode == 0 && strings.Contains(res.Stdout, tunnel)
	case KindOpenVPN:
		res, err := m.runner.Run(ctx, "pgrep", "-x", "openvpn")
		return err == nil && res.ExitCode == 0 && strings.TrimSpace(res.Stdout) != ""
	}
	return false
}

// wireGuardLink returns the name of the first WireGuard link in the OS
// link table, or "" when none exists.
func (m *Manager) wireGuardLink(ctx context.Context) string {
	res, err := m.runner.Run(ctx, "ip", "-o", "link", "show", "type", "wireguard")
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			name := strings.TrimSuffix(fields[1], ":")
			if i := strings.Index(name, "@"); i >= 0 {
				name = name[:i]
			}
			if name != "" {
				return name
			}
		}
	}
	return ""
}

// failure logs, emits an error event, and builds the error status record.
func (m *Manager) failure(kind Kind, tunnel string, err error) (ConnectionStatus, error) {
	common.LogError("%s tunnel %q: %v", kind, tunnel, err)
	m.emit(Event{Time: time.Now(), Tunnel: tunnel, Kind: kind, Type: "error", Detail: err.Error()})
	k := kind
	return ConnectionStatus{State: StateError, Kind: &k, Tunnel: tunnel, Error: err.Error()}, err
}

func (m *Manager) emit(ev Event) {
	if m.onEvent != nil {
		m.onEvent(ev)
	}
}

// isCancelled reports whether the result looks like a dismissed or
// refused elevation prompt.
func isCancelled(res Result) bool {
	if res.ExitCode == pkexecExitDismissed || res.ExitCode == pkexecExitNotAuthorized {
		return true
	}
	stderr := strings.ToLower(res.Stderr)
	return strings.Contains(stderr, "dismissed") || strings.Contains(stderr, "not authorized")
}

// isAlreadyActive reports whether the client refused because the tunnel
// already exists.
func isAlreadyActive(res Result) bool {
	stderr := strings.ToLower(res.Stderr)
	return strings.Contains(stderr, "already exists") || strings.Contains(stderr, "already running")
}

// isAlreadyDown reports whether a disconnect failed only because nothing
// was running. pkill exits 1 when no process matched.
func isAlreadyDown(res Result, kind Kind) bool {
	if kind == KindOpenVPN && res.ExitCode == 1 && strings.TrimSpace(res.Stderr) == "" {
		return true
	}
	stderr := strings.ToLower(res.Stderr)
	return strings.Contains(stderr, "is not a wireguard interface") ||
		strings.Contains(stderr, "does not exist") ||
		strings.Contains(stderr, "not running")
}

// failureText extracts the most useful diagnostic from a failed result.
func failureText(res Result) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(res.Stdout); s != "" {
		return s
	}
	return fmt.Sprintf("exit status %d", res.ExitCode)
}
