// Package notify sends desktop notifications for connection events.
// It talks to org.freedesktop.Notifications over the session D-Bus and
// falls back to notify-send when no session bus is reachable.
package notify

import (
	"os/exec"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/tvbridge/common"
)

// Urgency levels per the freedesktop notification spec.
const (
	urgencyLow      = byte(0)
	urgencyNormal   = byte(1)
	urgencyCritical = byte(2)
)

// Type classifies a notification for icon and urgency selection.
type Type int

const (
	TypeInfo Type = iota
	TypeSuccess
	TypeWarning
	TypeError
)

func (t Type) icon() string {
	switch t {
	case TypeWarning:
		return "dialog-warning"
	case TypeError:
		return "dialog-error"
	default:
		return "network-vpn"
	}
}

func (t Type) urgency() byte {
	switch t {
	case TypeError:
		return urgencyCritical
	case TypeWarning:
		return urgencyNormal
	default:
		return urgencyLow
	}
}

// Notifier sends desktop notifications. The zero value is not usable;
// create one with New.
type Notifier struct {
	conn *dbus.Conn
}

// New creates a Notifier. When the session bus is unavailable the
// notifier still works through the notify-send fallback.
func New() *Notifier {
	conn, err := dbus.SessionBus()
	if err != nil {
		common.LogWarn("Session bus unavailable, using notify-send fallback: %v", err)
		conn = nil
	}
	return &Notifier{conn: conn}
}

// Notify sends an informational notification.
func (n *Notifier) Notify(title, message string) error {
	return n.Send(TypeInfo, title, message)
}

// Send sends a notification of the given type.
func (n *Notifier) Send(t Type, title, message string) error {
	if n.conn != nil {
		if err := n.sendDBus(t, title, message); err == nil {
			return nil
		}
	}
	return sendFallback(t, title, message)
}

func (n *Notifier) sendDBus(t Type, title, message string) error {
	obj := n.conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.Call("org.freedesktop.Notifications.Notify", 0,
		common.AppName,     // app_name
		uint32(0),          // replaces_id
		t.icon(),           // app_icon
		title,              // summary
		message,            // body
		[]string{},         // actions
		map[string]dbus.Variant{
			"urgency": dbus.MakeVariant(t.urgency()),
		},
		int32(-1), // expire_timeout: server default
	)
	return call.Err
}

// sendFallback shells out to notify-send, matching what the desktop
// clients do when the bus API is unavailable.
func sendFallback(t Type, title, message string) error {
	urgency := "low"
	switch t {
	case TypeError:
		urgency = "critical"
	case TypeWarning:
		urgency = "normal"
	}
	cmd := exec.Command("notify-send",
		"--app-name="+common.AppName,
		"--icon="+t.icon(),
		"--urgency="+urgency,
		title,
		message,
	)
	if err := cmd.Run(); err != nil {
		common.LogDebug("notify-send failed: %v", err)
		return err
	}
	return nil
}
