// Package cli provides the command-line interface for the TV Bridge
// VPN subsystem, so connections can be managed and scripted from the
// terminal without the frontend.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/yllada/tvbridge/common"
	"github.com/yllada/tvbridge/history"
	"github.com/yllada/tvbridge/keyring"
	"github.com/yllada/tvbridge/profile"
	"github.com/yllada/tvbridge/vpn"
)

// CLI bundles the subsystem collaborators behind the terminal commands.
type CLI struct {
	manager  *vpn.Manager
	profiles *profile.Store
	events   *history.Store
}

// New creates a CLI instance. The history store may be nil.
func New(manager *vpn.Manager, profiles *profile.Store, events *history.Store) *CLI {
	return &CLI{manager: manager, profiles: profiles, events: events}
}

// Parse classifies a configuration file and prints the extracted fields.
func (c *CLI) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.WrapError(err, "could not read config file")
	}

	parsed := vpn.Parse(string(data))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Kind:\t%s\n", parsed.Kind)
	if parsed.Endpoint != "" {
		fmt.Fprintf(w, "Endpoint:\t%s\n", parsed.Endpoint)
	}
	if parsed.DNS != "" {
		fmt.Fprintf(w, "DNS:\t%s\n", parsed.DNS)
	}
	if parsed.Address != "" {
		fmt.Fprintf(w, "Address:\t%s\n", parsed.Address)
	}
	if parsed.Valid {
		fmt.Fprintf(w, "Valid:\tyes\n")
	} else {
		fmt.Fprintf(w, "Valid:\tno (%s)\n", parsed.Error)
	}
	return w.Flush()
}

// Detect prints which VPN clients are installed and where.
func (c *CLI) Detect() error {
	detected := c.manager.Detect()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLIENT\tAVAILABLE\tPATH")
	fmt.Fprintln(w, "------\t---------\t----")
	for _, kind := range []vpn.Kind{vpn.KindWireGuard, vpn.KindOpenVPN} {
		info := detected[kind]
		available := "no"
		path := "-"
		if info.Available {
			available = "yes"
			path = info.Path
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", kind, available, path)
	}
	return w.Flush()
}

// ListProfiles lists all configured VPN profiles with their status.
func (c *CLI) ListProfiles(ctx context.Context) error {
	profiles := c.profiles.List()
	if len(profiles) == 0 {
		fmt.Println("No VPN profiles configured.")
		fmt.Println("Add one with: tvbridge --add-profile NAME --config FILE")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tTUNNEL\tSTATUS")
	fmt.Fprintln(w, "--\t----\t----\t------\t------")
	for _, p := range profiles {
		status := c.manager.Status(ctx, p.TunnelName(), p.Kind)
		shortID := p.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID, p.Name, p.Kind, p.TunnelName(), status.State)
	}
	return w.Flush()
}

// AddProfile imports a configuration file as a named profile. When
// savePassword is set and the config is OpenVPN, the password is read
// from the terminal and stored in the keyring.
func (c *CLI) AddProfile(name, configPath, username string, savePassword bool) error {
	p := &profile.Profile{
		Name:         name,
		ConfigPath:   configPath,
		Username:     username,
		SavePassword: savePassword,
	}
	if err := c.profiles.Add(p); err != nil {
		return err
	}
	fmt.Printf("Profile %q added (%s, tunnel %s)\n", p.Name, p.Kind, p.TunnelName())

	if savePassword && p.Kind == vpn.KindOpenVPN {
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		if err := keyring.Set(p.ID, password); err != nil {
			return common.WrapError(err, "could not store password")
		}
		fmt.Println("Password stored in keyring.")
	}
	return nil
}

// RemoveProfile deletes a profile and its stored credentials.
func (c *CLI) RemoveProfile(nameOrID string) error {
	p := c.findProfile(nameOrID)
	if p == nil {
		return fmt.Errorf("profile not found: %s", nameOrID)
	}
	if err := c.profiles.Remove(p.ID); err != nil {
		return err
	}
	if err := keyring.Delete(p.ID); err != nil {
		common.LogWarn("Could not remove credentials for %s: %v", p.Name, err)
	}
	fmt.Printf("Profile %q removed\n", p.Name)
	return nil
}

// Connect connects a profile by name or ID, or a raw configuration file
// by path when no profile matches.
func (c *CLI) Connect(ctx context.Context, nameOrID string) error {
	if p := c.findProfile(nameOrID); p != nil {
		return c.connectProfile(ctx, p)
	}
	if common.FileExists(nameOrID) {
		return c.connectFile(ctx, nameOrID)
	}
	return fmt.Errorf("profile or config file not found: %s", nameOrID)
}

func (c *CLI) connectProfile(ctx context.Context, p *profile.Profile) error {
	fmt.Printf("Connecting to %s...\n", p.Name)

	var status vpn.ConnectionStatus
	var err error
	if p.Kind == vpn.KindOpenVPN && (p.Username != "" || p.SavePassword) {
		password := ""
		if p.SavePassword {
			if saved, kerr := keyring.Get(p.ID); kerr == nil {
				password = saved
			}
		}
		if password == "" {
			if password, err = readPassword("Password: "); err != nil {
				return err
			}
		}
		authFile, cleanup, aerr := vpn.WriteAuthFile(p.Username, password)
		if aerr != nil {
			return aerr
		}
		defer cleanup()
		status, err = c.manager.ConnectWithAuth(ctx, p.ConfigPath, authFile)
	} else {
		status, err = c.manager.Connect(ctx, p.ConfigPath, p.Kind)
	}
	if err != nil {
		return err
	}

	if err := c.profiles.MarkUsed(p.ID); err != nil {
		common.LogWarn("Could not update last-used for %s: %v", p.Name, err)
	}
	fmt.Printf("✓ %s (%s)\n", status.State, status.Tunnel)
	return nil
}

func (c *CLI) connectFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.WrapError(err, "could not read config file")
	}
	parsed := vpn.Parse(string(data))
	if !parsed.Valid {
		return common.WrapError(common.ErrInvalidConfig, parsed.Error)
	}

	fmt.Printf("Connecting %s tunnel from %s...\n", parsed.Kind, path)
	status, err := c.manager.Connect(ctx, path, parsed.Kind)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s (%s)\n", status.State, status.Tunnel)
	return nil
}

// Disconnect disconnects a profile by name or ID. With an empty
// argument it disconnects whatever tunnel is currently active.
func (c *CLI) Disconnect(ctx context.Context, nameOrID string) error {
	if nameOrID == "" || nameOrID == "all" {
		current := c.manager.CurrentStatus(ctx)
		if current.State != vpn.StateConnected || current.Kind == nil {
			fmt.Println("No active VPN connection.")
			return nil
		}
		fmt.Printf("Disconnecting %s...\n", current.Tunnel)
		if _, err := c.manager.Disconnect(ctx, current.Tunnel, *current.Kind); err != nil {
			return err
		}
		fmt.Println("✓ Disconnected")
		return nil
	}

	p := c.findProfile(nameOrID)
	if p == nil {
		return fmt.Errorf("profile not found: %s", nameOrID)
	}
	fmt.Printf("Disconnecting from %s...\n", p.Name)
	if _, err := c.manager.Disconnect(ctx, p.TunnelName(), p.Kind); err != nil {
		return err
	}
	fmt.Println("✓ Disconnected")
	return nil
}

// Status prints the current connection status.
func (c *CLI) Status(ctx context.Context) error {
	status := c.manager.CurrentStatus(ctx)
	if status.State != vpn.StateConnected {
		fmt.Println("No active VPN connection.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TUNNEL\tKIND\tSTATUS")
	fmt.Fprintln(w, "------\t----\t------")
	kind := "-"
	if status.Kind != nil {
		kind = status.Kind.String()
	}
	fmt.Fprintf(w, "%s\t%s\t%s\n", status.Tunnel, kind, status.State)
	return w.Flush()
}

// History prints recent connection events.
func (c *CLI) History(limit int) error {
	if c.events == nil {
		fmt.Println("History is disabled.")
		return nil
	}
	events, err := c.events.Recent(limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No recorded events.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTUNNEL\tKIND\tEVENT\tDETAIL")
	fmt.Fprintln(w, "----\t------\t----\t-----\t------")
	for _, ev := range events {
		detail := ev.Detail
		if detail == "" {
			detail = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			ev.Time.Format("2006-01-02 15:04:05"), ev.Tunnel, ev.Kind, ev.Type, detail)
	}
	return w.Flush()
}

// findProfile finds a profile by name or ID (case-insensitive, ID
// prefixes accepted).
func (c *CLI) findProfile(nameOrID string) *profile.Profile {
	needle := strings.ToLower(strings.TrimSpace(nameOrID))
	if needle == "" {
		return nil
	}
	for _, p := range c.profiles.List() {
		if strings.ToLower(p.Name) == needle ||
			strings.ToLower(p.ID) == needle ||
			strings.HasPrefix(strings.ToLower(p.ID), needle) {
			return p
		}
	}
	return nil
}

// readPassword reads a password from the terminal without echo.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", common.WrapError(err, "could not read password")
	}
	return string(password), nil
}

// PrintHelp prints CLI usage help.
func PrintHelp() {
	fmt.Println(helpText)
}

const helpText = `TV Bridge - VPN backend

Usage:
  tvbridge [OPTIONS]

Options:
  --version             Show version and exit
  --verbose             Enable verbose logging
  --parse FILE          Classify a VPN config file and show its fields
  --detect              Show which VPN clients are installed
  --list                List all VPN profiles
  --add-profile NAME    Import a profile (requires --config)
  --config FILE         Config file for --add-profile
  --username USER       Username for --add-profile (OpenVPN)
  --save-password       Store the password in the keyring (--add-profile)
  --remove-profile NAME Remove a profile
  --connect NAME|FILE   Connect a profile or a raw config file
  --disconnect NAME     Disconnect a profile by name ('all' for any)
  --down                Disconnect the active tunnel
  --status              Show current connection status
  --history             Show recent connection events
  --serve [ADDR]        Run the local REST API for the frontend
  --tui                 Open the terminal dashboard
  --help                Show this help message

Examples:
  tvbridge --parse ~/wg0.conf
  tvbridge --add-profile "Home" --config ~/wg0.conf
  tvbridge --connect Home
  tvbridge --down
  tvbridge --status
  tvbridge --serve 127.0.0.1:7313`
