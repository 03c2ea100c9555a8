// Package main provides the entry point for the TV Bridge backend.
// TV Bridge is the native companion of a desktop streaming client; this
// binary manages the VPN subsystem: configuration parsing, client
// detection, and tunnel connect/disconnect/status, exposed through a
// CLI, a terminal dashboard, and a loopback REST API for the frontend.
//
// Usage:
//
//	tvbridge [options]
//
// Environment:
//
//	WireGuard (wireguard-tools) and/or OpenVPN must be installed for the
//	connection operations; parsing and detection work without them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/yllada/tvbridge/api"
	"github.com/yllada/tvbridge/cli"
	"github.com/yllada/tvbridge/common"
	"github.com/yllada/tvbridge/config"
	"github.com/yllada/tvbridge/history"
	"github.com/yllada/tvbridge/notify"
	"github.com/yllada/tvbridge/profile"
	"github.com/yllada/tvbridge/tui"
	"github.com/yllada/tvbridge/vpn"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z).
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

var (
	showVersion = flag.Bool("version", false, "Show version and exit")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	showHelp    = flag.Bool("help", false, "Show help message")

	parseFile     = flag.String("parse", "", "Classify a VPN config file")
	detectClients = flag.Bool("detect", false, "Show which VPN clients are installed")
	listProfiles  = flag.Bool("list", false, "List all VPN profiles")
	addProfile    = flag.String("add-profile", "", "Import a profile with the given name")
	configFile    = flag.String("config", "", "Config file for --add-profile")
	username      = flag.String("username", "", "Username for --add-profile")
	savePassword  = flag.Bool("save-password", false, "Store the password in the keyring")
	removeProfile = flag.String("remove-profile", "", "Remove a profile by name or ID")
	connectArg    = flag.String("connect", "", "Connect a profile or config file")
	disconnectArg = flag.String("disconnect", "", "Disconnect (use 'all' or a profile name)")
	doDisconnect  = flag.Bool("down", false, "Disconnect the active tunnel")
	showStatus    = flag.Bool("status", false, "Show current connection status")
	showHistory   = flag.Bool("history", false, "Show recent connection events")
	serveAddr     = flag.String("serve", "", "Run the REST API on the given address")
	runTUI        = flag.Bool("tui", false, "Open the terminal dashboard")
)

func main() {
	flag.Parse()

	if *showHelp {
		cli.PrintHelp()
		return
	}
	if *showVersion {
		fmt.Printf("%s v%s\n", common.AppName, appVersion)
		if buildTime != "unknown" {
			fmt.Printf("  Build:  %s\n", buildTime)
			fmt.Printf("  Commit: %s\n", commitSHA)
		}
		return
	}

	logLevel := common.LevelInfo
	if *verbose {
		logLevel = common.LevelDebug
	}
	if err := common.InitLogger(common.LogConfig{
		Level:      logLevel,
		EnableFile: true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize file logging: %v\n", err)
	}
	defer common.CloseLogger()

	if err := run(); err != nil {
		common.LogError("%v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	manager := vpn.NewManager()
	cfg.ApplyClientPaths(manager.Locator())

	profiles, err := profile.NewStore()
	if err != nil {
		return err
	}

	var events *history.Store
	if cfg.HistoryEnabled {
		if events, err = history.OpenDefault(); err != nil {
			common.LogWarn("History disabled: %v", err)
			events = nil
		} else {
			defer events.Close()
		}
	}

	notifier := wireEvents(manager, cfg, events)

	ctx, cancel := signalContext()
	defer cancel()

	c := cli.New(manager, profiles, events)

	switch {
	case *parseFile != "":
		return c.Parse(*parseFile)
	case *detectClients:
		return c.Detect()
	case *listProfiles:
		return c.ListProfiles(ctx)
	case *addProfile != "":
		if *configFile == "" {
			return errors.New("--add-profile requires --config FILE")
		}
		return c.AddProfile(*addProfile, *configFile, *username, *savePassword)
	case *removeProfile != "":
		return c.RemoveProfile(*removeProfile)
	case *connectArg != "":
		return c.Connect(ctx, *connectArg)
	case *disconnectArg != "" || *doDisconnect:
		return c.Disconnect(ctx, *disconnectArg)
	case *showStatus:
		return c.Status(ctx)
	case *showHistory:
		return c.History(50)
	case *serveAddr != "" || flag.NFlag() == 0 || onlyVerbose():
		addr := *serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}

		// Catch status changes made outside this process (e.g. the user
		// tearing a tunnel down from another terminal).
		watcher := vpn.NewWatcher(manager, common.WatchInterval)
		watcher.SetOnChange(func(old, current vpn.ConnectionStatus) {
			if notifier != nil && current.State == vpn.StateDisconnected && old.State == vpn.StateConnected {
				notifier.Send(notify.TypeWarning, common.AppName,
					fmt.Sprintf("Tunnel %s is no longer running", old.Tunnel))
			}
		})
		watcher.Start()
		defer watcher.Stop()

		engine := api.NewRouter(manager, profiles, events)
		return api.Serve(ctx, addr, engine)
	case *runTUI:
		app := tui.New(appVersion, manager, profiles)
		return app.Run()
	}

	cli.PrintHelp()
	return nil
}

// wireEvents connects manager lifecycle events to the notification and
// history sinks. Returns the notifier, or nil when notifications are off.
func wireEvents(manager *vpn.Manager, cfg *config.Config, events *history.Store) *notify.Notifier {
	var notifier *notify.Notifier
	if cfg.ShowNotifications {
		notifier = notify.New()
	}

	manager.SetEventHandler(func(ev vpn.Event) {
		if events != nil {
			if err := events.Record(history.Event{
				Time:   ev.Time,
				Tunnel: ev.Tunnel,
				Kind:   ev.Kind.String(),
				Type:   ev.Type,
				Detail: ev.Detail,
			}); err != nil {
				common.LogWarn("Could not record event: %v", err)
			}
		}
		if notifier == nil {
			return
		}
		switch ev.Type {
		case "connected":
			notifier.Send(notify.TypeSuccess, common.AppName,
				fmt.Sprintf("Connected to %s", ev.Tunnel))
		case "disconnected":
			notifier.Send(notify.TypeInfo, common.AppName,
				fmt.Sprintf("Disconnected from %s", ev.Tunnel))
		case "error":
			notifier.Send(notify.TypeError, common.AppName, ev.Detail)
		}
	})
	return notifier
}

// onlyVerbose reports whether the only flags set are logging-related,
// in which case the API server is the default mode.
func onlyVerbose() bool {
	only := true
	flag.Visit(func(f *flag.Flag) {
		if f.Name != "verbose" {
			only = false
		}
	})
	return only
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-ch:
			common.LogInfo("Received %s, shutting down %s", sig, filepath.Base(os.Args[0]))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
