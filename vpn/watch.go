// Package vpn implements VPN configuration parsing and connection
// management for the TV Bridge backend.
// This file contains the Watcher, a poll loop that re-queries the OS for
// connection status and reports transitions to interested listeners.
package vpn

import (
	"context"
	"sync"
	"time"

	"github.com/yllada/tvbridge/common"
)

// Watcher periodically re-derives the connection status from the OS and
// invokes a callback when it changes. The watcher holds no state machine
// of its own; it only remembers the last observation for comparison.
type Watcher struct {
	mu       sync.RWMutex
	manager  *Manager
	interval time.Duration
	running  bool
	stopChan chan struct{}
	last     ConnectionStatus
	onChange func(old, new ConnectionStatus)
}

// NewWatcher creates a watcher polling at the given interval.
func NewWatcher(manager *Manager, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = common.WatchInterval
	}
	return &Watcher{
		manager:  manager,
		interval: interval,
		stopChan: make(chan struct{}),
		last:     disconnected(),
	}
}

// SetOnChange registers a callback for status transitions.
func (w *Watcher) SetOnChange(fn func(old, new ConnectionStatus)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start begins the polling loop.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.mu.Unlock()

	common.LogInfo("Status watcher started (interval: %v)", w.interval)
	go w.runLoop()
}

// Stop stops the polling loop.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	w.mu.Unlock()

	common.LogInfo("Status watcher stopped")
}

// IsRunning returns whether the watcher loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Last returns the most recent observation.
func (w *Watcher) Last() ConnectionStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

func (w *Watcher) runLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	status := w.manager.CurrentStatus(ctx)
	cancel()

	w.mu.Lock()
	old := w.last
	changed := old.State != status.State || old.Tunnel != status.Tunnel
	w.last = status
	onChange := w.onChange
	w.mu.Unlock()

	if changed {
		common.LogInfo("Connection status changed: %s -> %s", old.State, status.State)
		if onChange != nil {
			go onChange(old, status)
		}
	}
}
