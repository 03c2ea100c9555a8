package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	events := []Event{
		{Time: base, Tunnel: "office", Kind: "wireguard", Type: "connected"},
		{Time: base.Add(10 * time.Minute), Tunnel: "office", Kind: "wireguard", Type: "disconnected"},
		{Time: base.Add(20 * time.Minute), Tunnel: "openvpn-client", Kind: "openvpn", Type: "error", Detail: "prompt dismissed"},
	}
	for _, ev := range events {
		if err := store.Record(ev); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() = %d events, want 3", len(got))
	}
	// Newest first.
	if got[0].Type != "error" || got[0].Detail != "prompt dismissed" {
		t.Errorf("newest event = %+v, want the error event", got[0])
	}
	if got[2].Type != "connected" {
		t.Errorf("oldest event = %+v, want the connected event", got[2])
	}
}

func TestStore_RecentLimit(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		ev := Event{Time: base.Add(time.Duration(i) * time.Minute), Tunnel: "office", Kind: "wireguard", Type: "connected"}
		if err := store.Record(ev); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("Recent(2) = %d events, want 2", len(got))
	}
}

func TestStore_RecordFillsTime(t *testing.T) {
	store := openTestStore(t)

	if err := store.Record(Event{Tunnel: "office", Kind: "wireguard", Type: "connected"}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Recent(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Time.IsZero() {
		t.Errorf("event time = %v, want current time filled in", got)
	}
}

func TestStore_Prune(t *testing.T) {
	store := openTestStore(t)

	old := Event{Time: time.Now().Add(-48 * time.Hour), Tunnel: "office", Kind: "wireguard", Type: "connected"}
	recent := Event{Time: time.Now(), Tunnel: "office", Kind: "wireguard", Type: "disconnected"}
	if err := store.Record(old); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(recent); err != nil {
		t.Fatal(err)
	}

	if err := store.Prune(time.Now().Add(-24 * time.Hour)); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != "disconnected" {
		t.Errorf("after prune events = %+v, want only the recent one", got)
	}
}
