package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yllada/tvbridge/profile"
	"github.com/yllada/tvbridge/vpn"
)

// stubRunner scripts results by executable name.
type stubRunner struct {
	results map[string]vpn.Result
}

func (s stubRunner) Run(_ context.Context, name string, _ ...string) (vpn.Result, error) {
	return s.results[name], nil
}

func testEngine(t *testing.T, runner stubRunner, clientPath string) (*gin.Engine, *profile.Store) {
	t.Helper()

	locator := vpn.NewLocator()
	if clientPath != "" {
		locator.SetCandidates(vpn.KindWireGuard, []string{clientPath})
		locator.SetCandidates(vpn.KindOpenVPN, []string{clientPath})
	} else {
		missing := filepath.Join(t.TempDir(), "absent")
		locator.SetCandidates(vpn.KindWireGuard, []string{missing})
		locator.SetCandidates(vpn.KindOpenVPN, []string{missing})
	}

	manager := vpn.NewManagerWith(runner, runner, locator)
	manager.SetVerifyTiming(20*time.Millisecond, 5*time.Millisecond)

	profiles, err := profile.NewStoreAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(manager, profiles, nil), profiles
}

func fakeClient(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wg-quick")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func doRequest(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	engine, _ := testEngine(t, stubRunner{}, "")

	w := doRequest(engine, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s, want ok status", w.Body.String())
	}
}

func TestParseEndpoint(t *testing.T) {
	engine, _ := testEngine(t, stubRunner{}, "")

	content := "[Interface]\nPrivateKey = x\nAddress = 10.0.0.2/32\n[Peer]\nPublicKey = y\nEndpoint = 1.2.3.4:51820\n"
	body, _ := json.Marshal(map[string]string{"content": content})

	w := doRequest(engine, http.MethodPost, "/vpn/parse", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var parsed vpn.ParsedConfig
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if !parsed.Valid || parsed.Kind != vpn.KindWireGuard {
		t.Errorf("parsed = %+v, want valid WireGuard", parsed)
	}
	if parsed.Endpoint != "1.2.3.4:51820" {
		t.Errorf("Endpoint = %q, want extracted", parsed.Endpoint)
	}
}

func TestParseEndpoint_MissingContent(t *testing.T) {
	engine, _ := testEngine(t, stubRunner{}, "")

	w := doRequest(engine, http.MethodPost, "/vpn/parse", "{}")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDetectEndpoint(t *testing.T) {
	engine, _ := testEngine(t, stubRunner{}, fakeClient(t))

	w := doRequest(engine, http.MethodGet, "/vpn/detect", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var detected map[string]vpn.ClientInfo
	if err := json.Unmarshal(w.Body.Bytes(), &detected); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if !detected["wireguard"].Available {
		t.Errorf("detected = %+v, want wireguard available", detected)
	}
}

func TestStatusEndpoint_Disconnected(t *testing.T) {
	runner := stubRunner{results: map[string]vpn.Result{
		"ip":    {ExitCode: 1},
		"pgrep": {ExitCode: 1},
	}}
	engine, _ := testEngine(t, runner, "")

	w := doRequest(engine, http.MethodGet, "/vpn/status?kind=wireguard&tunnel=office", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"state":"disconnected"`) {
		t.Errorf("body = %s, want disconnected state", w.Body.String())
	}
}

func TestConnectEndpoint_ClientMissing(t *testing.T) {
	engine, _ := testEngine(t, stubRunner{}, "")

	body := `{"config_path":"/tmp/office.conf","kind":"wireguard"}`
	w := doRequest(engine, http.MethodPost, "/vpn/connect", body)
	if w.Code != http.StatusFailedDependency {
		t.Errorf("status = %d, want 424", w.Code)
	}
}

func TestConnectEndpoint_PromptCancelled(t *testing.T) {
	client := fakeClient(t)
	runner := stubRunner{results: map[string]vpn.Result{
		client: {ExitCode: 126},
	}}
	engine, _ := testEngine(t, runner, client)

	body := `{"config_path":"/tmp/office.conf","kind":"wireguard"}`
	w := doRequest(engine, http.MethodPost, "/vpn/connect", body)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestProfileLifecycle(t *testing.T) {
	engine, _ := testEngine(t, stubRunner{}, "")

	configPath := filepath.Join(t.TempDir(), "office.conf")
	content := "[Interface]\nPrivateKey = x\n[Peer]\nPublicKey = y\nEndpoint = 1.2.3.4:51820\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"name":        "office",
		"config_path": configPath,
	})
	w := doRequest(engine, http.MethodPost, "/profiles", string(body))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (body: %s)", w.Code, w.Body.String())
	}

	var created profile.Profile
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("created profile has no ID")
	}

	w = doRequest(engine, http.MethodGet, "/profiles", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "office") {
		t.Errorf("list = %d %s, want the created profile", w.Code, w.Body.String())
	}

	// Duplicate names are rejected.
	w = doRequest(engine, http.MethodPost, "/profiles", string(body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate create status = %d, want 400", w.Code)
	}

	w = doRequest(engine, http.MethodDelete, "/profiles/"+created.ID, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
	w = doRequest(engine, http.MethodDelete, "/profiles/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestCreateProfile_InvalidConfig(t *testing.T) {
	engine, _ := testEngine(t, stubRunner{}, "")

	configPath := filepath.Join(t.TempDir(), "junk.conf")
	if err := os.WriteFile(configPath, []byte("not a vpn config\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string]string{"name": "junk", "config_path": configPath})
	w := doRequest(engine, http.MethodPost, "/profiles", string(body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEventsEndpoint_NoStore(t *testing.T) {
	engine, _ := testEngine(t, stubRunner{}, "")

	w := doRequest(engine, http.MethodGet, "/events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %s, want empty array", w.Body.String())
	}
}
