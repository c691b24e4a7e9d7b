// ABOUTME: Tests for the server orchestrator
// ABOUTME: Runs a real listener against a fake n8n backend

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2389/simplevista/internal/config"
	"github.com/2389/simplevista/internal/store"
)

// testConfig creates a minimal config for testing with an available port.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	httpListener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find available HTTP port: %v", err)
	}
	httpAddr := httpListener.Addr().String()
	httpListener.Close()

	cfg := config.Default()
	cfg.Server.HTTPAddr = httpAddr
	cfg.Database.Path = store.MemoryPath
	cfg.Metrics.Enabled = true
	cfg.Backend.Timeout = 2 * time.Second
	return cfg
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runServer starts srv in the background and waits until /health answers.
func runServer(t *testing.T, srv *Server, addr string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start in time")
}

func TestServerNew(t *testing.T) {
	cfg := testConfig(t)

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	if srv.config != cfg {
		t.Error("server config mismatch")
	}
	if srv.store == nil {
		t.Error("store should not be nil")
	}
	if srv.webAdmin == nil {
		t.Error("webAdmin should not be nil")
	}
	if got := srv.gateway.Config().ChatURL; got != cfg.Backend.ChatURL {
		t.Errorf("gateway chat URL = %q, want %q", got, cfg.Backend.ChatURL)
	}
}

func TestServerNew_BadDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	// A regular file cannot be a parent directory
	file := filepath.Join(t.TempDir(), "file")
	if err := writeFile(file); err != nil {
		t.Fatal(err)
	}
	cfg.Database.Path = filepath.Join(file, "db.sqlite")

	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("expected error for unusable database path")
	}
}

func TestServerRunAndShutdown(t *testing.T) {
	cfg := testConfig(t)

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("server did not shutdown in time")
	}
}

func TestServerRun_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := testConfig(t)
	cfg.Server.HTTPAddr = ln.Addr().String()

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := srv.Run(t.Context()); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestHealthEndpoints(t *testing.T) {
	cfg := testConfig(t)

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	runServer(t, srv, cfg.Server.HTTPAddr)

	for _, path := range []string{"/health", "/health/ready"} {
		resp, err := http.Get("http://" + cfg.Server.HTTPAddr + path)
		if err != nil {
			t.Fatalf("%s request failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}
}

func TestReadyEndpoint_StoreClosed(t *testing.T) {
	cfg := testConfig(t)

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	_ = srv.store.Close()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRootRedirectsToConsole(t *testing.T) {
	cfg := testConfig(t)

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != config.DefaultBasePath {
		t.Errorf("Location = %q, want %q", loc, config.DefaultBasePath)
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestChatRoundTrip(t *testing.T) {
	var gotBody map[string]any
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 7, "type": "ai", "text": "bonjour", "timestamp": "2024-05-01T10:00:00Z"}`))
	}))
	defer backend.Close()

	cfg := testConfig(t)
	cfg.Backend.ChatURL = backend.URL

	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	runServer(t, srv, cfg.Server.HTTPAddr)

	req, err := http.NewRequest(http.MethodPost,
		"http://"+cfg.Server.HTTPAddr+config.DefaultBasePath+"api/chat",
		strings.NewReader(`{"message": "salut"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", "adminUserKey=key-123")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("chat request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var reply struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if reply.Text != "bonjour" || reply.Type != "ai" {
		t.Errorf("reply = %+v", reply)
	}

	if gotBody["adminUserKey"] != "key-123" {
		t.Errorf("adminUserKey = %v, want key-123", gotBody["adminUserKey"])
	}
	if gotBody["projectKey"] != config.DefaultProjectKey {
		t.Errorf("projectKey = %v, want %s", gotBody["projectKey"], config.DefaultProjectKey)
	}
	if gotBody["message"] != "salut" {
		t.Errorf("message = %v, want salut", gotBody["message"])
	}

	// The call is visible in the metrics endpoint
	mresp, err := http.Get("http://" + cfg.Server.HTTPAddr + cfg.Metrics.Path)
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer mresp.Body.Close()
	body, _ := io.ReadAll(mresp.Body)
	if !strings.Contains(string(body), `simplevista_gateway_calls_total{operation="chat",outcome="ok"} 1`) {
		t.Errorf("metrics missing chat call counter:\n%s", body)
	}
}

func TestResolveTailscaleStateDir(t *testing.T) {
	got, err := resolveTailscaleStateDir("/var/lib/sv")
	if err != nil || got != "/var/lib/sv" {
		t.Errorf("configured dir = %q, %v", got, err)
	}

	t.Setenv("HOME", "/home/tester")
	got, err = resolveTailscaleStateDir("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join("/home/tester", ".local", "share", "simplevista", "tailscale")
	if got != want {
		t.Errorf("default dir = %q, want %q", got, want)
	}
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	if _, err := resolveTailscaleAuthKey(""); err == nil {
		t.Error("expected error without any auth key")
	}

	t.Setenv("TS_AUTHKEY", "tskey-env")
	if got, _ := resolveTailscaleAuthKey(""); got != "tskey-env" {
		t.Errorf("env key = %q", got)
	}
	if got, _ := resolveTailscaleAuthKey("tskey-cfg"); got != "tskey-cfg" {
		t.Errorf("configured key = %q", got)
	}
}

func TestAppendCloseError(t *testing.T) {
	errs := appendCloseError(nil, "store close", nil)
	if len(errs) != 0 {
		t.Fatalf("nil error appended: %v", errs)
	}

	boom := errors.New("boom")
	errs = appendCloseError(errs, "store close", boom)
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Fatalf("errs = %v", errs)
	}
	if errs[0].Error() != "store close: boom" {
		t.Errorf("message = %q", errs[0].Error())
	}
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0600)
}
