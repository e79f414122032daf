package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8080
api:
  base_url: "https://fitness.example"
  token: "tok"
  timeout: 10s
storage:
  dir: "/var/lib/liftlog"
session:
  persist_debounce: 250ms
rest_timers:
  normal: 120
  warm_up: 45
  drop: 0
  failure: 180
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.API.BaseURL != "https://fitness.example" {
		t.Errorf("api.base_url = %q, want %q", cfg.API.BaseURL, "https://fitness.example")
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("api.timeout = %v, want 10s", cfg.API.Timeout)
	}
	if cfg.Session.PersistDebounce != 250*time.Millisecond {
		t.Errorf("session.persist_debounce = %v, want 250ms", cfg.Session.PersistDebounce)
	}
	if cfg.RestTimers.WarmUp != 45 || cfg.RestTimers.Drop != 0 || cfg.RestTimers.Failure != 180 {
		t.Errorf("rest_timers = %+v, want warm_up 45, drop 0, failure 180", cfg.RestTimers)
	}
}

// TestLoadDefaults verifies that fields the file leaves out keep their defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.TickInterval != time.Second {
		t.Errorf("session.tick_interval = %v, want 1s", cfg.Session.TickInterval)
	}
	if cfg.Session.HistoryTimeout != 3*time.Second {
		t.Errorf("session.history_timeout = %v, want 3s", cfg.Session.HistoryTimeout)
	}
	if cfg.API.CatalogCacheMB != 8 {
		t.Errorf("api.catalog_cache_mb = %d, want 8", cfg.API.CatalogCacheMB)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" || !cfg.Log.ToStdout {
		t.Errorf("log = %+v, want info/text/stdout", cfg.Log)
	}
	if cfg.Tailscale.Hostname != "liftlog" {
		t.Errorf("tailscale.hostname = %q, want liftlog", cfg.Tailscale.Hostname)
	}
}

// TestEnvOverride verifies that LIFTLOG_ env vars take precedence over YAML values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("LIFTLOG_SERVER_PORT", "9999")
	t.Setenv("LIFTLOG_API_BASE_URL", "http://localhost:8000")
	t.Setenv("LIFTLOG_API_TOKEN", "env-token")
	t.Setenv("LIFTLOG_LOG_LEVEL", "debug")
	t.Setenv("LIFTLOG_TAILSCALE_ENABLED", "true")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("api.base_url = %q, want %q", cfg.API.BaseURL, "http://localhost:8000")
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("api.token = %q, want %q", cfg.API.Token, "env-token")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
	if !cfg.Tailscale.Enabled {
		t.Error("tailscale.enabled = false, want true")
	}
	// Unchanged fields should keep YAML values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
}

// TestStorageDirExpandsHome verifies that a leading ~ resolves to the home directory.
func TestStorageDirExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LIFTLOG_STORAGE_DIR", "~/lifts")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, "lifts"); cfg.Storage.Dir != want {
		t.Errorf("storage.dir = %q, want %q", cfg.Storage.Dir, want)
	}
}

// TestValidation verifies that incomplete or inconsistent configs are rejected.
func TestValidation(t *testing.T) {
	tests := map[string]string{
		"missing base url": `
server: {port: 8080}
`,
		"non-http base url": `
api: {base_url: "ftp://files.example"}
`,
		"missing port": `
server: {port: 0}
api: {base_url: "https://fitness.example"}
`,
		"negative rest timer": `
api: {base_url: "https://fitness.example"}
rest_timers: {normal: -1}
`,
		"zero tick": `
api: {base_url: "https://fitness.example"}
session: {tick_interval: 0s}
`,
		"unknown log format": `
api: {base_url: "https://fitness.example"}
log: {format: xml}
`,
	}
	for name, yaml := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// TestTailscaleWithoutPort verifies that a tailnet-only deployment needs no port.
func TestTailscaleWithoutPort(t *testing.T) {
	yaml := `
server: {port: 0}
tailscale: {enabled: true}
api: {base_url: "https://fitness.example"}
`
	if _, err := Load(writeTemp(t, yaml)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestLoadMissingFile verifies that a missing config file returns a clear error.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
