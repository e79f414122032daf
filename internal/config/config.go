package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig                 `yaml:"server"`
	Tailscale  TailscaleConfig              `yaml:"tailscale"`
	Auth       AuthConfig                   `yaml:"auth"`
	API        APIConfig                    `yaml:"api"`
	Storage    StorageConfig                `yaml:"storage"`
	Session    SessionConfig                `yaml:"session"`
	RestTimers models.SetRestTimersSettings `yaml:"rest_timers"`
	Log        LogConfig                    `yaml:"log"`
	MCP        MCPConfig                    `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// AuthConfig protects the local HTTP API. An empty key disables the check,
// which is only sensible on loopback or behind tailscale.
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// APIConfig points at the remote fitness API.
type APIConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Token           string        `yaml:"token"`
	Timeout         time.Duration `yaml:"timeout"`
	CatalogCacheMB  int           `yaml:"catalog_cache_mb"`
	CatalogCacheTTL time.Duration `yaml:"catalog_cache_ttl"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type SessionConfig struct {
	PersistDebounce time.Duration `yaml:"persist_debounce"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	HistoryTimeout  time.Duration `yaml:"history_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	File     string `yaml:"file"`
	ToStdout bool   `yaml:"to_stdout"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used for anything the file leaves out.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8090},
		Tailscale: TailscaleConfig{Hostname: "liftlog"},
		API: APIConfig{
			Timeout:         30 * time.Second,
			CatalogCacheMB:  8,
			CatalogCacheTTL: 24 * time.Hour,
		},
		Storage: StorageConfig{Dir: "~/.liftlog"},
		Session: SessionConfig{
			PersistDebounce: 500 * time.Millisecond,
			TickInterval:    time.Second,
			HistoryTimeout:  3 * time.Second,
		},
		RestTimers: models.SetRestTimersSettings{Normal: 90, WarmUp: 30, Drop: 30, Failure: 120},
		Log:        LogConfig{Level: "info", Format: "text", ToStdout: true},
	}
}

// Load reads config from a YAML file on top of Default, then applies
// environment variable overrides. Env vars use the prefix LIFTLOG_:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT,
//	LIFTLOG_API_BASE_URL, LIFTLOG_API_TOKEN, LIFTLOG_AUTH_API_KEY,
//	LIFTLOG_STORAGE_DIR, LIFTLOG_LOG_LEVEL, LIFTLOG_LOG_FILE,
//	LIFTLOG_TAILSCALE_ENABLED
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	dir, err := expandHome(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving storage.dir: %w", err)
	}
	cfg.Storage.Dir = dir

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIFTLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LIFTLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LIFTLOG_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("LIFTLOG_API_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("LIFTLOG_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("LIFTLOG_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("LIFTLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LIFTLOG_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("LIFTLOG_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
}

func (c *Config) validate() error {
	if !c.Tailscale.Enabled && c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL")
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	if c.API.Timeout <= 0 || c.API.CatalogCacheTTL <= 0 {
		return fmt.Errorf("api durations must be positive")
	}
	if c.Session.PersistDebounce <= 0 || c.Session.TickInterval <= 0 || c.Session.HistoryTimeout <= 0 {
		return fmt.Errorf("session durations must be positive")
	}
	rt := c.RestTimers
	if rt.Normal < 0 || rt.WarmUp < 0 || rt.Drop < 0 || rt.Failure < 0 {
		return fmt.Errorf("rest_timers must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
