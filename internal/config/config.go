package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Toggle modes select which store is authoritative for completion state.
const (
	// ToggleModeLocal makes the local ledger the only source of truth.
	ToggleModeLocal = "local"
	// ToggleModeRemote makes the remote question store the only source of truth;
	// the local ledger becomes a mirror.
	ToggleModeRemote = "remote"
)

// Config holds application configuration.
type Config struct {
	// CatalogURL is the base URL of the remote question store API.
	CatalogURL string `json:"catalog_url"`

	// FetchTimeoutSeconds bounds every network call to the question store.
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	// ToggleMode is "local" or "remote". See ToggleModeLocal/ToggleModeRemote.
	ToggleMode string `json:"toggle_mode"`

	// LogMode is passed to logger.New ("dev" or "prod").
	LogMode string `json:"log_mode,omitempty"`

	// ServerBind and ServerPort address the question store server started by `pmprep serve`.
	ServerBind string `json:"server_bind,omitempty"`
	ServerPort int    `json:"server_port,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools lists MCP tool names that should not be registered.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CatalogURL:          "http://127.0.0.1:8090/api",
		FetchTimeoutSeconds: 10,
		ToggleMode:          ToggleModeLocal,
		LogMode:             "dev",
		ServerBind:          "127.0.0.1",
		ServerPort:          8090,
	}
}

// FetchTimeout returns FetchTimeoutSeconds as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	switch c.ToggleMode {
	case ToggleModeLocal, ToggleModeRemote:
	default:
		return fmt.Errorf("toggle_mode must be one of: %s, %s (got %q)", ToggleModeLocal, ToggleModeRemote, c.ToggleMode)
	}
	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch_timeout_seconds must be positive (got %d)", c.FetchTimeoutSeconds)
	}
	if strings.TrimSpace(c.CatalogURL) == "" {
		return errors.New("catalog_url must not be empty")
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.pmprep.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// ApplyEnv overlays PMPREP_CATALOG_URL and PMPREP_TOGGLE_MODE when set.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv("PMPREP_CATALOG_URL")); v != "" {
		cfg.CatalogURL = v
	}
	if v := strings.TrimSpace(getenv("PMPREP_TOGGLE_MODE")); v != "" {
		cfg.ToggleMode = strings.ToLower(v)
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence when non-zero.
func Merge(base, overlay *Config) *Config {
	result := *base

	if s := strings.TrimSpace(overlay.CatalogURL); s != "" {
		result.CatalogURL = strings.TrimRight(s, "/")
	}
	if overlay.FetchTimeoutSeconds != 0 {
		result.FetchTimeoutSeconds = overlay.FetchTimeoutSeconds
	}
	if s := strings.TrimSpace(overlay.ToggleMode); s != "" {
		result.ToggleMode = strings.ToLower(s)
	}
	if s := strings.TrimSpace(overlay.LogMode); s != "" {
		result.LogMode = s
	}
	if s := strings.TrimSpace(overlay.ServerBind); s != "" {
		result.ServerBind = s
	}
	if overlay.ServerPort != 0 {
		result.ServerPort = overlay.ServerPort
	}
	if overlay.DBMaxOpenConns != 0 {
		result.DBMaxOpenConns = overlay.DBMaxOpenConns
	}
	if overlay.DBMaxIdleConns != 0 {
		result.DBMaxIdleConns = overlay.DBMaxIdleConns
	}
	if len(overlay.DisabledTools) > 0 {
		result.DisabledTools = dedupe(append(append([]string(nil), base.DisabledTools...), overlay.DisabledTools...))
	}

	return &result
}

// dedupe returns names with blanks and repeats removed, keeping first-seen order.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
