package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.CatalogURL != def.CatalogURL {
		t.Errorf("CatalogURL = %q, want %q", cfg.CatalogURL, def.CatalogURL)
	}
	if cfg.ToggleMode != ToggleModeLocal {
		t.Errorf("ToggleMode = %q, want %q", cfg.ToggleMode, ToggleModeLocal)
	}
	if cfg.FetchTimeout() != 10*time.Second {
		t.Errorf("FetchTimeout() = %v, want 10s", cfg.FetchTimeout())
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"catalog_url": "http://example.test/api/", "toggle_mode": "REMOTE", "fetch_timeout_seconds": 3}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CatalogURL != "http://example.test/api" {
		t.Errorf("CatalogURL = %q, want trailing slash trimmed", cfg.CatalogURL)
	}
	if cfg.ToggleMode != ToggleModeRemote {
		t.Errorf("ToggleMode = %q, want %q", cfg.ToggleMode, ToggleModeRemote)
	}
	if cfg.FetchTimeoutSeconds != 3 {
		t.Errorf("FetchTimeoutSeconds = %d, want 3", cfg.FetchTimeoutSeconds)
	}
	// Untouched fields keep their defaults
	if cfg.ServerPort != 8090 {
		t.Errorf("ServerPort = %d, want 8090", cfg.ServerPort)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_InvalidToggleMode(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"toggle_mode": "both"}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error for unknown toggle_mode, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"remote mode", func(c *Config) { c.ToggleMode = ToggleModeRemote }, false},
		{"unknown mode", func(c *Config) { c.ToggleMode = "hybrid" }, true},
		{"zero timeout", func(c *Config) { c.FetchTimeoutSeconds = 0 }, true},
		{"negative timeout", func(c *Config) { c.FetchTimeoutSeconds = -1 }, true},
		{"empty url", func(c *Config) { c.CatalogURL = "  " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge_OverlayWins(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{ServerPort: 9999, DBMaxOpenConns: 1, DBMaxIdleConns: 1}

	result := Merge(base, overlay)

	if result.ServerPort != 9999 {
		t.Errorf("ServerPort = %d, want 9999", result.ServerPort)
	}
	if result.DBMaxOpenConns != 1 || result.DBMaxIdleConns != 1 {
		t.Errorf("DB pool = %d/%d, want 1/1", result.DBMaxOpenConns, result.DBMaxIdleConns)
	}
	if result.CatalogURL != base.CatalogURL {
		t.Errorf("CatalogURL = %q, want base %q", result.CatalogURL, base.CatalogURL)
	}
	// base must not be mutated
	if base.ServerPort != 8090 {
		t.Errorf("base.ServerPort mutated to %d", base.ServerPort)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PMPREP_CATALOG_URL": "http://env.test/api",
		"PMPREP_TOGGLE_MODE": "Remote",
	}
	cfg := DefaultConfig()
	ApplyEnv(cfg, func(k string) string { return env[k] })

	if cfg.CatalogURL != "http://env.test/api" {
		t.Errorf("CatalogURL = %q, want env override", cfg.CatalogURL)
	}
	if cfg.ToggleMode != ToggleModeRemote {
		t.Errorf("ToggleMode = %q, want %q", cfg.ToggleMode, ToggleModeRemote)
	}

	untouched := DefaultConfig()
	ApplyEnv(untouched, func(string) string { return "" })
	if untouched.ToggleMode != ToggleModeLocal {
		t.Errorf("ToggleMode = %q, want unchanged", untouched.ToggleMode)
	}
}

func TestMerge_DisabledToolsUnion(t *testing.T) {
	base := DefaultConfig()
	base.DisabledTools = []string{"progress_clear"}
	overlay := &Config{DisabledTools: []string{"note_clear", "progress_clear", " "}}

	result := Merge(base, overlay)

	want := []string{"progress_clear", "note_clear"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
}
