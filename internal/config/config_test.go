package config

import (
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestLoadLayersYAMLAndEnv(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "config.yaml")
    yml := "port: \"9000\"\nlocale: zh\nmaps:\n  api_key: yaml-key\n  region: NZ\nsheets:\n  spreadsheet_id: sheet-1\n"
    if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
        t.Fatal(err)
    }
    t.Setenv("VISITROUTE_CONFIG", path)
    t.Setenv("DATA_DIR", dir)
    t.Setenv("GOOGLE_MAPS_API_KEY", "env-key")
    t.Setenv("SYNC_DEBOUNCE_MS", "500")

    cfg, err := Load()
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if cfg.Port != "9000" || cfg.Locale != "zh" || cfg.Maps.Region != "NZ" {
        t.Fatalf("yaml values not applied: %+v", cfg)
    }
    if cfg.Maps.APIKey != "env-key" {
        t.Fatalf("env should override yaml, got %q", cfg.Maps.APIKey)
    }
    if cfg.SyncDebounce() != 500*time.Millisecond {
        t.Fatalf("debounce: %v", cfg.SyncDebounce())
    }
    if cfg.Sheets.TokenFile != filepath.Join(dir, "token.json") || cfg.Sheets.Tab != "Clients" {
        t.Fatalf("derived sheet settings: %+v", cfg.Sheets)
    }
    if cfg.SheetsEnabled() {
        t.Fatalf("sheets enabled without credentials")
    }
}

func TestDefaults(t *testing.T) {
    t.Setenv("VISITROUTE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
    cfg, err := Load()
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if cfg.TimeZone != "Australia/Melbourne" || cfg.Maps.Region != "AU" || cfg.SyncDebounceMs != 1200 {
        t.Fatalf("defaults: %+v", cfg)
    }
    if cfg.Location().String() != "Australia/Melbourne" {
        t.Fatalf("location: %v", cfg.Location())
    }
}

func TestValidateRejectsBadValues(t *testing.T) {
    cfg := Defaults()
    cfg.TimeZone = "Mars/Olympus"
    if err := cfg.Validate(); err == nil {
        t.Fatalf("bad zone accepted")
    }
    cfg = Defaults()
    cfg.Locale = "fr"
    if err := cfg.Validate(); err == nil {
        t.Fatalf("bad locale accepted")
    }
    t.Setenv("RATE_RPS", "fast")
    if err := cfg.applyEnv(os.Getenv); err == nil {
        t.Fatalf("bad RATE_RPS accepted")
    }
}
