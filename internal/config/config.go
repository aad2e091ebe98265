// Package config loads service settings from an optional YAML file, an
// optional .env file and the process environment, in that order of
// increasing precedence.
package config

import (
    "errors"
    "fmt"
    "io/fs"
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
    yaml "gopkg.in/yaml.v3"
)

type Config struct {
    Port        string `yaml:"port"`
    DatabaseURL string `yaml:"database_url"`
    RedisURL    string `yaml:"redis_url"`
    DataDir     string `yaml:"data_dir"`
    TimeZone    string `yaml:"time_zone"`
    Locale      string `yaml:"locale"`

    Maps   MapsConfig   `yaml:"maps"`
    Sheets SheetsConfig `yaml:"sheets"`
    Rate   RateConfig   `yaml:"rate"`

    SyncDebounceMs int `yaml:"sync_debounce_ms"`
}

type MapsConfig struct {
    APIKey string  `yaml:"api_key"`
    Region string  `yaml:"region"`
    RPS    float64 `yaml:"rps"`
}

type SheetsConfig struct {
    SpreadsheetID   string `yaml:"spreadsheet_id"`
    Tab             string `yaml:"tab"`
    CredentialsFile string `yaml:"credentials_file"`
    TokenFile       string `yaml:"token_file"`
}

type RateConfig struct {
    RPS   float64 `yaml:"rps"`
    Burst int     `yaml:"burst"`
}

func Defaults() Config {
    return Config{
        Port:           "8080",
        TimeZone:       "Australia/Melbourne",
        Locale:         "en",
        Maps:           MapsConfig{Region: "AU", RPS: 5},
        Sheets:         SheetsConfig{Tab: "Clients"},
        Rate:           RateConfig{RPS: 20, Burst: 40},
        SyncDebounceMs: 1200,
    }
}

// Load reads VISITROUTE_CONFIG (default config.yaml) and .env when present,
// then applies environment overrides. Missing files are not an error.
func Load() (Config, error) {
    cfg := Defaults()
    path := os.Getenv("VISITROUTE_CONFIG")
    if path == "" {
        path = "config.yaml"
    }
    if err := cfg.loadYAML(path); err != nil {
        return cfg, err
    }
    if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
        return cfg, fmt.Errorf("load .env: %w", err)
    }
    if err := cfg.applyEnv(os.Getenv); err != nil {
        return cfg, err
    }
    cfg.fill()
    return cfg, cfg.Validate()
}

func (c *Config) loadYAML(path string) error {
    b, err := os.ReadFile(path)
    if errors.Is(err, fs.ErrNotExist) {
        return nil
    }
    if err != nil {
        return err
    }
    if err := yaml.Unmarshal(b, c); err != nil {
        return fmt.Errorf("parse %s: %w", path, err)
    }
    return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
    str := func(key string, dst *string) {
        if v := strings.TrimSpace(getenv(key)); v != "" {
            *dst = v
        }
    }
    str("PORT", &c.Port)
    str("DATABASE_URL", &c.DatabaseURL)
    str("REDIS_URL", &c.RedisURL)
    str("DATA_DIR", &c.DataDir)
    str("TIME_ZONE", &c.TimeZone)
    str("LOCALE", &c.Locale)
    str("GOOGLE_MAPS_API_KEY", &c.Maps.APIKey)
    str("MAP_REGION", &c.Maps.Region)
    str("GOOGLE_SHEETS_SPREADSHEET_ID", &c.Sheets.SpreadsheetID)
    str("GOOGLE_SHEETS_TAB_NAME", &c.Sheets.Tab)
    str("GOOGLE_OAUTH_CREDENTIALS", &c.Sheets.CredentialsFile)
    str("GOOGLE_OAUTH_TOKEN_FILE", &c.Sheets.TokenFile)

    if v := getenv("RATE_RPS"); v != "" {
        f, err := strconv.ParseFloat(v, 64)
        if err != nil {
            return fmt.Errorf("RATE_RPS: %w", err)
        }
        c.Rate.RPS = f
    }
    if v := getenv("RATE_BURST"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil {
            return fmt.Errorf("RATE_BURST: %w", err)
        }
        c.Rate.Burst = n
    }
    if v := getenv("SYNC_DEBOUNCE_MS"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil {
            return fmt.Errorf("SYNC_DEBOUNCE_MS: %w", err)
        }
        c.SyncDebounceMs = n
    }
    return nil
}

func (c *Config) fill() {
    if c.DataDir == "" {
        if home, err := os.UserHomeDir(); err == nil {
            c.DataDir = filepath.Join(home, ".config", "visitroute")
        } else {
            c.DataDir = "."
        }
    }
    if c.Sheets.TokenFile == "" {
        c.Sheets.TokenFile = filepath.Join(c.DataDir, "token.json")
    }
    if c.Sheets.Tab == "" {
        c.Sheets.Tab = "Clients"
    }
}

func (c Config) Validate() error {
    if _, err := time.LoadLocation(c.TimeZone); err != nil {
        return fmt.Errorf("time_zone %q: %w", c.TimeZone, err)
    }
    if c.Locale != "en" && c.Locale != "zh" {
        return fmt.Errorf("locale must be en or zh, got %q", c.Locale)
    }
    if c.SyncDebounceMs < 0 {
        return fmt.Errorf("sync_debounce_ms must be >= 0")
    }
    return nil
}

// Location is the parsed TimeZone; Validate guarantees it loads.
func (c Config) Location() *time.Location {
    loc, err := time.LoadLocation(c.TimeZone)
    if err != nil {
        return time.Local
    }
    return loc
}

func (c Config) SyncDebounce() time.Duration {
    return time.Duration(c.SyncDebounceMs) * time.Millisecond
}

// SheetsEnabled reports whether spreadsheet backup is configured.
func (c Config) SheetsEnabled() bool {
    return c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsFile != ""
}
