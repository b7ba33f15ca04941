// ABOUTME: Configuration management for adboard with YAML config loading.
// ABOUTME: Handles API, board, geo, log, and dev server settings plus ADBOARD_* env overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL   = "http://localhost:8080"
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 20
	DefaultRadiusKm = 10
	DefaultDevAddr  = "127.0.0.1:8080"
	DefaultTokenTTL = 2 * time.Hour
)

// Config stores adboard configuration loaded from ~/.config/adboard/config.yaml.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Board     BoardConfig     `yaml:"board"`
	Geo       GeoConfig       `yaml:"geo"`
	Log       LogConfig       `yaml:"log"`
	DevServer DevServerConfig `yaml:"devserver"`
}

// APIConfig holds the remote board API settings.
type APIConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// BoardConfig holds listing view settings.
type BoardConfig struct {
	PageSize int `yaml:"page_size,omitempty"`
}

// GeoConfig holds the home position as a geohash and the default search radius.
type GeoConfig struct {
	Home     string  `yaml:"home,omitempty"`
	RadiusKm float64 `yaml:"radius_km,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// DevServerConfig configures the bundled in-memory API server.
type DevServerConfig struct {
	Addr           string        `yaml:"addr,omitempty"`
	Secret         string        `yaml:"secret,omitempty"`
	TokenTTL       time.Duration `yaml:"token_ttl,omitempty"`
	AllowedOrigins []string      `yaml:"allowed_origins,omitempty"`
	Users          []UserConfig  `yaml:"users,omitempty"`
	Seed           bool          `yaml:"seed,omitempty"`
}

// UserConfig is a dev server account.
type UserConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// HasRemote returns true if an API URL is configured.
func (c *Config) HasRemote() bool {
	return c.API.URL != ""
}

// GetAPIURL returns the API URL, defaulting to a local dev server.
func (c *Config) GetAPIURL() string {
	if c.API.URL != "" {
		return c.API.URL
	}
	return DefaultAPIURL
}

// GetTimeout returns the per-request HTTP timeout.
func (c *Config) GetTimeout() time.Duration {
	if c.API.Timeout > 0 {
		return c.API.Timeout
	}
	return DefaultTimeout
}

// GetPageSize returns the listing page size.
func (c *Config) GetPageSize() int {
	if c.Board.PageSize > 0 {
		return c.Board.PageSize
	}
	return DefaultPageSize
}

// GetRadiusKm returns the default geo search radius.
func (c *Config) GetRadiusKm() float64 {
	if c.Geo.RadiusKm > 0 {
		return c.Geo.RadiusKm
	}
	return DefaultRadiusKm
}

// GetLogFile returns the expanded log file path, or "" for none.
func (c *Config) GetLogFile() (string, error) {
	return ExpandPath(c.Log.File)
}

// GetDevAddr returns the dev server listen address.
func (c *Config) GetDevAddr() string {
	if c.DevServer.Addr != "" {
		return c.DevServer.Addr
	}
	return DefaultDevAddr
}

// GetTokenTTL returns the dev server token lifetime.
func (c *Config) GetTokenTTL() time.Duration {
	if c.DevServer.TokenTTL > 0 {
		return c.DevServer.TokenTTL
	}
	return DefaultTokenTTL
}

// DataDir returns the adboard data directory under XDG_DATA_HOME.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "adboard"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "adboard", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads the config file, then a .env file in the working directory if
// present, then applies ADBOARD_* environment overrides.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads config from disk without env overrides. Returns default
// config if the file doesn't exist.
func LoadFile() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from ADBOARD_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("ADBOARD_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("ADBOARD_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ADBOARD_API_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("ADBOARD_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ADBOARD_PAGE_SIZE: %w", err)
		}
		c.Board.PageSize = n
	}
	if v := os.Getenv("ADBOARD_GEO_HOME"); v != "" {
		c.Geo.Home = v
	}
	if v := os.Getenv("ADBOARD_GEO_RADIUS_KM"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ADBOARD_GEO_RADIUS_KM: %w", err)
		}
		c.Geo.RadiusKm = r
	}
	if v := os.Getenv("ADBOARD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ADBOARD_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("ADBOARD_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("ADBOARD_DEVSERVER_ADDR"); v != "" {
		c.DevServer.Addr = v
	}
	if v := os.Getenv("ADBOARD_DEVSERVER_SECRET"); v != "" {
		c.DevServer.Secret = v
	}
	if v := os.Getenv("ADBOARD_DEVSERVER_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.DevServer.AllowedOrigins = origins
	}
	return nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
