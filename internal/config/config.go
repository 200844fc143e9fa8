package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type StoreConfig struct {
	Backend   string `yaml:"backend"` // memory | file | sqlite | redis
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisPass string `yaml:"redis_pass"`
	RedisDB   int    `yaml:"redis_db"`
}

type SessionConfig struct {
	BootstrapTimeout string `yaml:"bootstrap_timeout"`
}

type ConfigFile struct {
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	Log     struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

type Config struct {
	APIBaseURL       string
	APITimeout       time.Duration
	StoreBackend     string
	StorePath        string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	BootstrapTimeout time.Duration
	LogLevel         string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return d, nil
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return n, nil
}

// Load reads config.yml when present, then applies TRISON_* environment
// overrides. A .env file is honored the same way the backend honors its
// own.
func Load() (*Config, error) {
	return LoadFile(env("TRISON_CONFIG", "config.yml"))
}

// LoadFile is Load with an explicit config file path. A missing file is
// not an error; environment variables and defaults cover every field.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	var file ConfigFile
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg := &Config{
		APIBaseURL:    env("TRISON_API_BASE_URL", defaultStr(file.API.BaseURL, "http://localhost:8000/api/v1")),
		StoreBackend:  env("TRISON_STORE", defaultStr(file.Store.Backend, "file")),
		StorePath:     env("TRISON_STORE_PATH", defaultStr(file.Store.Path, defaultStorePath())),
		RedisAddr:     env("TRISON_REDIS_ADDR", defaultStr(file.Store.RedisAddr, "localhost:6379")),
		RedisPassword: env("TRISON_REDIS_PASS", file.Store.RedisPass),
		LogLevel:      env("TRISON_LOG_LEVEL", defaultStr(file.Log.Level, "info")),
	}

	var err error
	if cfg.APITimeout, err = envDuration("TRISON_API_TIMEOUT", fileDuration(file.API.Timeout, 30*time.Second)); err != nil {
		return nil, err
	}
	if cfg.BootstrapTimeout, err = envDuration("TRISON_BOOTSTRAP_TIMEOUT", fileDuration(file.Session.BootstrapTimeout, 5*time.Second)); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = envInt("TRISON_REDIS_DB", file.Store.RedisDB); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("api base URL cannot be empty")
	}
	switch c.StoreBackend {
	case "memory", "file", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if (c.StoreBackend == "file" || c.StoreBackend == "sqlite") && c.StorePath == "" {
		return fmt.Errorf("store path is required for the %s backend", c.StoreBackend)
	}
	if c.BootstrapTimeout <= 0 {
		return fmt.Errorf("bootstrap timeout must be positive")
	}
	return nil
}

func defaultStr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func fileDuration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trison/session.json"
	}
	return home + "/.trison/session.json"
}
