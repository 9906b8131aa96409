package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Search    SearchConfig    `yaml:"search"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Views     ViewsConfig     `yaml:"views"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Traffic logs every MCP request and response at debug level.
	Traffic bool `yaml:"traffic"`
}

// TransportConfig selects how the MCP surface is served: "http" mounts it
// next to the REST API, "stdio" serves it alone on stdin/stdout.
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

type DatasetConfig struct {
	// Limit caps the number of methods loaded on refresh. Zero loads all.
	Limit          int  `yaml:"limit"`
	RefreshOnStart bool `yaml:"refresh_on_start"`
}

// SnapshotConfig points the watcher at a snapshot file. An empty path
// disables watching.
type SnapshotConfig struct {
	Path      string        `yaml:"path"`
	Debounce  time.Duration `yaml:"debounce"`
	ForcePoll bool          `yaml:"force_poll"`
}

// ViewsConfig controls how long an untouched view stays open. Zero keeps
// views open until they are closed explicitly.
type ViewsConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// ReapInterval is how often idle views are looked for.
func (c ViewsConfig) ReapInterval() time.Duration {
	return min(c.IdleTimeout, time.Minute)
}

const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "testcraft.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: TransportHTTP,
		},
		Search: SearchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Dataset: DatasetConfig{
			RefreshOnStart: true,
		},
		Snapshot: SnapshotConfig{
			Debounce: 200 * time.Millisecond,
		},
		Views: ViewsConfig{
			IdleTimeout: 30 * time.Minute,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// path overrides TESTCRAFT_CONFIG_PATH when non-empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TESTCRAFT_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings no component can run with.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Transport.Mode {
	case TransportHTTP, TransportStdio:
	default:
		return fmt.Errorf("invalid transport mode: %q", c.Transport.Mode)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("invalid search debounce: %s", c.Search.Debounce)
	}
	if c.Dataset.Limit < 0 {
		return fmt.Errorf("invalid dataset limit: %d", c.Dataset.Limit)
	}
	if c.Views.IdleTimeout < 0 {
		return fmt.Errorf("invalid view idle timeout: %s", c.Views.IdleTimeout)
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("TESTCRAFT_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TESTCRAFT_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid TESTCRAFT_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("TESTCRAFT_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("TESTCRAFT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if traffic := os.Getenv("TESTCRAFT_LOG_TRAFFIC"); traffic != "" {
		v, err := strconv.ParseBool(traffic)
		if err != nil {
			return fmt.Errorf("invalid TESTCRAFT_LOG_TRAFFIC: %w", err)
		}
		cfg.Log.Traffic = v
	}
	if mode := os.Getenv("TESTCRAFT_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = strings.ToLower(mode)
	}
	if enabled := os.Getenv("TESTCRAFT_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid TESTCRAFT_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if ms := os.Getenv("TESTCRAFT_SEARCH_DEBOUNCE_MS"); ms != "" {
		v, err := strconv.Atoi(ms)
		if err != nil {
			return fmt.Errorf("invalid TESTCRAFT_SEARCH_DEBOUNCE_MS: %w", err)
		}
		cfg.Search.Debounce = time.Duration(v) * time.Millisecond
	}
	if limit := os.Getenv("TESTCRAFT_DATASET_LIMIT"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("invalid TESTCRAFT_DATASET_LIMIT: %w", err)
		}
		cfg.Dataset.Limit = v
	}
	if snapshot := os.Getenv("TESTCRAFT_SNAPSHOT_PATH"); snapshot != "" {
		cfg.Snapshot.Path = snapshot
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
