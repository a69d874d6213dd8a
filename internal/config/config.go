// Package config loads dashpoll settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v4"

	"github.com/Rin0913/dashpoll/internal/resource"
)

type Config struct {
	BaseURL    string                   `yaml:"base_url"`
	Token      string                   `yaml:"token"`
	TimeoutSec int                      `yaml:"timeout_sec"`
	Workers    int                      `yaml:"workers"`
	Listen     string                   `yaml:"listen"`
	LogLevel   string                   `yaml:"log_level"`
	Redis      RedisConfig              `yaml:"redis"`
	Resources  map[string]ResourceEntry `yaml:"resources"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ResourceEntry overrides the path or refresh interval of one resource.
type ResourceEntry struct {
	Path       string `yaml:"path"`
	IntervalMS int    `yaml:"interval_ms"`
}

func Default() Config {
	return Config{
		BaseURL:    "http://127.0.0.1:18791",
		TimeoutSec: 5,
		Workers:    2,
		Listen:     "127.0.0.1:1337",
		LogLevel:   "info",
		Redis: RedisConfig{
			Addr: "redis:6379",
		},
	}
}

// Load reads path (if it exists) on top of the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getenv("DASHPOLL_BASE_URL", c.BaseURL)
	c.Token = getenv("DASHPOLL_TOKEN", c.Token)
	c.Listen = getenv("DASHPOLL_LISTEN", c.Listen)
	c.LogLevel = getenv("DASHPOLL_LOG_LEVEL", c.LogLevel)
	c.Workers = getenvInt("DASHPOLL_WORKERS", c.Workers)
	c.TimeoutSec = getenvInt("DASHPOLL_TIMEOUT_SEC", c.TimeoutSec)

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
		c.Redis.Enabled = true
	}
	c.Redis.Password = getenv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getenvInt("REDIS_DB", c.Redis.DB)
}

func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid base_url %q", c.BaseURL)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: workers must be > 0")
	}
	if c.TimeoutSec <= 0 {
		return fmt.Errorf("config: timeout_sec must be > 0")
	}
	for name, e := range c.Resources {
		if k, err := resource.ParseKind(name); err != nil || string(k) != name {
			return fmt.Errorf("config: unknown resource %q", name)
		}
		if e.IntervalMS < 0 {
			return fmt.Errorf("config: %s: interval_ms must be >= 0 (0 = default)", name)
		}
	}

	// Two kinds on one path would share a registry entry with two types.
	seen := make(map[string]resource.Kind, len(resource.Endpoints))
	for _, k := range resource.Kinds() {
		p := c.Endpoint(k).Path
		if other, ok := seen[p]; ok {
			return fmt.Errorf("config: %s and %s both resolve to path %q", other, k, p)
		}
		seen[p] = k
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Endpoint resolves the path and interval of kind after overrides.
func (c Config) Endpoint(kind resource.Kind) resource.Endpoint {
	ep, _ := resource.Lookup(kind)
	if e, ok := c.Resources[string(kind)]; ok {
		if e.Path != "" {
			ep.Path = e.Path
		}
		if e.IntervalMS > 0 {
			ep.Interval = time.Duration(e.IntervalMS) * time.Millisecond
		}
	}
	return ep
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return d
}
