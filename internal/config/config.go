package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Journal backends.
const (
	JournalNone   = "none"
	JournalMemory = "memory"
	JournalRedis  = "redis"
)

// Config represents tether.yaml: the settings of the demo host.
type Config struct {
	Name     string         `yaml:"name" json:"name"`
	Title    string         `yaml:"title" json:"title"`
	LogLevel string         `yaml:"log_level" json:"log_level"`
	Initial  map[string]any `yaml:"initial" json:"initial"`
	Journal  JournalConfig  `yaml:"journal" json:"journal"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
}

// JournalConfig selects where dispatches are recorded.
type JournalConfig struct {
	Backend string      `yaml:"backend" json:"backend"`
	Limit   int         `yaml:"limit" json:"limit"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
	// Mask lists key patterns whose argument values are replaced by "***".
	Mask []string `yaml:"mask" json:"mask"`
	// EncryptionKey is a base64 AES-256 key. When set, arguments and errors are sealed at rest.
	EncryptionKey string   `yaml:"encryption_key" json:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys" json:"fallback_keys"`
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (j JournalConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if j.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(j.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("config: journal.encryption_key: %w", err)
	}
	for i, k := range j.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("config: journal.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// RedisConfig holds the Redis journal connection.
type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// HTTPConfig holds the inspection server settings.
type HTTPConfig struct {
	Addr    string `yaml:"addr" json:"addr"`
	Metrics bool   `yaml:"metrics" json:"metrics"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Name:     "demo",
		Title:    "Tether",
		LogLevel: "info",
		Initial: map[string]any{
			"counter": 0,
			"value":   "",
		},
		Journal: JournalConfig{
			Backend: JournalMemory,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		HTTP: HTTPConfig{
			Addr:    ":8080",
			Metrics: true,
		},
	}
}

// Load reads a configuration file (YAML or JSON) on top of Default.
// A missing file is not an error: the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks the values Load cannot check by type alone.
// Unknown log levels are not an error: logging.ParseLevel falls back to info.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config: name must not be empty")
	}
	switch c.Journal.Backend {
	case "", JournalNone, JournalMemory:
	case JournalRedis:
		if c.Journal.Redis.Addr == "" {
			return fmt.Errorf("config: journal.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown journal backend %q", c.Journal.Backend)
	}
	for _, pattern := range c.Journal.Mask {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("config: journal.mask %q: %w", pattern, err)
		}
	}
	_, _, err := c.Journal.Keys()
	return err
}
