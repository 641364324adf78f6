package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const fileName = "studio.yml"

// Config models studio.yml.
type Config struct {
	Studio struct {
		Name    string `yaml:"name"`
		OwnerID string `yaml:"owner_id"`
	} `yaml:"studio"`
	Locale struct {
		Language    string `yaml:"language"`
		Region      string `yaml:"region"`
		CountryCode string `yaml:"country_code"`
		Timezone    string `yaml:"timezone"`
		Currency    string `yaml:"currency"`
	} `yaml:"locale"`
	Sync struct {
		Interval    time.Duration `yaml:"interval"`
		BatchSize   int           `yaml:"batch_size"`
		MaxAttempts int           `yaml:"max_attempts"`
		BaseBackoff time.Duration `yaml:"base_backoff"`
		MaxBackoff  time.Duration `yaml:"max_backoff"`
		PushTimeout time.Duration `yaml:"push_timeout"`
	} `yaml:"sync"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with akms config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Studio.Name) == "" {
		return fmt.Errorf("config.studio.name is required")
	}
	if _, err := language.Parse(c.Locale.Language); err != nil {
		return fmt.Errorf("config.locale.language %q: %w", c.Locale.Language, err)
	}
	if len(c.Locale.Region) != 2 {
		return fmt.Errorf("config.locale.region must be a two letter region code")
	}
	if c.Locale.CountryCode == "" || strings.Trim(c.Locale.CountryCode, "0123456789") != "" {
		return fmt.Errorf("config.locale.country_code must be digits")
	}
	if _, err := time.LoadLocation(c.Locale.Timezone); err != nil {
		return fmt.Errorf("config.locale.timezone %q: %w", c.Locale.Timezone, err)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("config.sync.interval must be positive")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("config.sync.batch_size must be positive")
	}
	if c.Sync.MaxAttempts <= 0 {
		return fmt.Errorf("config.sync.max_attempts must be positive")
	}
	if c.Sync.BaseBackoff <= 0 || c.Sync.MaxBackoff < c.Sync.BaseBackoff {
		return fmt.Errorf("config.sync backoff must satisfy 0 < base_backoff <= max_backoff")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Location resolves the configured time zone, falling back to the process zone.
func (c *Config) Location() *time.Location {
	if c == nil || c.Locale.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Locale.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Language returns the configured language tag.
func (c *Config) Language() language.Tag {
	if c == nil {
		return language.MustParse("en-IN")
	}
	tag, err := language.Parse(c.Locale.Language)
	if err != nil {
		return language.MustParse("en-IN")
	}
	return tag
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, fileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault(studioName string) string {
	if studioName == "" {
		studioName = defaultStudio
	}
	return fmt.Sprintf(defaultTemplate, studioName)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(""), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default(studioName string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(studioName))).Decode(&cfg)
	return &cfg
}

// FromYAML parses config from raw YAML bytes on top of the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultStudio = "Aura Knot Photography"

const defaultTemplate = `studio:
  name: %s
  owner_id: ""

locale:
  language: en-IN
  region: IN
  country_code: "91"
  timezone: Asia/Kolkata
  currency: Rs.

sync:
  interval: 30s
  batch_size: 50
  max_attempts: 8
  base_backoff: 5s
  max_backoff: 30m
  push_timeout: 10s

server:
  addr: 127.0.0.1:8080
  base_path: /v1
`
