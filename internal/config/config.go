// Package config loads server settings from an optional HCL file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/talgya/empire-exchange/internal/persistence"
)

// Config is the full server configuration.
type Config struct {
	Addr        string   `hcl:"addr,optional"`
	DBPath      string   `hcl:"database,optional"`
	AdminKey    string   `hcl:"admin_key,optional"`
	StaticDir   string   `hcl:"static_dir,optional"`
	LogLevel    string   `hcl:"log_level,optional"`
	CORSOrigins []string `hcl:"cors_origins,optional"`

	Upload  *Upload  `hcl:"upload,block"`
	ModPack *ModPack `hcl:"modpack,block"`
	Sources []Source `hcl:"source,block"`
}

// Upload limits what a single user can push at the server.
type Upload struct {
	MaxBytes int64 `hcl:"max_bytes,optional"`
	PerHour  int   `hcl:"per_hour,optional"`
}

// ModPack names the generated download.
type ModPack struct {
	Name             string   `hcl:"name,optional"`
	ShortName        string   `hcl:"short_name,optional"`
	Version          string   `hcl:"version,optional"`
	SupportedVersion string   `hcl:"supported_version,optional"`
	Tags             []string `hcl:"tags,optional"`
	Dependencies     []string `hcl:"dependencies,optional"`
	Thumbnail        string   `hcl:"thumbnail,optional"`
}

// Source is one browsable listing, backed by a moderation state.
type Source struct {
	Name        string `hcl:"name,label" json:"source"`
	Title       string `hcl:"title" json:"title"`
	Description string `hcl:"description,optional" json:"description,omitempty"`
	Status      string `hcl:"status,optional" json:"-"`
}

// Load reads path (skipped when empty), fills defaults, and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(path, src); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes HCL source. filename only needs the right extension.
func Parse(filename string, src []byte) (*Config, error) {
	var cfg Config
	if err := hclsimple.Decode(filename, src, nil, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", filename, err)
	}
	return &cfg, nil
}

// Default returns the configuration used with no file and no environment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	c.Addr = envOrDefault("EXCHANGE_ADDR", c.Addr)
	c.DBPath = envOrDefault("EXCHANGE_DB", c.DBPath)
	c.AdminKey = envOrDefault("EXCHANGE_ADMIN_KEY", c.AdminKey)
	c.StaticDir = envOrDefault("EXCHANGE_STATIC_DIR", c.StaticDir)
	c.LogLevel = envOrDefault("EXCHANGE_LOG_LEVEL", c.LogLevel)

	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		c.CORSOrigins = nil
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.CORSOrigins = append(c.CORSOrigins, origin)
			}
		}
	}

	if c.Upload == nil {
		c.Upload = &Upload{}
	}
	c.Upload.PerHour = envIntOrDefault("EXCHANGE_UPLOADS_PER_HOUR", c.Upload.PerHour)
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.DBPath == "" {
		c.DBPath = "data/exchange.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Upload == nil {
		c.Upload = &Upload{}
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 8 << 20
	}
	if c.Upload.PerHour <= 0 {
		c.Upload.PerHour = 30
	}

	if c.ModPack == nil {
		c.ModPack = &ModPack{}
	}
	mp := c.ModPack
	if mp.Name == "" {
		mp.Name = "Random Empires Modpack"
	}
	if mp.ShortName == "" {
		mp.ShortName = "random-empires"
	}
	if mp.Version == "" {
		mp.Version = "1.0"
	}
	if mp.SupportedVersion == "" {
		mp.SupportedVersion = "2.7.*"
	}
	if mp.Tags == nil {
		mp.Tags = []string{"Species"}
	}

	if len(c.Sources) == 0 {
		c.Sources = []Source{
			{Name: "approved", Title: "Approved Empires", Description: "Empires checked by a moderator."},
			{Name: "pending", Title: "Pending Empires", Description: "Recent uploads awaiting moderation."},
		}
	}
	for i := range c.Sources {
		if c.Sources[i].Status == "" {
			c.Sources[i].Status = c.Sources[i].Name
		}
	}
}

func (c *Config) validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, s := range c.Sources {
		if seen[s.Name] {
			return fmt.Errorf("duplicate source %q", s.Name)
		}
		seen[s.Name] = true
		if !persistence.Status(s.Status).Valid() {
			return fmt.Errorf("source %q: unknown status %q", s.Name, s.Status)
		}
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Source looks up a listing by name.
func (c *Config) Source(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
