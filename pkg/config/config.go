// Package config loads engrave settings from TOML.
//
// Every key is optional; omitted keys keep the values of [Default]. A file
// looks like:
//
//	[renderer]
//	staff_width = 1000
//	row_spacing = 120
//
//	[layout]
//	policy = "placeholder"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "72h"
//
//	[store]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[server]
//	addr = ":8080"
//	cors_origins = ["http://localhost:5173"]
//
// Command-line flags override file values.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/errors"
)

// FileName is the project-local config file looked up by [Find].
const FileName = "engrave.toml"

// Backend names.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config is the full configuration.
type Config struct {
	Renderer staff.Renderer `toml:"renderer"`
	Layout   Layout         `toml:"layout"`
	Render   Render         `toml:"render"`
	Cache    Cache          `toml:"cache"`
	Store    Store          `toml:"store"`
	Server   Server         `toml:"server"`
}

// Layout configures staff layout.
type Layout struct {
	// Policy is what happens to events that fail to lay out: skip,
	// placeholder or fail.
	Policy string `toml:"policy"`

	// Font is an OpenType or TrueType SMuFL font used for glyph metrics,
	// outlines and the SVG font face. Empty uses built-in Bravura metrics.
	Font string `toml:"font"`
}

// Render configures output artifacts.
type Render struct {
	Formats    []string `toml:"formats"`
	Outlines   bool     `toml:"outlines"`
	Background string   `toml:"background"`
	Scale      float64  `toml:"scale"`
}

// Cache selects the artifact cache.
type Cache struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Prefix        string `toml:"prefix"`
	TTL           string `toml:"ttl"`
}

// Store selects the document store.
type Store struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Server configures the HTTP service.
type Server struct {
	Addr         string   `toml:"addr"`
	CORSOrigins  []string `toml:"cors_origins"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Renderer: staff.DefaultRenderer(),
		Layout:   Layout{Policy: "skip"},
		Render:   Render{Formats: []string{"svg"}, Scale: 2},
		Cache:    Cache{Backend: BackendFile, Prefix: "engrave:"},
		Store:    Store{Backend: BackendFile},
		Server: Server{
			Addr:         ":8080",
			CORSOrigins:  []string{"*"},
			MaxBodyBytes: 1 << 20,
		},
	}
}

// Load reads path on top of [Default]. Unknown keys are an error so that
// typos do not go unnoticed.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config %s", path)
	}
	if err := cfg.Decode(string(data)); err != nil {
		return cfg, errors.Wrap(errors.GetCode(err), err, "config %s", path)
	}
	return cfg, nil
}

// Decode merges TOML text into c and validates the result.
func (c *Config) Decode(text string) error {
	md, err := toml.Decode(text, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidFormat, "unknown keys: %s", strings.Join(keys, ", "))
	}
	c.Renderer = c.Renderer.WithDefaults()
	return c.Validate()
}

// Validate checks enumerations and the renderer.
func (c Config) Validate() error {
	if err := c.Renderer.Validate(); err != nil {
		return err
	}
	if !slices.Contains([]string{"skip", "placeholder", "fail"}, c.Layout.Policy) {
		return errors.New(errors.ErrCodeInvalidPolicy, "layout policy %q must be skip, placeholder or fail", c.Layout.Policy)
	}
	if !slices.Contains([]string{BackendNone, BackendFile, BackendRedis}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "cache backend %q must be none, file or redis", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache backend redis needs redis_addr")
	}
	if _, err := c.Cache.Lifetime(); err != nil {
		return err
	}
	if !slices.Contains([]string{BackendMemory, BackendFile, BackendMongo}, c.Store.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "store backend %q must be memory, file or mongo", c.Store.Backend)
	}
	if c.Store.Backend == BackendMongo && c.Store.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "store backend mongo needs mongo_uri")
	}
	if c.Render.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "render scale must not be negative")
	}
	return nil
}

// Lifetime parses TTL. Empty means the per-stage defaults, reported as 0.
func (c Cache) Lifetime() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid cache ttl %q", c.TTL)
	}
	return d, nil
}

// Find returns the first config file that exists: ./engrave.toml, then
// $XDG_CONFIG_HOME/engrave/config.toml (or ~/.config/engrave/config.toml).
// It returns "" when there is none.
func Find() string {
	candidates := []string{FileName}
	if dir, err := Dir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "config.toml"))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Dir returns the engrave config directory.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "engrave"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "engrave"), nil
}
