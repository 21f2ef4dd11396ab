// Package config loads pipewright's TOML configuration.
//
// A missing file is not an error: [Default] mirrors the original deployment
// (validation service on localhost:8000, the editor on localhost:3000).
// Environment variables override the file:
//
//	FRONTEND_ORIGIN          appended to server.origins
//	PIPEWRIGHT_SERVICE_URL   replaces service.url
//	PIPEWRIGHT_REDIS_URL     replaces server.redis_url
//
// Example file:
//
//	[service]
//	url = "http://localhost:8000/pipelines/parse"
//	timeout = "10s"
//
//	[server]
//	addr = ":8000"
//	redis_url = "redis://localhost:6379/0"
//	cache_ttl = "1h"
//
//	[canvas]
//	snap_grid = 20
//
//	[catalogue]
//	files = ["nodes/summarize.hcl"]
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pipewright/pkg/errors"
)

// Environment variables read by ApplyEnv.
const (
	EnvFrontendOrigin = "FRONTEND_ORIGIN"
	EnvServiceURL     = "PIPEWRIGHT_SERVICE_URL"
	EnvRedisURL       = "PIPEWRIGHT_REDIS_URL"
)

// DefaultOrigins are the editor origins allowed by the validation service.
var DefaultOrigins = []string{
	"https://reactflow-pipeline-editor.vercel.app/",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Config is the full configuration.
type Config struct {
	Service   ServiceConfig   `toml:"service"`
	Server    ServerConfig    `toml:"server"`
	Canvas    CanvasConfig    `toml:"canvas"`
	Catalogue CatalogueConfig `toml:"catalogue"`
}

// ServiceConfig points the submission client at the validation service.
type ServiceConfig struct {
	URL     string   `toml:"url" validate:"required,url"`
	Timeout Duration `toml:"timeout" validate:"gte=0"`
}

// ServerConfig configures the validation service.
type ServerConfig struct {
	Addr     string   `toml:"addr" validate:"required"`
	Origins  []string `toml:"origins" validate:"dive,url"`
	RedisURL string   `toml:"redis_url" validate:"omitempty,url"`
	CacheDir string   `toml:"cache_dir"`
	CacheTTL Duration `toml:"cache_ttl" validate:"gte=0"`
}

// CanvasConfig configures node placement.
type CanvasConfig struct {
	SnapGrid float64 `toml:"snap_grid" validate:"gte=0"`
}

// CatalogueConfig lists extra HCL node-type files.
type CatalogueConfig struct {
	Files []string `toml:"files" validate:"dive,required"`
}

// Duration is a time.Duration written as a Go duration string ("1h30m").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			URL:     "http://localhost:8000/pipelines/parse",
			Timeout: Duration(30 * time.Second),
		},
		Server: ServerConfig{
			Addr:     ":8000",
			Origins:  slices.Clone(DefaultOrigins),
			CacheTTL: Duration(time.Hour),
		},
	}
}

// Load reads path over the defaults, applies the process environment and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
		}
		if cfg, err = Parse(data, cfg); err != nil {
			return Config{}, err
		}
		cfg.resolvePaths(filepath.Dir(path))
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML data over base. Unknown keys are rejected.
func Parse(data []byte, base Config) (Config, error) {
	md, err := toml.Decode(string(data), &base)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return base, nil
}

// ApplyEnv applies environment overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if origin := strings.TrimSpace(getenv(EnvFrontendOrigin)); origin != "" && !slices.Contains(c.Server.Origins, origin) {
		c.Server.Origins = append(c.Server.Origins, origin)
	}
	if v := strings.TrimSpace(getenv(EnvServiceURL)); v != "" {
		c.Service.URL = v
	}
	if v := strings.TrimSpace(getenv(EnvRedisURL)); v != "" {
		c.Server.RedisURL = v
	}
}

// resolvePaths makes relative file references relative to dir.
func (c *Config) resolvePaths(dir string) {
	for i, f := range c.Catalogue.Files {
		if f != "" && !filepath.IsAbs(f) {
			c.Catalogue.Files[i] = filepath.Join(dir, f)
		}
	}
	if c.Server.CacheDir != "" && !filepath.IsAbs(c.Server.CacheDir) {
		c.Server.CacheDir = filepath.Join(dir, c.Server.CacheDir)
	}
}
