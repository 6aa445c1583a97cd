package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration. YAML supplies the base; environment
// variables override field by field.
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"EASY_EDGEDB_PORT"`
	} `yaml:"server"`
	Content struct {
		Dir   string `yaml:"dir" env:"EASY_EDGEDB_CONTENT_DIR"`
		Watch bool   `yaml:"watch" env:"EASY_EDGEDB_WATCH"`
	} `yaml:"content"`
	Cache struct {
		TTL string `yaml:"ttl" env:"EASY_EDGEDB_CACHE_TTL"`
	} `yaml:"cache"`
	Redis struct {
		Addr     string `yaml:"addr" env:"EASY_EDGEDB_REDIS_ADDR"`
		Password string `yaml:"password" env:"EASY_EDGEDB_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"EASY_EDGEDB_REDIS_DB"`
		TTL      string `yaml:"ttl" env:"EASY_EDGEDB_REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"EASY_EDGEDB_POSTGRES_URL"`
	} `yaml:"postgres"`
	Search struct {
		Path string `yaml:"path" env:"EASY_EDGEDB_SEARCH_PATH"`
	} `yaml:"search"`
	Log struct {
		Mode string `yaml:"mode" env:"EASY_EDGEDB_LOG_MODE"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies environment overrides.
// A missing file is not an error; the tool runs fine on defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, err
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Content.Dir == "" {
		cfg.Content.Dir = "content"
	}
	if cfg.Search.Path == "" {
		cfg.Search.Path = ":memory:"
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
