package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"QUIZ_SERVER_PORT"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" env:"QUIZ_LOG_LEVEL"`
		Format string `yaml:"format" env:"QUIZ_LOG_FORMAT"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr" env:"QUIZ_REDIS_ADDR"`
		Password string `yaml:"password" env:"QUIZ_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"QUIZ_REDIS_DB"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"QUIZ_POSTGRES_URL"`
	} `yaml:"postgres"`
	Cache struct {
		TTL string `yaml:"ttl" env:"QUIZ_CACHE_TTL"`
	} `yaml:"cache"`
	Store struct {
		Timeout string `yaml:"timeout" env:"QUIZ_STORE_TIMEOUT"`
	} `yaml:"store"`
	Enhance struct {
		Parallelism int `yaml:"parallelism" env:"QUIZ_ENHANCE_PARALLELISM"`
	} `yaml:"enhance"`
	Report struct {
		Timezone string `yaml:"timezone" env:"QUIZ_REPORT_TIMEZONE"`
	} `yaml:"report"`
	Auth struct {
		SuperTokens []string `yaml:"superTokens" env:"QUIZ_AUTH_SUPER_TOKENS" envSeparator:","`
	} `yaml:"auth"`
}

// Load reads YAML config from path, then applies QUIZ_* environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
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

// Location resolves the report timezone, defaulting to UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Report.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("report timezone: %w", err)
	}
	return loc, nil
}
