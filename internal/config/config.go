package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvAppID selects the artifact namespace documents are stored under.
	EnvAppID = "CERTIFLASH_APP_ID"
	// EnvBackendConfig carries a JSON backend blob supplied by the embedding host.
	EnvBackendConfig = "CERTIFLASH_BACKEND_CONFIG"
	// EnvAuthToken carries an initial custom auth token.
	EnvAuthToken = "CERTIFLASH_AUTH_TOKEN"

	DefaultAppID = "certiflash-demo"
)

type Config struct {
	Env   string `yaml:"env"`
	AppID string `yaml:"appId"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
	Catalog  struct {
		TTL  string `yaml:"ttl"`
		Path string `yaml:"path"`
	} `yaml:"catalog"`
	Auth struct {
		Secret       string `yaml:"secret"`
		// InitialToken comes from the environment only. The server checks it
		// at startup and the stats command uses its subject as the default user.
		InitialToken string `yaml:"-"`
	} `yaml:"auth"`
	Writer struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"writer"`
}

type Redis struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

type Postgres struct {
	URL string `yaml:"url" json:"url"`
}

// backendBlob is the shape of CERTIFLASH_BACKEND_CONFIG.
type backendBlob struct {
	Redis      *Redis    `json:"redis"`
	Postgres   *Postgres `json:"postgres"`
	AuthSecret string    `json:"authSecret"`
}

// Load reads YAML config from path. A missing file yields defaults so the
// service can run purely from embedding-provided values.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEmbedding(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEmbedding overlays the three embedding-provided values onto cfg.
func (c *Config) ApplyEmbedding(getenv func(string) string) error {
	if v := getenv(EnvAppID); v != "" {
		c.AppID = v
	}
	if c.AppID == "" {
		c.AppID = DefaultAppID
	}
	if v := getenv(EnvAuthToken); v != "" {
		c.Auth.InitialToken = v
	}
	raw := getenv(EnvBackendConfig)
	if raw == "" {
		return nil
	}
	var blob backendBlob
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		return fmt.Errorf("parse %s: %w", EnvBackendConfig, err)
	}
	if blob.Redis != nil {
		c.Redis = *blob.Redis
	}
	if blob.Postgres != nil {
		c.Postgres = *blob.Postgres
	}
	if blob.AuthSecret != "" {
		c.Auth.Secret = blob.AuthSecret
	}
	return nil
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
