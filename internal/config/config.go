package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Catalog CatalogConfig `yaml:"catalog"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	SessionSecret  string        `yaml:"session_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	PasswordMinLen int           `yaml:"password_min_len"`
	SecureCookies  bool          `yaml:"secure_cookies"`
	Google         GoogleConfig  `yaml:"google"`
}

type GoogleConfig struct {
	ClientID string `yaml:"client_id"`
}

type CatalogConfig struct {
	AniListURL string        `yaml:"anilist_url"`
	JikanURL   string        `yaml:"jikan_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ANISERVE_SESSION_SECRET"); v != "" {
		c.Auth.SessionSecret = v
	}
	if v := os.Getenv("ANISERVE_GOOGLE_CLIENT_ID"); v != "" {
		c.Auth.Google.ClientID = v
	}
	if v := os.Getenv("ANISERVE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

func (c *Config) validate() error {
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("auth.session_secret is required")
	}
	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("auth.session_secret must be at least 32 characters")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8787
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Store.Path == "" {
		c.Store.Path = "./data/aniserve.json"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if c.Auth.PasswordMinLen == 0 {
		c.Auth.PasswordMinLen = 6
	}
	if c.Catalog.AniListURL == "" {
		c.Catalog.AniListURL = "https://graphql.anilist.co"
	}
	if c.Catalog.JikanURL == "" {
		c.Catalog.JikanURL = "https://api.jikan.moe/v4"
	}
	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = 10 * time.Second
	}
}

// GoogleAuthEnabled reports whether federated login is configured.
func (c *Config) GoogleAuthEnabled() bool {
	return c.Auth.Google.ClientID != ""
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
