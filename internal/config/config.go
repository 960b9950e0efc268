package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.chatsync/config.toml.
type Config struct {
	DefaultInstance string `toml:"default_instance"`

	Client ClientConfig `toml:"client"`
	Server ServerConfig `toml:"server"`
	Auth   AuthConfig   `toml:"auth"`
	Blob   BlobConfig   `toml:"blob"`
	Log    LogConfig    `toml:"log"`
}

// ClientConfig controls how chatctl and chattui reach chatd.
type ClientConfig struct {
	// Target overrides the instance socket: a unix socket path or host:port.
	Target string `toml:"target"`
}

// ServerConfig controls chatd's listeners.
type ServerConfig struct {
	// Listen is an optional TCP address served next to the unix socket.
	Listen string `toml:"listen"`
	// HTTPAddr serves /blobs, /metrics and /healthz. Empty disables HTTP.
	HTTPAddr string `toml:"http_addr"`
}

type AuthConfig struct {
	// Secret signs session tokens. Empty means a per-instance key file.
	Secret   string `toml:"secret"`
	TokenTTL string `toml:"token_ttl"`
}

type BlobConfig struct {
	Backend   string       `toml:"backend"`
	PublicURL string       `toml:"public_url"`
	S3        BlobS3Config `toml:"s3"`
}

type BlobS3Config struct {
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Blob backends.
const (
	BlobFS = "fs"
	BlobS3 = "s3"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPAddr: "127.0.0.1:7780"},
		Auth:   AuthConfig{TokenTTL: "720h"},
		Blob:   BlobConfig{Backend: BlobFS},
		Log:    LogConfig{Level: "info"},
	}
}

// TokenTTLDuration parses Auth.TokenTTL. Zero means the auth default.
func (c *Config) TokenTTLDuration() (time.Duration, error) {
	if c.Auth.TokenTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("auth.token_ttl: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("auth.token_ttl must be positive, got %s", d)
	}
	return d, nil
}

// BlobURL returns the public prefix for stored blobs.
func (c *Config) BlobURL() string {
	if c.Blob.PublicURL != "" {
		return c.Blob.PublicURL
	}
	if c.Server.HTTPAddr == "" {
		return ""
	}
	return "http://" + c.Server.HTTPAddr + "/blobs"
}

// Validate checks values that cannot be caught by decoding alone.
func (c *Config) Validate() error {
	if _, err := c.TokenTTLDuration(); err != nil {
		return err
	}
	switch c.Blob.Backend {
	case "", BlobFS:
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			return errors.New("blob.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("blob.backend %q: want %q or %q", c.Blob.Backend, BlobFS, BlobS3)
	}
	return nil
}

// Load reads config from the given path on top of Default. Returns an
// error if the file is missing or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
