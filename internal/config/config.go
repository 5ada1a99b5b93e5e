// internal/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	// ControlDir is the hidden directory holding all repository state.
	ControlDir           = ".myvcs"
	DefaultBranch        = "master"
	DefaultCacheSize     = 256
	defaultConfigEnvName = "MYVCS_CONFIG"
)

type Config struct {
	Server struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`

	Repository struct {
		Path          string `json:"path"`
		DefaultBranch string `json:"default_branch"`
		CacheSize     int    `json:"cache_size"` // objects kept in the read cache
	} `json:"repository"`

	Environment string `json:"environment"` // dev, prod
	LogLevel    string `json:"log_level"`   // debug, info, warn, error
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 7420
	cfg.Repository.Path = "."
	cfg.Repository.DefaultBranch = DefaultBranch
	cfg.Repository.CacheSize = DefaultCacheSize
	cfg.Environment = "development"
	cfg.LogLevel = "info"
	return &cfg
}

// Path returns the daemon config path, honouring MYVCS_CONFIG.
func Path() string {
	if p := os.Getenv(defaultConfigEnvName); p != "" {
		return p
	}
	return "config.json"
}

// Load decodes the JSON file at path over the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	config.normalize()

	return config, nil
}

// LoadFile is Load, except that a missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func (c *Config) normalize() {
	if c.Repository.DefaultBranch == "" {
		c.Repository.DefaultBranch = DefaultBranch
	}
	if c.Repository.CacheSize <= 0 {
		c.Repository.CacheSize = DefaultCacheSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
