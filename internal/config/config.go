// Package config provides configuration loading and structs for the SciFind server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Model   ModelConfig   `yaml:"model"`
	Search  SearchConfig  `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the paper database and the search index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// ModelConfig holds ranking model endpoint and timeout settings.
type ModelConfig struct {
	Endpoint             string `yaml:"endpoint"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	HealthTimeoutSeconds int    `yaml:"health_timeout_seconds"`
}

// Timeout returns the search query timeout as a duration.
func (m *ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// HealthTimeout returns the health probe timeout as a duration.
func (m *ModelConfig) HealthTimeout() time.Duration {
	return time.Duration(m.HealthTimeoutSeconds) * time.Second
}

// SearchConfig holds search, fusion, and validation settings.
type SearchConfig struct {
	DefaultLimit         int `yaml:"default_limit"`
	MaxLimit             int `yaml:"max_limit"`
	MaxSearchTermLength  int `yaml:"max_search_term_length"`
	CandidatePool        int `yaml:"candidate_pool"`
	MaxConcurrentLookups int `yaml:"max_concurrent_lookups"`
	// FusionPolicy selects how model and store results are combined when both
	// are available: "model" (model order wins) or "blended" (weighted sum of
	// store and model scores over their intersection).
	FusionPolicy string `yaml:"fusion_policy"`
}

// Fusion policy names accepted in SearchConfig.FusionPolicy.
const (
	FusionModel   = "model"
	FusionBlended = "blended"
)

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
