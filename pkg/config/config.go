// Package config loads client and mock backend settings from the
// environment, an optional YAML file and command line flags.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

const (
	DefaultAPIURL     = "http://localhost:8000"
	DefaultUploadPath = "/documents/upload"
	DefaultLogLevel   = "info"
)

// Config holds the client settings. Later sources override earlier ones:
// environment, then the YAML file, then flags.
type Config struct {
	APIURL     string `yaml:"api_url" json:"api_url"`
	UploadPath string `yaml:"upload_path" json:"upload_path"`
	LogLevel   string `yaml:"log_level" json:"log_level"`
	LogFile    string `yaml:"log_file" json:"log_file"`
}

func Load() *Config {
	return &Config{
		APIURL:     getEnv("AGENTSMITH_API_URL", DefaultAPIURL),
		UploadPath: getEnv("AGENTSMITH_UPLOAD_PATH", DefaultUploadPath),
		LogLevel:   getEnv("AGENTSMITH_LOG_LEVEL", DefaultLogLevel),
		LogFile:    getEnv("AGENTSMITH_LOG_FILE", ""),
	}
}

// LoadFromFile reads a YAML config file. Missing keys are left empty.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Merge copies every non-empty field of other into c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.APIURL != "" {
		c.APIURL = other.APIURL
	}
	if other.UploadPath != "" {
		c.UploadPath = other.UploadPath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
