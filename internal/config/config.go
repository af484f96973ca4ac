// Package config provides configuration management for Wisal.
// It loads settings from environment variables with the WISAL_ prefix and
// provides sensible defaults for all configuration options. An optional YAML
// configuration file can supply base values; environment variables always
// take precedence over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Wisal application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Memory   MemoryConfig   `yaml:"memory"`
	Suggest  SuggestConfig  `yaml:"suggest"`
	LLM      LLMConfig      `yaml:"llm"`
	Security SecurityConfig `yaml:"security"`
	Limits   LimitsConfig   `yaml:"limits"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // Server port (default: 7373)
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)
}

// MemoryConfig contains conversation store capacity limits.
type MemoryConfig struct {
	MaxThreads        int `yaml:"max_threads"`          // Maximum resident conversation threads (default: 500)
	MaxTurnsPerThread int `yaml:"max_turns_per_thread"` // Maximum retained turns per thread (default: 50)
}

// SuggestConfig contains suggestion engine configuration.
type SuggestConfig struct {
	RulesPath string `yaml:"rules_path"` // Optional YAML rule table overriding the built-in rules
}

// LLMConfig contains reply-generation model configuration.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url"` // OpenAI-compatible chat endpoint (default: http://localhost:11434)
	Model   string        `yaml:"model"`    // Model name (default: qwen2.5:7b)
	Timeout time.Duration `yaml:"-"`        // Request timeout, env-only via WISAL_LLM_TIMEOUT (default: 10s)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string `yaml:"security_mode"` // Security mode: development, production (default: development)
	APIToken     string `yaml:"api_token"`     // API authentication token
}

// LimitsConfig contains request rate limiting settings.
type LimitsConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // Sustained request rate (default: 10)
	Burst             int     `yaml:"burst"`               // Maximum burst size (default: 20)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the WISAL_ prefix.
func LoadConfig() (*Config, error) {
	return buildBaseConfig(), nil
}

// LoadConfigFile loads configuration from a YAML file, then applies
// environment variable overrides on top. Unset file fields fall back to the
// same defaults LoadConfig uses.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaults returns a Config populated with the built-in defaults only.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7373,
			Host: "127.0.0.1",
		},
		Memory: MemoryConfig{
			MaxThreads:        500,
			MaxTurnsPerThread: 50,
		},
		LLM: LLMConfig{
			BaseURL: "http://localhost:11434",
			Model:   "qwen2.5:7b",
			Timeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			SecurityMode: "development",
		},
		Limits: LimitsConfig{
			RequestsPerSecond: 10.0,
			Burst:             20,
		},
	}
}

// buildBaseConfig constructs a Config with values from environment variables
// layered over the defaults.
func buildBaseConfig() *Config {
	cfg := defaults()
	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides replaces config values with WISAL_-prefixed environment
// variables where set.
func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getEnvInt("WISAL_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("WISAL_HOST", cfg.Server.Host)

	cfg.Memory.MaxThreads = getEnvInt("WISAL_MAX_THREADS", cfg.Memory.MaxThreads)
	cfg.Memory.MaxTurnsPerThread = getEnvInt("WISAL_MAX_TURNS_PER_THREAD", cfg.Memory.MaxTurnsPerThread)

	cfg.Suggest.RulesPath = getEnv("WISAL_RULES_PATH", cfg.Suggest.RulesPath)

	cfg.LLM.BaseURL = getEnv("WISAL_LLM_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = getEnv("WISAL_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.Timeout = getEnvDuration("WISAL_LLM_TIMEOUT", cfg.LLM.Timeout)

	cfg.Security.SecurityMode = getEnv("WISAL_SECURITY_MODE", cfg.Security.SecurityMode)
	cfg.Security.APIToken = getEnv("WISAL_API_TOKEN", cfg.Security.APIToken)

	cfg.Limits.RequestsPerSecond = getEnvFloat("WISAL_RATE_LIMIT", cfg.Limits.RequestsPerSecond)
	cfg.Limits.Burst = getEnvInt("WISAL_RATE_BURST", cfg.Limits.Burst)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the environment variable exists but cannot be parsed as an
// integer, it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (e.g. "5s",
// "500ms") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
