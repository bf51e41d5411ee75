package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the backend the original deployment targets.
const DefaultBaseURL = "http://localhost:8080/api/v1"

// Config holds all yeoneunal configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Remote service
	API APIConfig `yaml:"api"`

	// Record status polling
	Polling PollingConfig `yaml:"polling"`

	// Persistent session store
	Session SessionConfig `yaml:"session"`

	// Self-diagnosis survey
	Diagnosis DiagnosisConfig `yaml:"diagnosis"`

	// Report presentation
	Report ReportConfig `yaml:"report"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	BaseURL      string `yaml:"base_url"`
	Timeout      string `yaml:"timeout"`
	GuardianID   int64  `yaml:"guardian_id"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// DiagnosisConfig configures the survey and the diagnosis payload schema.
type DiagnosisConfig struct {
	Schema        string `yaml:"schema"`         // v1 (object keyed by question), v2 (array of pairs)
	QuestionCount int    `yaml:"question_count"` // 5-20
}

// ReportConfig configures report presentation.
type ReportConfig struct {
	Language    string `yaml:"language"` // ko, en
	RecentLimit int    `yaml:"recent_limit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "yeoneunal",
		Version: "0.3.0",

		API: APIConfig{
			BaseURL:      DefaultBaseURL,
			Timeout:      "30s",
			GuardianID:   1,
			MaxBodyBytes: 4 << 20,
		},

		Polling: PollingConfig{
			Interval:    "2s",
			MaxAttempts: 600,
		},

		Session: SessionConfig{
			Backend: SessionBackendSQLite,
			Path:    filepath.Join(".yeoneunal", "session.db"),
		},

		Diagnosis: DiagnosisConfig{
			Schema:        "v2",
			QuestionCount: 20,
		},

		Report: ReportConfig{
			Language:    "ko",
			RecentLimit: 10,
		},

		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},
	}
}

// DefaultConfigPath returns <workspace>/.yeoneunal/config.yaml.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(workspace, ".yeoneunal", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Base URL: our own variable wins over the front-end one
	if url := os.Getenv("NEXT_PUBLIC_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if url := os.Getenv("YEONEUNAL_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if id := os.Getenv("YEONEUNAL_GUARDIAN_ID"); id != "" {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			c.API.GuardianID = n
		}
	}

	if path := os.Getenv("YEONEUNAL_SESSION_PATH"); path != "" {
		c.Session.Path = path
	}
	if backend := os.Getenv("YEONEUNAL_SESSION_BACKEND"); backend != "" {
		c.Session.Backend = strings.ToLower(backend)
	}

	if interval := os.Getenv("YEONEUNAL_POLL_INTERVAL"); interval != "" {
		c.Polling.Interval = interval
	}
	if attempts := os.Getenv("YEONEUNAL_POLL_MAX_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			c.Polling.MaxAttempts = n
		}
	}

	if debug := os.Getenv("YEONEUNAL_DEBUG"); debug != "" {
		if on, err := strconv.ParseBool(debug); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

// GetAPITimeout returns the per-request timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ValidSchemas lists the supported diagnosis payload schemas.
var ValidSchemas = []string{"v1", "v2"}

// ValidLanguages lists the supported report languages.
var ValidLanguages = []string{"ko", "en"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api base URL not configured (set api.base_url or YEONEUNAL_API_URL)")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("invalid api base URL: %s", c.API.BaseURL)
	}

	if err := c.ValidatePolling(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}

	if !contains(ValidSchemas, c.Diagnosis.Schema) {
		return fmt.Errorf("invalid diagnosis schema: %s (valid: %v)", c.Diagnosis.Schema, ValidSchemas)
	}
	if c.Diagnosis.QuestionCount < 5 || c.Diagnosis.QuestionCount > 20 {
		return fmt.Errorf("diagnosis question_count must be between 5 and 20, got %d", c.Diagnosis.QuestionCount)
	}

	if !contains(ValidLanguages, c.Report.Language) {
		return fmt.Errorf("invalid report language: %s (valid: %v)", c.Report.Language, ValidLanguages)
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
