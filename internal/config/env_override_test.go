package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_BaseURL(t *testing.T) {
	t.Run("NEXT_PUBLIC_API_URL is honored", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NEXT_PUBLIC_API_URL", "https://front.example.test/api/v1")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "https://front.example.test/api/v1", cfg.API.BaseURL)
	})

	t.Run("YEONEUNAL_API_URL wins over NEXT_PUBLIC_API_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NEXT_PUBLIC_API_URL", "https://front.example.test/api/v1")
		t.Setenv("YEONEUNAL_API_URL", "https://cli.example.test/api/v1")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "https://cli.example.test/api/v1", cfg.API.BaseURL)
	})

	t.Run("empty values leave config alone", func(t *testing.T) {
		clearEnv(t)

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	})
}

func TestEnvOverrides_Polling(t *testing.T) {
	t.Run("numeric attempts override", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("YEONEUNAL_POLL_MAX_ATTEMPTS", "60")
		t.Setenv("YEONEUNAL_POLL_INTERVAL", "500ms")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 60, cfg.Polling.MaxAttempts)
		assert.Equal(t, "500ms", cfg.Polling.Interval)
	})

	t.Run("non-numeric attempts ignored", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("YEONEUNAL_POLL_MAX_ATTEMPTS", "many")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 600, cfg.Polling.MaxAttempts)
	})
}

func TestEnvOverrides_SessionAndDebug(t *testing.T) {
	clearEnv(t)
	t.Setenv("YEONEUNAL_SESSION_PATH", "/tmp/session.json")
	t.Setenv("YEONEUNAL_SESSION_BACKEND", "FILE")
	t.Setenv("YEONEUNAL_DEBUG", "true")
	t.Setenv("YEONEUNAL_GUARDIAN_ID", "42")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/session.json", cfg.Session.Path)
	assert.Equal(t, SessionBackendFile, cfg.Session.Backend)
	assert.True(t, cfg.Logging.DebugMode)
	assert.Equal(t, int64(42), cfg.API.GuardianID)
}

func TestLoadAppliesEnvWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("YEONEUNAL_API_URL", "https://env.example.test")

	cfg, err := Load(t.TempDir() + "/missing.yaml")
	assert.NoError(t, err)
	assert.Equal(t, "https://env.example.test", cfg.API.BaseURL)
}
