package config

import (
	"fmt"
	"path/filepath"
)

// Session store backends.
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendFile   = "file"
	SessionBackendMemory = "memory"
)

// SessionConfig selects where session state is persisted.
type SessionConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Validate checks the backend name and path.
func (s *SessionConfig) Validate() error {
	switch s.Backend {
	case SessionBackendSQLite, SessionBackendFile:
		if s.Path == "" {
			return fmt.Errorf("session path required for %s backend", s.Backend)
		}
	case SessionBackendMemory:
	default:
		return fmt.Errorf("invalid session backend: %s", s.Backend)
	}
	return nil
}

// ResolvePath anchors a relative session path at the workspace.
func (s *SessionConfig) ResolvePath(workspace string) string {
	if s.Path == "" || filepath.IsAbs(s.Path) || workspace == "" {
		return s.Path
	}
	return filepath.Join(workspace, s.Path)
}
