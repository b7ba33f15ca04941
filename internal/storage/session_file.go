// ABOUTME: YAML persistence for the signed-in session.
// ABOUTME: Stores the bearer token, user name, and role under the data directory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SessionData is the persisted session.
type SessionData struct {
	Token    string `yaml:"token"`
	UserName string `yaml:"user_name,omitempty"`
	Role     string `yaml:"role,omitempty"`
}

// SessionFile reads and writes session.yaml in a data directory.
type SessionFile struct {
	dataDir string // root directory for adboard data
}

// NewSessionFile creates a session store rooted at dataDir.
func NewSessionFile(dataDir string) *SessionFile {
	return &SessionFile{dataDir: dataDir}
}

// Path returns the session file location.
func (s *SessionFile) Path() string {
	return filepath.Join(s.dataDir, "session.yaml")
}

// Load returns the persisted session, or a zero value if none exists.
func (s *SessionFile) Load() (SessionData, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SessionData{}, nil
		}
		return SessionData{}, fmt.Errorf("failed to read session: %w", err)
	}

	var sd SessionData
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return SessionData{}, fmt.Errorf("failed to parse session: %w", err)
	}
	return sd, nil
}

// Save writes the session atomically with owner-only permissions.
func (s *SessionFile) Save(sd SessionData) error {
	if err := os.MkdirAll(s.dataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	data, err := yaml.Marshal(&sd)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(s.dataDir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.Path())
}

// Remove deletes the session file. A missing file is not an error.
func (s *SessionFile) Remove() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
