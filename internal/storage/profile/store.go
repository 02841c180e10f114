// Package profile persists the local user profile and session flags.
package profile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/chiptrader/internal/domain"
)

const defaultStateDir = "./state"

// Store persists the profile as a JSON file so restarts keep the session.
type Store struct {
	path string
}

func getStateDir() string {
	if stateDir := os.Getenv("CHIPTRADER_STATE_DIR"); stateDir != "" {
		return stateDir
	}
	return defaultStateDir
}

// NewStore creates a profile store under the state directory.
func NewStore() (*Store, error) {
	stateDir := getStateDir()
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create profile state dir")
	}

	return &Store{path: filepath.Join(stateDir, "profile.json")}, nil
}

// NewStoreAt creates a profile store at an explicit path, used by tests.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Load reads the profile from disk. A missing file is not an error: it means
// the setup wizard has not run yet.
func (s *Store) Load() (*domain.Profile, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read profile")
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var p domain.Profile
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	return &p, nil
}

// Save writes the profile to disk atomically via temp file.
func (s *Store) Save(p domain.Profile) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode profile")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return errors.Wrap(err, "write profile temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist profile")
	}
	return nil
}
