// Package credentials abstracts the secure credential store collaborator.
// On a phone this is the keychain; here the default implementation is a
// permission-restricted JSON file next to the engine's database.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/oglimmer/picz2/internal/common"
)

// Credentials are the Basic-auth credentials attached to every API request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store loads and persists credentials.
type Store interface {
	// Load returns the stored credentials, or common.ErrNoCredentials if
	// none are stored.
	Load(ctx context.Context) (*Credentials, error)

	// Save persists the credentials.
	Save(ctx context.Context, creds *Credentials) error

	// Clear removes any stored credentials. Clearing an empty store is not
	// an error.
	Clear(ctx context.Context) error
}

// FileStore keeps credentials in a 0600 JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.ErrNoCredentials
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if creds.Username == "" {
		return nil, common.ErrNoCredentials
	}
	return &creds, nil
}

func (s *FileStore) Save(_ context.Context, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}
