package credstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPermissions  = 0o700
	filePermissions = 0o600
)

// fileStore persists blobs as files under a directory. Used when the OS
// keyring is unavailable.
type fileStore struct {
	dir string
}

// NewFileStore returns a Store writing 0600 files under dir, creating
// the directory on first use.
func NewFileStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating credential directory: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

// DefaultFileDir returns the fallback credential directory under the
// user cache dir.
func DefaultFileDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(base, "msauthd"), nil
}

func (s *fileStore) path(key string) string {
	// Keys are caller-controlled identifiers, not user input, but
	// sanitize separators anyway.
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(s.dir, safe+".bin")
}

func (s *fileStore) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading credential file: %w", err)
	}
	return data, nil
}

func (s *fileStore) Save(key string, data []byte) error {
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing credential file: %w", err)
	}
	return nil
}

func (s *fileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credential file: %w", err)
	}
	return nil
}
