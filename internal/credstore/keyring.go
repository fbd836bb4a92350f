package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ServiceName identifies this application's entries in the OS keyring.
const ServiceName = "msauthd"

// keyringStore persists blobs in the OS keyring (Secret Service on
// Linux, Keychain on macOS, Credential Manager on Windows).
type keyringStore struct {
	service string
}

// NewKeyringStore returns a Store backed by the OS keyring.
func NewKeyringStore() Store {
	return &keyringStore{service: ServiceName}
}

func (s *keyringStore) Load(key string) ([]byte, error) {
	secret, err := keyring.Get(s.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("keyring get: %w", err)
	}
	return []byte(secret), nil
}

func (s *keyringStore) Save(key string, data []byte) error {
	if err := keyring.Set(s.service, key, string(data)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (s *keyringStore) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}

// probe verifies the keyring is usable by writing and removing a canary
// entry. Headless hosts often have no Secret Service running.
func (s *keyringStore) probe() error {
	const canary = "availability-probe"
	if err := keyring.Set(s.service, canary, "ok"); err != nil {
		return err
	}
	return keyring.Delete(s.service, canary)
}
