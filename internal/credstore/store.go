package credstore

import "errors"

// ErrNotFound is returned by Load when no blob exists under the key.
var ErrNotFound = errors.New("credential blob not found")

// Store persists opaque credential blobs under string keys. Callers
// treat the blob as a unit; partial updates are not supported.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}
