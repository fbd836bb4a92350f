package credstore

import (
	"context"
	"errors"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"

	"github.com/ruffsl/msauthd/internal/logging"
)

// Cache adapts a Store to MSAL's cache.ExportReplace so the token cache
// survives restarts. Each Cache is namespaced by key, so the default and
// alternate providers never read each other's tokens.
type Cache struct {
	store  Store
	key    string
	logger logging.Logger

	mu sync.Mutex
}

// NewCache builds a persistence adapter storing the serialized token
// cache under the given key.
func NewCache(store Store, key string, logger logging.Logger) *Cache {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Cache{store: store, key: key, logger: logger}
}

// Replace hydrates MSAL's in-memory cache from the store. A missing or
// unreadable blob yields an empty cache rather than an error so a
// corrupt store never blocks authentication.
func (c *Cache) Replace(ctx context.Context, u cache.Unmarshaler, _ cache.ReplaceHints) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.store.Load(c.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		c.logger.Warn("failed to load token cache, starting empty",
			"key", c.key, logging.KeyError, err)
		return nil
	}

	if err := u.Unmarshal(data); err != nil {
		c.logger.Warn("token cache is corrupt, starting empty",
			"key", c.key, logging.KeyError, err)
		return nil
	}
	return nil
}

// Export serializes MSAL's in-memory cache into the store.
func (c *Cache) Export(ctx context.Context, m cache.Marshaler, _ cache.ExportHints) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := m.Marshal()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Save(c.key, data)
}

// Clear removes the persisted cache blob.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Delete(c.key)
}

// OpenDefaultStore returns the OS keyring when it is usable, otherwise a
// 0600 file store under the user cache dir.
func OpenDefaultStore(logger logging.Logger) (Store, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	kr := &keyringStore{service: ServiceName}
	err := kr.probe()
	if err == nil {
		return kr, nil
	}
	logger.Debug("OS keyring unavailable, falling back to file store", logging.KeyError, err)

	dir, err := DefaultFileDir()
	if err != nil {
		return nil, err
	}
	return NewFileStore(dir)
}
