package tokencache

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrPersistence indicates a disk I/O failure while saving or clearing the
// cache. In-memory state stays valid; an unsaved cache only means the user
// re-authenticates after a restart.
var ErrPersistence = errors.New("token cache persistence failure")

// FileStore persists one Cache blob to local disk. Writes are serialized by an
// in-process mutex; the file is not shared across processes.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted blob into the cache. A missing file is the normal
// logged-out state. A corrupt or unreadable file is logged and leaves the
// cache empty rather than failing startup.
func (s *FileStore) Load(c *Cache) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", s.path).Msg("failed to read token cache")
		}
		return
	}
	if err := c.Unmarshal(data); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("failed to load token cache")
		return
	}
	log.Info().Str("path", s.path).Msg("token cache loaded")
}

// Save writes the blob to disk only when the in-memory cache reports it has
// changed since the last load or save.
func (s *FileStore) Save(c *Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !c.HasStateChanged() {
		return nil
	}

	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPersistence, err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("failed to save token cache")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	c.markSaved()
	log.Info().Str("path", s.path).Msg("token cache saved")
	return nil
}

// Clear resets the cache to empty and deletes the persisted blob. It is
// idempotent: a missing file is not an error.
func (s *FileStore) Clear(c *Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.RemoveAll()
	c.markSaved()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	log.Info().Str("path", s.path).Msg("token cache cleared")
	return nil
}
