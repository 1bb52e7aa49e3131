package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/oklahomer/go-kasumi/logger"
)

// Store owns the process-wide Config and the file it is persisted to.
// All methods are safe for concurrent use.
type Store struct {
	path   string
	mu     sync.RWMutex
	config Config
}

// Load reads the settings file at path.
// It returns an error wrapping ErrConfigLoad when the file is absent or unparsable.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}

	config := NewConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigLoad, path, err)
	}
	config.normalize()

	return &Store{path: path, config: *config}, nil
}

// Generate writes a default Config to path and returns a Store holding it.
func Generate(path string) (*Store, error) {
	store := &Store{path: path, config: *NewConfig()}
	if err := store.persist(); err != nil {
		return nil, err
	}
	logger.Infof("Generated default settings at %s", path)
	return store, nil
}

// Open generates the settings file when regenerate is true or the file does
// not exist yet, and loads it otherwise.
func Open(path string, regenerate bool) (*Store, error) {
	if !regenerate {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			regenerate = true
		}
	}

	if regenerate {
		return Generate(path)
	}
	return Load(path)
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the current Config.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.clone()
}

// Token returns the stored bot token.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Token
}

// Prefix returns the stored prefix, or DefaultPrefix when none is stored.
func (s *Store) Prefix() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config.Prefix == "" {
		return DefaultPrefix
	}
	return s.config.Prefix
}

// MOTM returns the message of the moment.
func (s *Store) MOTM() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.MOTM
}

// Channel returns the name of the channel commands are restricted to, or "".
func (s *Store) Channel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Channel
}

// LockChannelResponses reports whether custom responses are disabled.
func (s *Store) LockChannelResponses() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bool(s.config.LockChannelResponses)
}

// CustomResponses returns a copy of the trigger-to-reply table.
func (s *Store) CustomResponses() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.config.CustomResponses))
	for k, v := range s.config.CustomResponses {
		out[k] = v
	}
	return out
}

// RemovalFilter returns a copy of the filter terms in insertion order.
func (s *Store) RemovalFilter() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.config.RemovalFilter)
}

// SetToken stores the bot token.
func (s *Store) SetToken(token string) error {
	_, err := s.update(func(c *Config) bool {
		c.Token = token
		return true
	})
	return err
}

// SetPrefix stores the command prefix.
func (s *Store) SetPrefix(prefix string) error {
	_, err := s.update(func(c *Config) bool {
		c.Prefix = prefix
		return true
	})
	return err
}

// SetMOTM stores the message of the moment.
func (s *Store) SetMOTM(motm string) error {
	_, err := s.update(func(c *Config) bool {
		c.MOTM = motm
		return true
	})
	return err
}

// SetChannel restricts command replies to the named channel. An empty name
// lifts the restriction.
func (s *Store) SetChannel(channel string) error {
	_, err := s.update(func(c *Config) bool {
		c.Channel = channel
		return true
	})
	return err
}

// SetLockChannelResponses enables or disables custom responses.
func (s *Store) SetLockChannelResponses(lock bool) error {
	_, err := s.update(func(c *Config) bool {
		c.LockChannelResponses = Flag(lock)
		return true
	})
	return err
}

// AddFilter adds term to the removal filter.
// It reports false without writing anything when term is already present.
func (s *Store) AddFilter(term string) (bool, error) {
	return s.update(func(c *Config) bool {
		if slices.Contains(c.RemovalFilter, term) {
			return false
		}
		c.RemovalFilter = append(c.RemovalFilter, term)
		return true
	})
}

// RemoveFilter deletes term from the removal filter.
// It reports false without writing anything when term is absent.
func (s *Store) RemoveFilter(term string) (bool, error) {
	return s.update(func(c *Config) bool {
		i := slices.Index(c.RemovalFilter, term)
		if i < 0 {
			return false
		}
		c.RemovalFilter = slices.Delete(c.RemovalFilter, i, i+1)
		return true
	})
}

// AddResponse sets the reply for key, replacing any existing one.
func (s *Store) AddResponse(key, text string) error {
	_, err := s.update(func(c *Config) bool {
		c.CustomResponses[key] = text
		return true
	})
	return err
}

// RemoveResponse deletes the reply for key.
// It reports false without writing anything when key is absent.
func (s *Store) RemoveResponse(key string) (bool, error) {
	return s.update(func(c *Config) bool {
		if _, ok := c.CustomResponses[key]; !ok {
			return false
		}
		delete(c.CustomResponses, key)
		return true
	})
}

// update applies fn to the Config and persists the result when fn reports a
// change. A failed persist restores the previous Config.
func (s *Store) update(fn func(*Config) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.config.clone()
	if !fn(&s.config) {
		return false, nil
	}

	if err := s.persistLocked(); err != nil {
		s.config = prev
		return false, err
	}
	return true, nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// persistLocked writes the whole Config through a temp file and a rename.
// Must be called with the lock held.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.config, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	logger.Debugf("Persisted settings to %s", s.path)
	return nil
}
