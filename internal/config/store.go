package config

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofrs/flock"
)

// Store owns one configuration file. Credentials supplied through the
// environment are part of the effective configuration but are never written
// back unless a caller saves them explicitly.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	current Configuration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for load and save events.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store for path holding the built-in defaults. Call
// Load to read the file.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	effective := Defaults().Settings()
	applyEnv(effective, nil)
	if cfg, err := decode(effective); err == nil {
		s.current = cfg
	} else {
		s.current = Defaults()
	}
	return s
}

// Open creates a Store and loads it.
func Open(path string, opts ...StoreOption) (*Store, error) {
	s := NewStore(path, opts...)
	if _, err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the configuration file for path and validates the result.
// A missing file yields the defaults.
func Load(path string) (Configuration, error) {
	return NewStore(path).Load()
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load re-reads the file, merges it over the defaults and validates the
// merge. A missing file yields the defaults without validation, so a fresh
// install can still be configured through Save. On error the store keeps its
// previous state.
func (s *Store) Load() (Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.Read()
	if err != nil {
		return Configuration{}, err
	}
	s.current = cfg
	return cfg, nil
}

// Read is Load without updating the store's snapshot.
func (s *Store) Read() (Configuration, error) {
	effective, exists, err := s.readBase()
	if err != nil {
		return Configuration{}, err
	}
	applyEnv(effective, nil)

	if !exists {
		s.logger.Debug("config file not found, using defaults", "path", s.path)
		return decode(effective)
	}
	return resolve(effective)
}

// readBase returns the defaults overlaid with the known keys of the file.
func (s *Store) readBase() (map[string]any, bool, error) {
	fileSettings, exists, err := readPersisted(s.path)
	if err != nil {
		return nil, exists, err
	}

	persisted := Defaults().Settings()
	for key, value := range fileSettings {
		if !IsKnownKey(key) {
			s.logger.Warn("ignoring unknown configuration key", "key", key, "path", s.path)
			continue
		}
		persisted[key] = value
	}
	return persisted, exists, nil
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save merges updates over the settings on disk, validates the merge, writes
// it and only then commits it. Any failure leaves both the file and the
// in-memory configuration unchanged.
func (s *Store) Save(updates map[string]any) (Configuration, error) {
	for _, key := range sortedKeys(updates) {
		if !IsKnownKey(key) {
			return Configuration{}, &ConfigurationError{
				Op:    "validate",
				Field: key,
				Err:   &InvalidValueError{Key: key, Value: updates[key], Reason: "unknown configuration key"},
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return Configuration{}, err
	}
	defer unlock()

	// Merge over what is on disk now, not over what this store last saw, so
	// a write from another process since then is kept.
	next, _, err := s.readBase()
	if err != nil {
		return Configuration{}, err
	}
	for key, value := range updates {
		next[key] = value
	}

	effective := cloneSettings(next)
	applyEnv(effective, updates)

	cfg, err := resolve(effective)
	if err != nil {
		return Configuration{}, err
	}

	// Persist the typed form so the file never carries loosely typed values.
	persisted := cfg.Settings()
	for key := range envOverrides {
		if _, updated := updates[key]; !updated {
			persisted[key] = next[key]
		}
	}

	if err := writeSettings(s.path, persisted); err != nil {
		return Configuration{}, err
	}

	s.current = cfg
	s.logger.Info("configuration saved", "path", s.path, "keys", sortedKeys(updates))
	return cfg, nil
}

// lockFile takes the advisory lock that serialises read-modify-write cycles
// on the file across processes.
func (s *Store) lockFile() (func(), error) {
	if err := ensureDir(s.path); err != nil {
		return nil, err
	}
	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, &ConfigurationError{Op: "lock", Err: fmt.Errorf("acquire config lock: %w", err)}
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release config lock", "error", err)
		}
	}, nil
}
