// Package cache persists parsed horoscope entries as a single JSON
// document on disk, mirrored by an in-memory map.
package cache

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jlhuang/astrod/internal/astro"
)

// Store maps sign indices (as decimal strings) to entries. The whole map
// is rewritten on every save; there are no incremental writes.
type Store struct {
	path string
	log  zerolog.Logger

	mu      sync.RWMutex
	entries map[string]astro.Entry
}

func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:    path,
		log:     logger,
		entries: make(map[string]astro.Entry),
	}
}

// Load reads the persisted document into memory. A missing or unreadable
// file is not an error: the store starts empty and the condition is logged.
func (s *Store) Load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error().Err(err).Str("path", s.path).Msg("read cache file, starting empty")
		}
		return
	}

	entries := make(map[string]astro.Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("parse cache file, starting empty")
		return
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	s.log.Info().Int("entries", len(entries)).Msg("cache loaded")
}

// Save serializes the whole map and replaces the persisted document.
// The write goes to a temporary file first and is renamed into place, so
// a crash mid-write never leaves a truncated document behind.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	// unique temp name so overlapping saves never share a scratch file
	tmp := s.path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func (s *Store) Get(sign int) (astro.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[strconv.Itoa(sign)]
	return e, ok
}

func (s *Store) Put(sign int, e astro.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[strconv.Itoa(sign)] = e
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
