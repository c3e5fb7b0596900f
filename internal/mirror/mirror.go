// Package mirror is the local mirror store: a small per-device key/value
// cache of JSON payloads that keeps the planner usable before sign-in and
// when the document store is unreachable.
//
// Each key is one file under the mirror directory. Writes replace the whole
// value atomically (temp file + rename). Read failures fall back to the
// caller's default and write failures are logged and swallowed, so callers
// never have to handle mirror errors.
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/loveeagles/planner/internal/logger"
)

// Keys used by the planner modules.
const (
	KeyAssignments    = "assignments"
	KeyGoals          = "goals"
	KeyNotes          = "notes"
	KeyMoodHistory    = "moodHistory"
	KeyStudySessions  = "studySessions"
	KeyJournalEntries = "journalEntries"
	KeyCoachChat      = "coachChat"
	KeyStudyPatterns  = "studyPatterns"
)

// DefaultMaxBytes is the total size quota across all keys.
const DefaultMaxBytes int64 = 5 << 20

// ErrQuotaExceeded is logged when a write would exceed the quota.
var ErrQuotaExceeded = errors.New("mirror quota exceeded")

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

const fileExt = ".json"

// Store is the mirror store.
type Store struct {
	dir      string
	maxBytes int64
	logger   *log.Logger

	mu sync.RWMutex
}

// Open returns a store rooted at dir, creating it if needed.
func Open(dir string, maxBytes int64, l *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{dir: dir, maxBytes: maxBytes, logger: logger.Named(l, "mirror")}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) file(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// ReadRaw returns the stored payload for key.
func (s *Store) ReadRaw(key string) ([]byte, bool) {
	if !validKey.MatchString(key) {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.file(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read mirror entry", "key", key, "err", err)
		}
		return nil, false
	}
	return data, true
}

// Read returns the value stored under key decoded into T, or def when the
// key is missing or its payload does not decode.
func Read[T any](s *Store, key string, def T) T {
	data, ok := s.ReadRaw(key)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger.Warn("ignoring corrupt mirror entry", "key", key, "err", err)
		return def
	}
	return v
}

// Write serializes value and replaces the entry under key. Failures are
// logged; the previous value stays readable. It reports whether the write
// took effect.
func (s *Store) Write(key string, value any) bool {
	if err := s.write(key, value); err != nil {
		s.logger.Warn("mirror write failed", "key", key, "err", err)
		return false
	}
	return true
}

func (s *Store) write(key string, value any) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	used, err := s.usageExcluding(key)
	if err != nil {
		return err
	}
	if used+int64(len(data)) > s.maxBytes {
		return fmt.Errorf("%w: %d + %d bytes > %d", ErrQuotaExceeded, used, len(data), s.maxBytes)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.file(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace entry: %w", err)
	}
	return nil
}

// usageExcluding sums the size of every entry except key. Caller holds mu.
func (s *Store) usageExcluding(key string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan mirror directory: %w", err)
	}
	var total int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.TrimSuffix(name, fileExt) == key {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// Usage returns the total bytes stored.
func (s *Store) Usage() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.usageExcluding("")
	if err != nil {
		return 0
	}
	return n
}

// Keys lists the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("failed to scan mirror directory", "err", err)
		return nil
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(keys)
	return keys
}

// Remove deletes the entry under key. Missing keys are ignored.
func (s *Store) Remove(key string) {
	if !validKey.MatchString(key) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.file(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove mirror entry", "key", key, "err", err)
	}
}
