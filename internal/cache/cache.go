// Package cache persists symbol-extraction results between runs.
//
// Entries are keyed by content digest plus language, so the cache survives
// line-number drift across re-diffing: the same logical hunk hits the same
// entry no matter where it moved.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/patchforge/patchforge/internal/analyzer"
)

var bucketSymbols = []byte("symbols")

// Store is a bbolt-backed extraction cache. Safe for concurrent use; bbolt
// serializes writes internally.
type Store struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSymbols)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache bucket: %w", err)
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "cache"),
	}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Get looks up a cached analysis. A decode failure is treated as a miss.
func (s *Store) Get(digest, lang string) (*analyzer.CachedAnalysis, bool) {
	var entry *analyzer.CachedAnalysis

	s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSymbols).Get(key(digest, lang))
		if data == nil {
			return nil
		}
		var decoded analyzer.CachedAnalysis
		if err := json.Unmarshal(data, &decoded); err != nil {
			s.logger.Warn("dropping undecodable cache entry", "digest", digest, "error", err)
			return nil
		}
		entry = &decoded
		return nil
	})

	return entry, entry != nil
}

// Put stores an analysis result
func (s *Store) Put(digest, lang string, entry *analyzer.CachedAnalysis) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSymbols).Put(key(digest, lang), data)
	})
}

func key(digest, lang string) []byte {
	return []byte(digest + ":" + lang)
}
