// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists normalized rubrics and structured essays in a
// SQLite database keyed by content fingerprint, so resubmitting the same
// rubric or essay skips the inference calls that built it.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/rubricheck/pkg/types"
)

const (
	kindRubric = "rubric"
	kindEssay  = "essay"

	defaultTTL = 24 * time.Hour
)

// Store is the content-addressed artifact cache.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// Open opens or creates the cache database at cfg.Path and evicts expired
// entries. An empty path is a configuration error; callers disable caching
// by not opening a store.
func Open(cfg types.CacheConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache path not configured")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	s := &Store{db: db, ttl: ttl}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	if err := s.evictExpired(); err != nil {
		db.Close()
		return nil, fmt.Errorf("evicting expired entries: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		fingerprint TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (fingerprint, kind)
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

func (s *Store) evictExpired() error {
	cutoff := time.Now().Add(-s.ttl).Unix()
	_, err := s.db.Exec(`DELETE FROM entries WHERE created_at < ?`, cutoff)
	return err
}

// Fingerprint derives the cache key for raw input bytes. Extra parts salt
// the key so the same text under different settings caches separately.
func Fingerprint(data []byte, parts ...string) string {
	h := sha256.New()
	h.Write(data)
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) get(fingerprint, kind string, out any) (bool, error) {
	var payload string
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT payload, created_at FROM entries WHERE fingerprint = ? AND kind = ?`,
		fingerprint, kind,
	).Scan(&payload, &createdAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying cache: %w", err)
	}
	if time.Unix(createdAt, 0).Add(s.ttl).Before(time.Now()) {
		return false, nil
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, fmt.Errorf("decoding cached %s: %w", kind, err)
	}
	return true, nil
}

func (s *Store) put(fingerprint, kind string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s for cache: %w", kind, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO entries (fingerprint, kind, payload, created_at) VALUES (?, ?, ?, ?)`,
		fingerprint, kind, string(payload), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// GetRubric returns the cached canonical rubric for the fingerprint, if
// present and unexpired.
func (s *Store) GetRubric(fingerprint string) (*types.CanonicalRubric, bool, error) {
	var r types.CanonicalRubric
	ok, err := s.get(fingerprint, kindRubric, &r)
	if !ok || err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

// PutRubric caches a normalized rubric.
func (s *Store) PutRubric(fingerprint string, r *types.CanonicalRubric) error {
	return s.put(fingerprint, kindRubric, r)
}

// GetEssay returns the cached structured essay for the fingerprint, if
// present and unexpired.
func (s *Store) GetEssay(fingerprint string) (*types.StructuredEssay, bool, error) {
	var e types.StructuredEssay
	ok, err := s.get(fingerprint, kindEssay, &e)
	if !ok || err != nil {
		return nil, false, err
	}
	return &e, true, nil
}

// PutEssay caches a structured essay.
func (s *Store) PutEssay(fingerprint string, e *types.StructuredEssay) error {
	return s.put(fingerprint, kindEssay, e)
}
