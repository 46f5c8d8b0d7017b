// Package cache implements the content-addressed speech cache: a
// SQLite-backed key/value store mapping (engine, text, options) to
// previously synthesized audio bytes, with size-bounded oldest-first
// eviction.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

// Store limits
const (
	// DefaultMaxBytes is the default cache size cap (100MB)
	DefaultMaxBytes = 100 * 1024 * 1024
	// DefaultPruneTarget is the post-prune utilization fraction
	DefaultPruneTarget = 0.8
	// previewRunes bounds the stored text preview
	previewRunes = 100
)

// Entry describes one cached synthesis result, audio excluded.
type Entry struct {
	Key       string         `json:"key"`
	Text      string         `json:"text"`
	Engine    string         `json:"engine"`
	Options   map[string]any `json:"options"`
	CreatedAt time.Time      `json:"created_at"`
	SizeBytes int64          `json:"size_bytes"`
}

// Stats summarizes the cache contents.
type Stats struct {
	Count          int     `json:"count"`
	TotalSizeBytes int64   `json:"total_size_bytes"`
	Entries        []Entry `json:"entries"`
}

// Store is a SQLite-backed speech cache. All operations persist
// immediately; nothing in here touches the network.
type Store struct {
	db       *sql.DB
	maxBytes int64
	clock    func() time.Time
}

// Open creates or opens a cache store at path. maxBytes <= 0 selects
// the default cap.
func Open(path string, maxBytes int64) (*Store, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache store: %w", err)
	}

	s := &Store{db: db, maxBytes: maxBytes, clock: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("speech cache opened", "path", path, "maxBytes", maxBytes)
	return s, nil
}

func (s *Store) initSchema() error {
	ddl := `
CREATE TABLE IF NOT EXISTS speech_cache (
    key TEXT PRIMARY KEY,
    text_preview TEXT NOT NULL,
    engine TEXT NOT NULL,
    options TEXT NOT NULL,
    audio BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    size INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_speech_cache_created ON speech_cache(created_at);
`
	_, err := s.db.Exec(ddl)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached audio for (text, engine, options), or nil on
// a miss. Empty text is never cached and always misses.
func (s *Store) Get(text, engine string, options map[string]any) ([]byte, error) {
	if text == "" {
		return nil, nil
	}

	key := DeriveKey(text, engine, options)
	var audio []byte
	err := s.db.QueryRow(`SELECT audio FROM speech_cache WHERE key = ?`, key).Scan(&audio)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("cache miss", "key", key)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache read: %w", err)
	}

	log.Debug("cache hit", "key", key, "size", len(audio))
	return audio, nil
}

// Set stores synthesized audio under the derived key, overwriting any
// previous entry. A bounded text preview is kept for inspection rather
// than the full text. Empty text is a no-op.
func (s *Store) Set(text, engine string, options map[string]any, audio []byte) error {
	if text == "" {
		return nil
	}

	key := DeriveKey(text, engine, options)
	optJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("cache write: encode options: %w", err)
	}

	_, err = s.db.Exec(`
INSERT INTO speech_cache(key, text_preview, engine, options, audio, created_at, size)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    text_preview=excluded.text_preview,
    engine=excluded.engine,
    options=excluded.options,
    audio=excluded.audio,
    created_at=excluded.created_at,
    size=excluded.size`,
		key, truncate(text, previewRunes), engine, string(optJSON), audio,
		s.clock().UnixNano(), int64(len(audio)))
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}

	log.Debug("cache store", "key", key, "size", len(audio))
	return nil
}

// Stats returns entry metadata ordered newest first.
func (s *Store) Stats() (Stats, error) {
	rows, err := s.db.Query(`
SELECT key, text_preview, engine, options, created_at, size
FROM speech_cache ORDER BY created_at DESC`)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var e Entry
		var optJSON string
		var createdAt int64
		if err := rows.Scan(&e.Key, &e.Text, &e.Engine, &optJSON, &createdAt, &e.SizeBytes); err != nil {
			return Stats{}, fmt.Errorf("cache stats: %w", err)
		}
		_ = json.Unmarshal([]byte(optJSON), &e.Options)
		e.CreatedAt = time.Unix(0, createdAt)
		stats.Entries = append(stats.Entries, e)
		stats.Count++
		stats.TotalSizeBytes += e.SizeBytes
	}

	return stats, rows.Err()
}

// Prune enforces the size cap. When total size exceeds the cap, the
// oldest entries (by creation time) are deleted until total size is at
// or below cap * targetUtilization.
func (s *Store) Prune(targetUtilization float64) error {
	if targetUtilization <= 0 || targetUtilization > 1 {
		targetUtilization = DefaultPruneTarget
	}

	var total int64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM speech_cache`).Scan(&total); err != nil {
		return fmt.Errorf("cache prune: %w", err)
	}
	if total <= s.maxBytes {
		return nil
	}

	target := int64(float64(s.maxBytes) * targetUtilization)
	rows, err := s.db.Query(`SELECT key, size FROM speech_cache ORDER BY created_at ASC`)
	if err != nil {
		return fmt.Errorf("cache prune: %w", err)
	}

	var victims []string
	for rows.Next() {
		var key string
		var size int64
		if err := rows.Scan(&key, &size); err != nil {
			rows.Close()
			return fmt.Errorf("cache prune: %w", err)
		}
		if total <= target {
			break
		}
		victims = append(victims, key)
		total -= size
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cache prune: %w", err)
	}

	for _, key := range victims {
		if _, err := s.db.Exec(`DELETE FROM speech_cache WHERE key = ?`, key); err != nil {
			return fmt.Errorf("cache prune: %w", err)
		}
	}

	if len(victims) > 0 {
		log.Info("speech cache pruned", "evicted", len(victims), "remainingBytes", total)
	}
	return nil
}

// Clear removes every entry unconditionally.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM speech_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// truncate bounds a string to n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
