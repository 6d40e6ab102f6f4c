// Package cache persists raw resolver responses across runs and guards
// upstream services with per-source rate limits and in-flight request
// deduplication. Entries never expire on their own; clearing is an
// explicit operation.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/citekit/citekit/internal/csl"
)

// Entry is one cached upstream response.
type Entry struct {
	Prefix    string    `json:"prefix"`
	Accession string    `json:"accession"`
	Item      csl.Item  `json:"item"`
	Retrieved time.Time `json:"retrieved"`
}

// Store is a file-backed response cache. It is safe for concurrent use
// within a process; across processes, last writer wins on a given key,
// which is acceptable because entries for the same key are equivalent
// modulo staleness.
type Store struct {
	db       *sql.DB
	limiters *Limiters
	group    singleflight.Group
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, limiters *Limiters) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	const ddl = `CREATE TABLE IF NOT EXISTS responses (
  prefix TEXT NOT NULL,
  accession TEXT NOT NULL,
  response TEXT NOT NULL,
  retrieved TEXT NOT NULL,
  PRIMARY KEY (prefix, accession)
)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	if limiters == nil {
		limiters = NewLimiters(nil)
	}
	return &Store{db: db, limiters: limiters}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached item for (prefix, accession), if present.
func (s *Store) Get(prefix, accession string) (csl.Item, bool, error) {
	var response string
	err := s.db.QueryRow(
		"SELECT response FROM responses WHERE prefix = ? AND accession = ?",
		prefix, accession,
	).Scan(&response)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}
	var item csl.Item
	if err := json.Unmarshal([]byte(response), &item); err != nil {
		// A corrupt row is treated as a miss so it gets rewritten.
		return nil, false, nil
	}
	return item, true, nil
}

// Put stores an item for (prefix, accession), replacing any prior entry.
func (s *Store) Put(prefix, accession string, item csl.Item) error {
	response, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO responses (prefix, accession, response, retrieved) VALUES (?, ?, ?, ?)",
		prefix, accession, string(response), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// FetchFunc retrieves metadata from an upstream service.
type FetchFunc func(ctx context.Context) (csl.Item, error)

// GetOrFetch returns the cached item for (prefix, accession), or invokes
// fetch, stores the result, and returns it. Concurrent callers for the
// same key share a single fetch; callers for the same prefix share that
// source's rate limit, waiting cooperatively when it is exceeded.
func (s *Store) GetOrFetch(ctx context.Context, prefix, accession string, fetch FetchFunc) (csl.Item, error) {
	key := prefix + ":" + accession
	value, err, _ := s.group.Do(key, func() (any, error) {
		if item, ok, err := s.Get(prefix, accession); err != nil {
			return nil, err
		} else if ok {
			return item, nil
		}

		if err := s.limiters.Wait(ctx, prefix); err != nil {
			return nil, err
		}
		item, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Put(prefix, accession, item); err != nil {
			return nil, err
		}
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	// Hand each caller its own copy; drafts get mutated downstream.
	return value.(csl.Item).Clone(), nil
}

// Len reports the number of cached responses.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM responses").Scan(&n)
	return n, err
}

// Clear removes every cached response.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM responses")
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Entries returns all cached entries, for inspection tooling.
func (s *Store) Entries() ([]Entry, error) {
	rows, err := s.db.Query("SELECT prefix, accession, response, retrieved FROM responses ORDER BY prefix, accession")
	if err != nil {
		return nil, fmt.Errorf("listing cache: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var response, retrieved string
		if err := rows.Scan(&entry.Prefix, &entry.Accession, &response, &retrieved); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(response), &entry.Item); err != nil {
			continue
		}
		entry.Retrieved, _ = time.Parse(time.RFC3339, retrieved)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
