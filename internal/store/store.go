package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

var bucketHistory = []byte("history")

// Store keeps a local history of aggregate results, one entry per fetch, so
// past sentiment snapshots survive restarts and can be inspected later.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open creates or opens the history file.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init store bucket: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save appends one aggregate result to the ticker's history. Keys are
// ticker-prefixed and time-ordered, so a prefix scan returns snapshots in
// chronological order.
func (s *Store) Save(result domain.AggregateResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result for %s: %w", result.Ticker, err)
	}

	key := historyKey(result.Ticker, s.now())
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).Put([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("write result for %s: %w", result.Ticker, err)
	}
	return nil
}

// History returns up to limit most recent snapshots for the ticker, newest
// first. limit <= 0 returns everything.
func (s *Store) History(ticker string, limit int) ([]domain.AggregateResult, error) {
	prefix := []byte(strings.ToUpper(strings.TrimSpace(ticker)) + "/")

	var results []domain.AggregateResult
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var r domain.AggregateResult
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode snapshot %s: %w", k, err)
			}
			results = append(results, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read history for %s: %w", ticker, err)
	}

	// Stored oldest-first; callers want newest-first.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func historyKey(ticker string, at time.Time) string {
	return strings.ToUpper(strings.TrimSpace(ticker)) + "/" + at.UTC().Format(time.RFC3339Nano)
}
