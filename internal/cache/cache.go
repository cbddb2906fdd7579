package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/stockpulse-hq/bazaar-pulse/internal/domain"
)

var bucketResults = []byte("results")

// envelope wraps a cached payload with its expiry instant.
type envelope struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Cache is a TTL cache over a local bbolt file. Expired entries are treated
// as misses and removed lazily on the next read.
type Cache struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// Open creates or opens the cache file. ttl applies to every Set.
func Open(path string, ttl time.Duration) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResults)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache bucket: %w", err)
	}

	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the underlying database file.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives the cache key for a ticker and date range.
func Key(ticker string, r domain.DateRange) string {
	parts := []string{strings.ToUpper(strings.TrimSpace(ticker))}
	if !r.From.IsZero() {
		parts = append(parts, "from="+r.From.UTC().Format(time.RFC3339))
	}
	if !r.To.IsZero() {
		parts = append(parts, "to="+r.To.UTC().Format(time.RFC3339))
	}
	return strings.Join(parts, "|")
}

// Get loads the cached value for key into out. It returns false on a miss or
// an expired entry.
func (c *Cache) Get(key string, out any) (bool, error) {
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketResults).Get([]byte(key)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("read cache %s: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("decode cache %s: %w", key, err)
	}

	if c.now().After(env.ExpiresAt) {
		err := c.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketResults).Delete([]byte(key))
		})
		if err != nil {
			return false, fmt.Errorf("evict cache %s: %w", key, err)
		}
		return false, nil
	}

	if err := json.Unmarshal(env.Payload, out); err != nil {
		return false, fmt.Errorf("decode cache payload %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key with the cache TTL.
func (c *Cache) Set(key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache payload %s: %w", key, err)
	}

	raw, err := json.Marshal(envelope{
		ExpiresAt: c.now().Add(c.ttl),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", key, err)
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResults).Put([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("write cache %s: %w", key, err)
	}
	return nil
}
