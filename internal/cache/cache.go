// Package cache persists raw API response bodies on disk, keyed by the
// request signature, so repeated runs skip the network entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry is the JSON envelope written to disk. The original key is stored
// alongside the body so a hash collision reads as a miss instead of
// returning a foreign payload.
type entry struct {
	Key      string    `json:"key"`
	Body     []byte    `json:"body"`
	StoredAt time.Time `json:"stored_at"`
}

// Cache is a disk-backed response cache with an in-memory LRU front.
// A zero TTL disables expiry. Entries are never rewritten.
type Cache struct {
	dir string
	ttl time.Duration
	mem *lru.Cache[string, *entry]
}

func New(dir string, memSize int, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	mem, err := lru.New[string, *entry](memSize)
	if err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl, mem: mem}, nil
}

// Get returns the cached body for key. Any unreadable, corrupt, mismatched
// or expired entry is reported as a miss, never an error.
func (c *Cache) Get(key string) ([]byte, bool) {
	if e, ok := c.mem.Get(key); ok && c.fresh(e) {
		return e.Body, true
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.Key != key || !c.fresh(&e) {
		return nil, false
	}
	c.mem.Add(key, &e)
	return e.Body, true
}

// Put stores body under key on disk and in the memory front.
func (c *Cache) Put(key string, body []byte) error {
	e := &entry{Key: key, Body: body, StoredAt: time.Now()}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	c.mem.Add(key, e)
	return nil
}

func (c *Cache) fresh(e *entry) bool {
	return c.ttl <= 0 || time.Since(e.StoredAt) < c.ttl
}

func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
