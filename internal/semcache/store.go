// store.go — the durable backing store under the S3-FIFO layer.
//
// Grounded directly on the teacher's internal/anonymizer/cache.go
// PersistentCache interface + memoryCache + bboltCache pair, generalized
// from string->string (PII value -> token) to string->[]byte (cache key
// -> gob-encoded payload) so the same store serves both the exact-tier
// entries (key -> []CachedSpan) and the structural-tier index (fingerprint
// -> candidate exact keys).
package semcache

import (
	"fmt"
	"log"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// Store is the durable cache backing interface. All implementations must
// be safe for concurrent use, mirroring the teacher's PersistentCache
// contract.
type Store interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte)
	Delete(key string)
	Close() error
}

// --- memoryStore -----------------------------------------------------------

// memoryStore is a thread-safe in-memory Store, used in tests and as a
// fallback when no bbolt path is configured.
type memoryStore struct {
	mu    sync.RWMutex
	store map[string][]byte
}

// NewMemoryStore returns an in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{store: make(map[string][]byte)}
}

func (c *memoryStore) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *memoryStore) Set(key string, value []byte) {
	c.mu.Lock()
	c.store[key] = value
	c.mu.Unlock()
}

func (c *memoryStore) Delete(key string) {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
}

func (c *memoryStore) Close() error { return nil }

// --- boltStore ---------------------------------------------------------

// semcacheBucket is the bbolt bucket name. A single bucket holds both
// tiers' entries distinguished by key prefix (see exactPrefix/structPrefix
// in cache.go), following the teacher's one-bucket-per-concern layout.
const semcacheBucket = "semcache_entries"

// boltStore is a Store backed by an embedded bbolt database. The *bolt.DB
// handle may be shared with internal/threshold's BoltFeedbackStore — both
// simply open their own bucket on it.
type boltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the bucket on an already-open bbolt
// database.
func NewBoltStore(db *bolt.DB) (Store, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(semcacheBucket))
		return err
	}); err != nil {
		return nil, fmt.Errorf("create semcache bucket: %w", err)
	}
	log.Printf("[CACHE] persistent semantic cache opened")
	return &boltStore{db: db}, nil
}

func (c *boltStore) Get(key string) ([]byte, bool) {
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(semcacheBucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...) // bbolt values are only valid within the transaction
		}
		return nil
	})
	if err != nil {
		log.Printf("[CACHE] bbolt Get error: %v", err)
		return nil, false
	}
	return value, value != nil
}

func (c *boltStore) Set(key string, value []byte) {
	if err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(semcacheBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", semcacheBucket)
		}
		return b.Put([]byte(key), value)
	}); err != nil {
		log.Printf("[CACHE] bbolt Set error: %v", err)
	}
}

func (c *boltStore) Delete(key string) {
	if err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(semcacheBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	}); err != nil {
		log.Printf("[CACHE] bbolt Delete error: %v", err)
	}
}

func (c *boltStore) Close() error {
	return c.db.Close()
}
