package cache

import (
	"encoding/hex"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/sha3"
)

// DefaultStoreSize is the number of results kept when no size is configured.
const DefaultStoreSize = 512

// ErrInvalidStoreSize is returned when a Store is created with a non-positive size.
var ErrInvalidStoreSize = errors.New("invalid cache store size: must be positive")

// entry is a stored result with its expiry.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store keeps recently fetched backend results, bounded by an LRU.
// Results are only stored when their Policy is cacheable and are dropped
// once MaxAge has elapsed. It is safe for concurrent use.
type Store struct {
	entries *lru.Cache
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewStore creates a Store holding at most size results.
func NewStore(size int) (*Store, error) {
	if size <= 0 {
		return nil, ErrInvalidStoreSize
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Store{entries: entries, now: time.Now}, nil
}

// Key derives a stable store key from the query parts.
func Key(parts ...string) string {
	sum := sha3.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Get returns the stored value for key if it is still fresh.
func (s *Store) Get(key string) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.entries.Get(key)
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	e, ok := v.(entry)
	if !ok || !s.now().Before(e.expiresAt) {
		s.entries.Remove(key)
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return e.value, true
}

// Put stores value under key if the policy allows it.
func (s *Store) Put(key string, value []byte, p Policy) {
	if s == nil || !p.Cacheable() {
		return
	}
	s.entries.Add(key, entry{
		value:     value,
		expiresAt: s.now().Add(p.MaxAge),
	})
}

// Len returns the number of stored results, including expired ones not yet evicted.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.entries.Len()
}

// Stats returns the number of hits and misses since creation.
func (s *Store) Stats() (hits, misses int64) {
	if s == nil {
		return 0, 0
	}
	return s.hits.Load(), s.misses.Load()
}
