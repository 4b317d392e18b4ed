package service

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/authorization"
)

// lruEntry is a doubly-linked list node for the LRU decision cache.
type lruEntry struct {
	key     uint64
	verdict authorization.Implicit
	expires time.Time
	prev    *lruEntry
	next    *lruEntry
}

// DecisionCache is a bounded, TTL'd LRU cache for decision verdicts. It is
// an optional layer on top of the core: the authority clears it whenever
// the registry changes, and the TTL bounds staleness from group-membership
// changes the registry cannot observe. Thread-safe with a Mutex (both Get
// and Put mutate LRU order).
type DecisionCache struct {
	mu      sync.Mutex
	entries map[uint64]*lruEntry
	head    *lruEntry // most recently used
	tail    *lruEntry // least recently used
	maxSize int
	ttl     time.Duration
}

// NewDecisionCache creates a cache with the given max size and entry TTL.
func NewDecisionCache(maxSize int, ttl time.Duration) *DecisionCache {
	return &DecisionCache{
		entries: make(map[uint64]*lruEntry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a cached verdict. Expired entries are dropped on access.
func (c *DecisionCache) Get(key uint64) (authorization.Implicit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return authorization.Unknown, false
	}
	if time.Now().After(e.expires) {
		c.unlinkLocked(e)
		delete(c.entries, key)
		return authorization.Unknown, false
	}
	c.moveToHeadLocked(e)
	return e.verdict, true
}

// Put stores a verdict, evicting the least recently used entry when full.
func (c *DecisionCache) Put(key uint64, verdict authorization.Implicit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.verdict = verdict
		e.expires = time.Now().Add(c.ttl)
		c.moveToHeadLocked(e)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}

	e := &lruEntry{key: key, verdict: verdict, expires: time.Now().Add(c.ttl)}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// Clear empties the cache. Called on registry change.
func (c *DecisionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*lruEntry, c.maxSize)
	c.head = nil
	c.tail = nil
}

// Size returns the current cache size.
func (c *DecisionCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// moveToHeadLocked moves an existing entry to the head. Must be called with
// the lock held.
func (c *DecisionCache) moveToHeadLocked(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

// pushHeadLocked inserts an entry at the head. Must be called with the lock
// held.
func (c *DecisionCache) pushHeadLocked(e *lruEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

// unlinkLocked removes an entry from the linked list. Must be called with
// the lock held.
func (c *DecisionCache) unlinkLocked(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

// evictTailLocked removes the least recently used entry. Must be called
// with the lock held.
func (c *DecisionCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}

// decisionCacheKey hashes the inputs that determine a verdict. The seed is
// included: two calls with different seeds may return different verdicts
// even against identical stores.
func decisionCacheKey(userKey string, local, active bool, actionID string, seed authorization.Implicit) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(userKey)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(strconv.FormatBool(local))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(strconv.FormatBool(active))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(actionID)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(strconv.Itoa(int(seed)))
	return h.Sum64()
}
