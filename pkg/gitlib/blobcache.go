package gitlib

import (
	"sync"
	"sync/atomic"

	"github.com/Sumatoshi-tech/testevo/pkg/units"
)

// DefaultBlobCacheSize is the default maximum memory held by a BlobCache.
const DefaultBlobCacheSize = 64 * units.MiB

// bytesPerKB is the number of bytes in a kilobyte.
const bytesPerKB = 1024.0

// BlobCache is an in-memory LRU for blob contents keyed by hash. A history
// walk sees the same content hash on both sides of successive diffs, so
// caching skips repeated object decompression. Entries are evicted
// size-aware: large, rarely read blobs go first.
//
// Cached slices are shared with callers and must be treated as immutable.
type BlobCache struct {
	mu          sync.Mutex
	entries     map[Hash]*blobEntry
	head        *blobEntry // Most recently used.
	tail        *blobEntry // Least recently used.
	maxSize     int64
	currentSize int64

	// Metrics (atomic for lock-free reads).
	hits   atomic.Int64
	misses atomic.Int64
}

// blobEntry is a doubly-linked list node for LRU tracking.
type blobEntry struct {
	hash        Hash
	data        []byte
	size        int64
	accessCount int64
	prev        *blobEntry
	next        *blobEntry
}

// evictionCost weighs an entry for eviction. Higher cost keeps the entry
// longer: frequently read blobs rank above large one-shot reads.
func (e *blobEntry) evictionCost() float64 {
	if e.size == 0 {
		return float64(e.accessCount)
	}

	sizeKB := float64(e.size) / bytesPerKB
	if sizeKB < 1 {
		sizeKB = 1
	}

	return float64(e.accessCount) / sizeKB
}

// NewBlobCache creates a blob cache bounded to maxSize bytes.
func NewBlobCache(maxSize int64) *BlobCache {
	if maxSize <= 0 {
		maxSize = DefaultBlobCacheSize
	}

	return &BlobCache{
		entries: make(map[Hash]*blobEntry),
		maxSize: maxSize,
	}
}

// Get returns the cached contents for hash. The second return reports
// whether the hash was present, since empty blobs cache as nil slices.
func (c *BlobCache) Get(hash Hash) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[hash]
	if !ok {
		c.misses.Add(1)

		return nil, false
	}

	c.hits.Add(1)

	entry.accessCount++
	c.moveToFront(entry)

	return entry.data, true
}

// Put stores blob contents under hash. Blobs larger than the whole cache
// are not stored. The cache keeps the slice without copying.
func (c *BlobCache) Put(hash Hash, data []byte) {
	size := int64(len(data))
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[hash]; ok {
		entry.accessCount++
		c.moveToFront(entry)

		return
	}

	for c.currentSize+size > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}

	entry := &blobEntry{
		hash:        hash,
		data:        data,
		size:        size,
		accessCount: 1,
	}

	c.entries[hash] = entry
	c.currentSize += size
	c.addToFront(entry)
}

// Stats returns cache counters.
func (c *BlobCache) Stats() BlobCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return BlobCacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// BlobCacheStats holds cache performance counters.
type BlobCacheStats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns the cache hit rate in [0, 1].
func (s BlobCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

// moveToFront moves an entry to the front of the LRU list.
func (c *BlobCache) moveToFront(entry *blobEntry) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

// addToFront adds an entry at the most recently used position.
func (c *BlobCache) addToFront(entry *blobEntry) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

// removeFromList unlinks an entry from the LRU list.
func (c *BlobCache) removeFromList(entry *blobEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}

// evictionSampleSize bounds the tail scan during eviction, keeping each
// eviction O(k) instead of O(n).
const evictionSampleSize = 5

// evictLowestCost removes the lowest-cost entry from the LRU tail region.
func (c *BlobCache) evictLowestCost() {
	if c.tail == nil {
		return
	}

	var candidates [evictionSampleSize]*blobEntry

	count := 0
	entry := c.tail

	for entry != nil && count < evictionSampleSize {
		candidates[count] = entry
		count++
		entry = entry.prev
	}

	if count == 0 {
		return
	}

	victim := candidates[0]
	lowestCost := victim.evictionCost()

	for i := 1; i < count; i++ {
		cost := candidates[i].evictionCost()
		if cost < lowestCost {
			lowestCost = cost
			victim = candidates[i]
		}
	}

	c.removeFromList(victim)
	delete(c.entries, victim.hash)
	c.currentSize -= victim.size
}
