package cache

import (
	"container/list"
	"sync"
)

// Memory is an LRU cache bounded by the total size of its values.
type Memory struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	items    map[string]*list.Element
	lru      *list.List // front is most recently used
	stats    Stats
}

type memoryEntry struct {
	key   string
	value []byte
}

// NewMemory creates a memory cache holding up to capacity bytes.
func NewMemory(capacity int64) *Memory {
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the value for key and marks it recently used.
func (c *Memory) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.lru.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*memoryEntry).value, true
}

// Put stores value under key, evicting least recently used entries to make
// room.
func (c *Memory) Put(key string, value []byte) error {
	n := int64(len(value))
	if n > c.capacity {
		return ErrItemTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
	for c.size+n > c.capacity && c.lru.Len() > 0 {
		c.remove(c.lru.Back())
		c.stats.Evictions++
	}

	c.items[key] = c.lru.PushFront(&memoryEntry{key: key, value: value})
	c.size += n
	return nil
}

// Stats returns a snapshot of the counters.
func (c *Memory) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Capacity = c.capacity
	s.Size = c.size
	s.Items = c.lru.Len()
	return s
}

func (c *Memory) remove(elem *list.Element) {
	entry := c.lru.Remove(elem).(*memoryEntry)
	delete(c.items, entry.key)
	c.size -= int64(len(entry.value))
}
