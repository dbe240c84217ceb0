package cache

import "github.com/charmbracelet/log"

// Tiered checks memory first and falls back to disk. Disk hits are promoted
// to memory and writes go to both.
type Tiered struct {
	memory *Memory
	disk   *Disk
}

// NewTiered combines a memory and a disk cache. disk may be nil.
func NewTiered(memory *Memory, disk *Disk) *Tiered {
	return &Tiered{memory: memory, disk: disk}
}

// Get returns the value from the fastest tier holding key.
func (t *Tiered) Get(key string) ([]byte, bool) {
	if v, ok := t.memory.Get(key); ok {
		return v, true
	}
	if t.disk == nil {
		return nil, false
	}
	v, ok := t.disk.Get(key)
	if !ok {
		return nil, false
	}
	if err := t.memory.Put(key, v); err != nil {
		log.Debug("not promoting cache entry", "error", err)
	}
	return v, true
}

// Put stores value in both tiers. A value too large for memory is still
// written to disk.
func (t *Tiered) Put(key string, value []byte) error {
	memErr := t.memory.Put(key, value)
	if t.disk == nil {
		return memErr
	}
	return t.disk.Put(key, value)
}

// Stats returns the counters of both tiers. disk is zero without a disk
// tier.
func (t *Tiered) Stats() (memory, disk Stats) {
	memory = t.memory.Stats()
	if t.disk != nil {
		disk = t.disk.Stats()
	}
	return memory, disk
}

// Close logs the cache counters and closes the disk tier.
func (t *Tiered) Close() error {
	mem, disk := t.Stats()
	log.Debug("audio cache stats",
		"memory_items", mem.Items, "memory_bytes", mem.Size, "memory_hit_rate", mem.HitRate(),
		"disk_items", disk.Items, "disk_bytes", disk.Size, "disk_hit_rate", disk.HitRate(),
		"evictions", mem.Evictions+disk.Evictions,
	)
	if t.disk == nil {
		return nil
	}
	return t.disk.Close()
}
