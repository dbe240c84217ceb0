package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	fileExt = ".cache"

	// Values at or below this size are stored raw.
	compressThreshold = 1024

	flagRaw  byte = 0
	flagZstd byte = 1
)

// Disk stores one file per key under a directory. Values above 1 KiB are
// zstd-compressed when that makes them smaller. File modification times
// track recency, so the LRU order survives restarts.
type Disk struct {
	mu       sync.Mutex
	dir      string
	capacity int64
	size     int64
	index    map[string]*diskEntry // by file name
	stats    Stats

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *log.Logger
}

type diskEntry struct {
	name       string
	size       int64 // bytes on disk
	lastAccess time.Time
}

// NewDisk opens or creates a disk cache in dir holding up to capacity bytes
// on disk. Existing entries are indexed from the directory.
func NewDisk(dir string, capacity int64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	d := &Disk{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		encoder:  encoder,
		decoder:  decoder,
		logger:   log.WithPrefix("cache"),
	}
	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Disk) load() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		d.index[e.Name()] = &diskEntry{
			name:       e.Name(),
			size:       info.Size(),
			lastAccess: info.ModTime(),
		}
		d.size += info.Size()
	}
	for d.size > d.capacity && len(d.index) > 0 {
		d.evictOldest()
	}
	return nil
}

// Get reads and decompresses the value for key. Unreadable entries are
// dropped and reported as misses.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := fileName(key)
	entry, ok := d.index[name]
	if !ok {
		d.stats.Misses++
		return nil, false
	}

	path := filepath.Join(d.dir, name)
	value, err := d.read(path)
	if err != nil {
		d.logger.Warn("dropping unreadable cache entry", "file", name, "error", err)
		d.removeEntry(entry)
		d.stats.Misses++
		return nil, false
	}

	now := time.Now()
	entry.lastAccess = now
	_ = os.Chtimes(path, now, now)
	d.stats.Hits++
	return value, true
}

func (d *Disk) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty cache file")
	}
	switch data[0] {
	case flagRaw:
		return data[1:], nil
	case flagZstd:
		return d.decoder.DecodeAll(data[1:], nil)
	default:
		return nil, fmt.Errorf("unknown cache flag %d", data[0])
	}
}

// Put writes value under key, evicting the least recently used files to
// stay within capacity.
func (d *Disk) Put(key string, value []byte) error {
	data := d.encode(value)
	n := int64(len(data))
	if n > d.capacity {
		return ErrItemTooLarge
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	name := fileName(key)
	if old, ok := d.index[name]; ok {
		d.size -= old.size
		delete(d.index, name)
	}
	for d.size+n > d.capacity && len(d.index) > 0 {
		d.evictOldest()
	}

	if err := writeFile(filepath.Join(d.dir, name), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	d.index[name] = &diskEntry{name: name, size: n, lastAccess: time.Now()}
	d.size += n
	return nil
}

func (d *Disk) encode(value []byte) []byte {
	if len(value) > compressThreshold {
		compressed := d.encoder.EncodeAll(value, make([]byte, 1, len(value)/2+1))
		if len(compressed) < len(value)+1 {
			compressed[0] = flagZstd
			return compressed
		}
	}
	out := make([]byte, 1+len(value))
	out[0] = flagRaw
	copy(out[1:], value)
	return out
}

// Stats returns a snapshot of the counters.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.Capacity = d.capacity
	s.Size = d.size
	s.Items = len(d.index)
	return s
}

// Close releases the zstd encoder and decoder.
func (d *Disk) Close() error {
	d.decoder.Close()
	return d.encoder.Close()
}

func (d *Disk) evictOldest() {
	var oldest *diskEntry
	for _, e := range d.index {
		if oldest == nil || e.lastAccess.Before(oldest.lastAccess) {
			oldest = e
		}
	}
	if oldest != nil {
		d.removeEntry(oldest)
		d.stats.Evictions++
	}
}

func (d *Disk) removeEntry(e *diskEntry) {
	if err := os.Remove(filepath.Join(d.dir, e.name)); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove cache file", "file", e.name, "error", err)
	}
	d.size -= e.size
	delete(d.index, e.name)
}

func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16]) + fileExt
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
