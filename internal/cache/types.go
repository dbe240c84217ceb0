package cache

import "errors"

// ErrItemTooLarge is returned when an item exceeds the cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// Stats holds cache counters.
type Stats struct {
	Capacity  int64 // maximum size in bytes
	Size      int64 // current size in bytes
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
