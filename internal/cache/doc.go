// Package cache stores synthesized announcement audio so repeated phrases
// skip the speech engine: an in-memory LRU, a zstd-compressed disk cache
// that survives restarts, and a tiered cache combining the two.
package cache
