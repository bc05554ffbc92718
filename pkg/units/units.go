// Package units holds the 1024-based size multipliers used to bound the
// in-memory and on-disk caches.
package units

// Binary size multipliers.
const (
	KiB int64 = 1 << (10 * (iota + 1))
	MiB
	GiB
)
