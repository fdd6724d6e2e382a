// Package dedupe tracks recently seen feed deliveries so a redelivered
// message is acknowledged without being applied twice.
package dedupe

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultMaxSize = 4096

// Deduper records seen message keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the message can be submitted again. Used when a
	// message was recorded but could not be queued.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// slot is one position of the eviction ring.
type slot struct {
	hash uint64
	seq  uint64
}

// ringDeduper keeps at most maxSize keys and evicts the oldest first. Keys are
// stored as xxhash digests, so payloads can be used as keys without keeping
// them alive.
type ringDeduper struct {
	mu      sync.Mutex
	maxSize int
	seen    map[uint64]uint64 // hash -> seq of the slot that recorded it
	ring    []slot
	next    int
	seq     uint64
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[uint64]uint64, d.maxSize)
	d.ring = make([]slot, d.maxSize)
	return d
}

// SeenAndRecord implements Deduper.
func (d *ringDeduper) SeenAndRecord(_ context.Context, key string) bool {
	h := xxhash.Sum64String(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[h]; ok {
		return true
	}

	// Overwriting a slot evicts its key unless it was unrecorded or
	// re-recorded since.
	old := d.ring[d.next]
	if old.seq != 0 && d.seen[old.hash] == old.seq {
		delete(d.seen, old.hash)
	}

	d.seq++
	d.ring[d.next] = slot{hash: h, seq: d.seq}
	d.seen[h] = d.seq
	d.next = (d.next + 1) % len(d.ring)
	return false
}

// Unrecord implements Deduper.
func (d *ringDeduper) Unrecord(_ context.Context, key string) {
	h := xxhash.Sum64String(key)

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, h)
}

// Size returns the number of keys currently remembered.
func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
