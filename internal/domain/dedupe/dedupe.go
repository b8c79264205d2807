// Package dedupe tracks idempotency keys of prediction submissions so a
// retried request is acknowledged without storing a second prediction.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Deduper records seen submission keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the submission can be retried, used when a
	// recorded submission then failed to persist.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key  string
	seen time.Time
}

// inMemoryDeduper keeps keys in insertion order. When full, the oldest key
// is evicted; keys older than ttl are treated as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // front = newest
	maxSize int        // 0 or negative = unbounded
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10_000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.index = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

// Key scopes an idempotency key to its owner.
func Key(owner, idempotencyKey string) string {
	return owner + "\x00" + idempotencyKey
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if _, ok := d.index[key]; ok {
		return true
	}

	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Back())
	}
	d.index[key] = d.order.PushFront(&entry{key: key, seen: now})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.index[key]; ok {
		d.remove(el)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}

// expire drops keys older than ttl from the back of the list.
// Must be called with d.mu held.
func (d *inMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for el := d.order.Back(); el != nil; el = d.order.Back() {
		if now.Sub(el.Value.(*entry).seen) < d.ttl {
			return
		}
		d.remove(el)
	}
}

func (d *inMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.index, el.Value.(*entry).key)
	d.order.Remove(el)
}
