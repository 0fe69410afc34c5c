// Package bus provides an in-process topic bus with consumer groups, used when
// gateway and worker run in the same process.
package bus

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// MemoryBus keeps an append-only log per topic. Each consumer group owns one
// cursor, so subscribers of the same group compete for entries while distinct
// groups each see every entry. A new group starts at the oldest retained entry.
// Entries consumed by every known group are released.
type MemoryBus struct {
	mu     sync.Mutex
	log    *slog.Logger
	topics map[string]*topic
	done   chan struct{}
	closed atomic.Bool
}

type topic struct {
	base    int // absolute offset of entries[0]
	entries []string
	cursors map[string]int // group -> next absolute offset
	notify  chan struct{}  // closed on every publish
}

var (
	_ contract.Publisher  = (*MemoryBus)(nil)
	_ contract.Subscriber = (*MemoryBus)(nil)
)

func NewMemoryBus(log *slog.Logger) *MemoryBus {
	return &MemoryBus{
		log:    log,
		topics: make(map[string]*topic),
		done:   make(chan struct{}),
	}
}

func (b *MemoryBus) topic(name string) *topic {
	t, ok := b.topics[name]
	if !ok {
		t = &topic{cursors: make(map[string]int), notify: make(chan struct{})}
		b.topics[name] = t
	}
	return t
}

func (b *MemoryBus) Publish(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return errors.ErrBusClosed
	}
	t := b.topic(name)
	t.entries = append(t.entries, value)
	close(t.notify)
	t.notify = make(chan struct{})
	return nil
}

// Subscribe blocks, handing entries to handle one at a time. It returns nil
// when ctx is canceled and ErrBusClosed when the bus is closed.
// Handler errors are logged and consumption goes on.
func (b *MemoryBus) Subscribe(ctx context.Context, name, group string, handle contract.Handler) error {
	for {
		b.mu.Lock()
		if b.closed.Load() {
			b.mu.Unlock()
			return errors.ErrBusClosed
		}
		t := b.topic(name)
		next, ok := t.cursors[group]
		if !ok || next < t.base {
			next = t.base
		}

		if idx := next - t.base; idx < len(t.entries) {
			value := t.entries[idx]
			t.cursors[group] = next + 1
			t.compact()
			b.mu.Unlock()

			if err := handle(ctx, value); err != nil {
				b.log.Debug("Entry handling failed", "topic", name, "group", group, "error", err)
			}
			continue
		}
		t.cursors[group] = next
		wait := t.notify
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return errors.ErrBusClosed
		case <-wait:
		}
	}
}

// compact drops the entries every group has consumed.
func (t *topic) compact() {
	lowest := t.base + len(t.entries)
	for _, c := range t.cursors {
		if c < lowest {
			lowest = c
		}
	}
	if drop := lowest - t.base; drop > 0 {
		t.entries = append([]string(nil), t.entries[drop:]...)
		t.base = lowest
	}
}

// Pending returns how many entries of topic the group has not consumed yet.
func (b *MemoryBus) Pending(name, group string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topic(name)
	next, ok := t.cursors[group]
	if !ok || next < t.base {
		next = t.base
	}
	return t.base + len(t.entries) - next
}

func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
}
