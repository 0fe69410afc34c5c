package bus

import (
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newBus() *MemoryBus {
	return NewMemoryBus(logs.GetLoggerFromLevel(slog.LevelDebug))
}

// collector records every value handed to it.
type collector struct {
	mu     sync.Mutex
	values []string
}

func (c *collector) handle(_ context.Context, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, value)
	return nil
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.values...)
}

func TestMemoryBus_DeliversInOrderFromOldest(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given entries published before anyone subscribed
	b := newBus()
	req.NoError(b.Publish(ctx, "user_messages", "a"))
	req.NoError(b.Publish(ctx, "user_messages", "b"))

	// When a group subscribes and more entries arrive
	c := &collector{}
	go func() { _ = b.Subscribe(ctx, "user_messages", "ai-worker-group", c.handle) }()
	req.NoError(b.Publish(ctx, "user_messages", "c"))

	// Then the group sees everything in publication order
	req.Eventually(func() bool { return len(c.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	req.Equal([]string{"a", "b", "c"}, c.snapshot())
	req.Zero(b.Pending("user_messages", "ai-worker-group"))
}

func TestMemoryBus_GroupMembersCompete(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given two subscribers sharing a group
	b := newBus()
	first, second := &collector{}, &collector{}
	go func() { _ = b.Subscribe(ctx, "user_messages", "ai-worker-group", first.handle) }()
	go func() { _ = b.Subscribe(ctx, "user_messages", "ai-worker-group", second.handle) }()

	// When 100 entries are published
	for i := range 100 {
		req.NoError(b.Publish(ctx, "user_messages", fmt.Sprintf("m%d", i)))
	}

	// Then each entry is handled exactly once across the group
	req.Eventually(func() bool {
		return len(first.snapshot())+len(second.snapshot()) == 100
	}, time.Second, 5*time.Millisecond)
	seen := make(map[string]int)
	for _, v := range append(first.snapshot(), second.snapshot()...) {
		seen[v]++
	}
	req.Len(seen, 100)
	for _, n := range seen {
		req.Equal(1, n)
	}
}

func TestMemoryBus_GroupsFanOut(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given two distinct groups on the same topic
	b := newBus()
	gw1, gw2 := &collector{}, &collector{}
	go func() { _ = b.Subscribe(ctx, "bot_responses", "gateway-a", gw1.handle) }()
	go func() { _ = b.Subscribe(ctx, "bot_responses", "gateway-b", gw2.handle) }()

	// When one entry is published
	req.NoError(b.Publish(ctx, "bot_responses", "hi"))

	// Then both groups receive it
	req.Eventually(func() bool {
		return len(gw1.snapshot()) == 1 && len(gw2.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryBus_HandlerErrorDoesNotStopConsumption(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given a handler failing on the first entry
	b := newBus()
	c := &collector{}
	handle := func(ctx context.Context, value string) error {
		if value == "bad" {
			return fmt.Errorf("boom")
		}
		return c.handle(ctx, value)
	}
	go func() { _ = b.Subscribe(ctx, "t", "g", handle) }()

	// When a bad then a good entry are published
	req.NoError(b.Publish(ctx, "t", "bad"))
	req.NoError(b.Publish(ctx, "t", "good"))

	// Then the good one is still consumed
	req.Eventually(func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	req.Equal([]string{"good"}, c.snapshot())
}

func TestMemoryBus_CancelReturnsNil(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	// Given a blocked subscriber
	b := newBus()
	done := make(chan error, 1)
	go func() { done <- b.Subscribe(ctx, "t", "g", (&collector{}).handle) }()

	// When its context is canceled
	cancel()

	// Then Subscribe returns without error
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("subscriber did not return")
	}
}

func TestMemoryBus_Close(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	// Given a blocked subscriber
	b := newBus()
	done := make(chan error, 1)
	go func() { done <- b.Subscribe(ctx, "t", "g", (&collector{}).handle) }()

	// When the bus is closed twice
	b.Close()
	b.Close()

	// Then the subscriber ends with ErrBusClosed and publishing is refused
	select {
	case err := <-done:
		req.ErrorIs(err, errors.ErrBusClosed)
	case <-time.After(time.Second):
		req.Fail("subscriber did not return")
	}
	req.ErrorIs(b.Publish(ctx, "t", "x"), errors.ErrBusClosed)
}

func TestMemoryBus_CompactsConsumedEntries(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given a single group that consumed everything
	b := newBus()
	c := &collector{}
	go func() { _ = b.Subscribe(ctx, "t", "g", c.handle) }()
	for i := range 10 {
		req.NoError(b.Publish(ctx, "t", fmt.Sprintf("%d", i)))
	}
	req.Eventually(func() bool { return len(c.snapshot()) == 10 }, time.Second, 5*time.Millisecond)

	// Then the retained log is released
	req.Eventually(func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.topics["t"].entries) == 0
	}, time.Second, 5*time.Millisecond)
}
