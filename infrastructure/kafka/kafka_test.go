package kafka

import (
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestPublisher_Publish(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a producer expecting the exact envelope
	producer := mocks.NewSyncProducer(t, NewConfig("test"))
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != "ZW52ZWxvcGU=" {
			return fmt.Errorf("unexpected value %q", val)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	publisher := NewPublisherFromProducer(log, producer)

	// When publishing twice
	err1 := publisher.Publish(context.Background(), "user_messages", "ZW52ZWxvcGU=")
	err2 := publisher.Publish(context.Background(), "user_messages", "ZW52ZWxvcGU=")

	// Then the first succeeds and the broker failure is surfaced
	req.NoError(err1)
	req.ErrorIs(err2, sarama.ErrOutOfBrokers)
	req.NoError(publisher.Close())
}

func TestPublisher_CanceledContext(t *testing.T) {
	req := require.New(t)
	producer := mocks.NewSyncProducer(t, NewConfig("test"))
	publisher := NewPublisherFromProducer(logs.GetLoggerFromLevel(slog.LevelDebug), producer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.ErrorIs(publisher.Publish(ctx, "user_messages", "x"), context.Canceled)
	req.NoError(publisher.Close())
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestGroupHandler_ConsumeClaim(t *testing.T) {
	req := require.New(t)

	// Given a claim with three messages, the second failing in the handler
	var handled []string
	handler := &groupHandler{
		log: logs.GetLoggerFromLevel(slog.LevelDebug),
		handle: func(_ context.Context, value string) error {
			handled = append(handled, value)
			if value == "b" {
				return fmt.Errorf("boom")
			}
			return nil
		},
	}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	for i, v := range []string{"a", "b", "c"} {
		claim.messages <- &sarama.ConsumerMessage{Topic: "bot_responses", Offset: int64(i), Value: []byte(v)}
	}
	close(claim.messages)
	session := &fakeSession{ctx: context.Background()}

	// When the claim is consumed
	err := handler.ConsumeClaim(session, claim)

	// Then every message is handled and marked, failures included
	req.NoError(err)
	req.Equal([]string{"a", "b", "c"}, handled)
	req.Equal([]int64{0, 1, 2}, session.marked)
}

func TestGroupHandler_StopsOnSessionEnd(t *testing.T) {
	req := require.New(t)
	handler := &groupHandler{
		log:    logs.GetLoggerFromLevel(slog.LevelDebug),
		handle: func(context.Context, string) error { return nil },
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.ConsumeClaim(&fakeSession{ctx: ctx}, &fakeClaim{messages: make(chan *sarama.ConsumerMessage)})

	req.NoError(err)
}

type fakeGroup struct {
	sarama.ConsumerGroup
	consume func(ctx context.Context) error
	errs    chan error
	closed  bool
}

func (g *fakeGroup) Consume(ctx context.Context, _ []string, _ sarama.ConsumerGroupHandler) error {
	return g.consume(ctx)
}

func (g *fakeGroup) Errors() <-chan error { return g.errs }

func (g *fakeGroup) Close() error {
	g.closed = true
	close(g.errs)
	return nil
}

func newTestSubscriber(group *fakeGroup) *Subscriber {
	s := NewSubscriber(logs.GetLoggerFromLevel(slog.LevelDebug), []string{"localhost:9092"}, NewConfig("test"))
	s.newGroup = func([]string, string, *sarama.Config) (sarama.ConsumerGroup, error) { return group, nil }
	return s
}

func TestSubscriber_ReturnsNilOnCancel(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	// Given a group whose sessions last until cancellation
	group := &fakeGroup{errs: make(chan error), consume: func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}}
	done := make(chan error, 1)
	go func() {
		done <- newTestSubscriber(group).Subscribe(ctx, "user_messages", "ai-worker-group", nil)
	}()

	// When the context is canceled
	cancel()

	// Then Subscribe returns cleanly and closes the group
	select {
	case err := <-done:
		req.NoError(err)
		req.True(group.closed)
	case <-time.After(time.Second):
		req.Fail("subscriber did not return")
	}
}

func TestSubscriber_ClosedGroup(t *testing.T) {
	req := require.New(t)
	group := &fakeGroup{errs: make(chan error), consume: func(context.Context) error {
		return sarama.ErrClosedConsumerGroup
	}}

	err := newTestSubscriber(group).Subscribe(context.Background(), "user_messages", "ai-worker-group", nil)

	req.ErrorIs(err, errors.ErrBusClosed)
}

func TestSubscriber_RejoinsAfterRebalance(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given a group whose first two sessions end with a rebalance
	calls := 0
	group := &fakeGroup{errs: make(chan error), consume: func(context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return nil
	}}

	// When subscribing
	err := newTestSubscriber(group).Subscribe(ctx, "user_messages", "ai-worker-group", nil)

	// Then Consume was re-entered until cancellation
	req.NoError(err)
	req.Equal(3, calls)
}
