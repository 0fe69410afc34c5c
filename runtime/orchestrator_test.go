package runtime

import (
	"chat-relay/bus"
	"chat-relay/domain"
	"chat-relay/envelope"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/runtime/workers"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestCodec(t *testing.T) *envelope.Codec {
	codec, err := envelope.NewCodecFromHex(testKey)
	require.NoError(t, err)
	return codec
}

func newTestOrchestrator(t *testing.T, b *bus.MemoryBus) (*Orchestrator, *Registry) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry(log)
	supervisor := workers.NewSupervisor(log, 10*time.Millisecond)
	return NewOrchestrator(log, supervisor, registry, newTestCodec(t), b, b, DefaultTopics()), registry
}

func TestOrchestrator_HelloRoundTrip(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given both roles in one process over the memory bus
	b := bus.NewMemoryBus(logs.GetLoggerFromLevel(slog.LevelDebug))
	defer b.Close()
	assistant := mocks.NewMockAssistant(ctrl)
	assistant.EXPECT().Reply(gomock.Any(), "Hello").Return("Hi there", nil).Times(1)
	orchestrator, _ := newTestOrchestrator(t, b)
	orchestrator.EnableGateway(nil).EnableWorker(assistant, nil)

	conn := &fakeConn{}
	req.NoError(orchestrator.Join(ctx, "1", conn))
	done := make(chan error, 1)
	go func() { done <- orchestrator.Start(ctx) }()

	// When a user of room 1 says Hello
	req.NoError(orchestrator.Relay(ctx, "1", "Hello"))

	// Then the room receives the worker's answer
	req.Eventually(func() bool { return len(conn.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	req.Equal([]string{"Hi there"}, conn.messages())

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("orchestrator did not stop")
	}
}

func TestOrchestrator_AnswerForAbsentRoomIsDropped(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given a room 2 with nobody connected and a room 1 with a client
	b := bus.NewMemoryBus(logs.GetLoggerFromLevel(slog.LevelDebug))
	defer b.Close()
	assistant := mocks.NewMockAssistant(ctrl)
	assistant.EXPECT().Reply(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, text string) (string, error) { return strings.ToUpper(text), nil }).Times(2)
	orchestrator, _ := newTestOrchestrator(t, b)
	orchestrator.EnableGateway(nil).EnableWorker(assistant, nil)
	conn := &fakeConn{}
	req.NoError(orchestrator.Join(ctx, "1", conn))
	go func() { _ = orchestrator.Start(ctx) }()

	// When both rooms relay a message
	req.NoError(orchestrator.Relay(ctx, "2", "lost"))
	req.NoError(orchestrator.Relay(ctx, "1", "kept"))

	// Then only room 1's answer is delivered
	req.Eventually(func() bool { return len(conn.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	req.Equal([]string{"KEPT"}, conn.messages())
}

func TestOrchestrator_Relay_SealsPayload(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	codec := newTestCodec(t)

	// Given a publisher capturing envelopes
	var sealed string
	publisher := mocks.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), DefaultRequestsTopic, gomock.Any()).DoAndReturn(
		func(_ context.Context, _, value string) error {
			sealed = value
			return nil
		}).Times(1)
	orchestrator := NewOrchestrator(log, mocks.NewMockISupervisor(ctrl), mocks.NewMockIRegistry(ctrl),
		codec, publisher, mocks.NewMockSubscriber(ctrl), DefaultTopics())

	// When relaying
	req.NoError(orchestrator.Relay(context.Background(), "42", "Hello"))

	// Then the envelope opens to the room, the text and an idempotency key
	payload, err := codec.Open(sealed)
	req.NoError(err)
	req.Equal(domain.RoomID("42"), payload.RoomID)
	req.Equal("Hello", payload.Text)
	req.NotEmpty(payload.ID)
}

func TestOrchestrator_Relay_RejectsMissingRoom(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	orchestrator := NewOrchestrator(logs.GetLoggerFromLevel(slog.LevelDebug), mocks.NewMockISupervisor(ctrl),
		mocks.NewMockIRegistry(ctrl), newTestCodec(t), mocks.NewMockPublisher(ctrl), mocks.NewMockSubscriber(ctrl),
		DefaultTopics())

	req.ErrorIs(orchestrator.Relay(context.Background(), " ", "Hello"), errors.ErrProtocol)
	req.ErrorIs(orchestrator.Join(context.Background(), "", &fakeConn{}), errors.ErrProtocol)
}

func TestOrchestrator_Start_WithoutRole(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	orchestrator := NewOrchestrator(logs.GetLoggerFromLevel(slog.LevelDebug), mocks.NewMockISupervisor(ctrl),
		mocks.NewMockIRegistry(ctrl), newTestCodec(t), mocks.NewMockPublisher(ctrl), mocks.NewMockSubscriber(ctrl),
		DefaultTopics())

	req.ErrorIs(orchestrator.Start(context.Background()), errors.ErrConfiguration)
}

func TestOrchestrator_Start_RegistersRoles(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	// Given a supervisor expecting both role workers
	supervisor := mocks.NewMockISupervisor(ctrl)
	supervisor.EXPECT().Add(gomock.Any(), gomock.Any()).Return(supervisor).Times(1)
	supervisor.EXPECT().Run(gomock.Any()).Times(1)
	orchestrator := NewOrchestrator(logs.GetLoggerFromLevel(slog.LevelDebug), supervisor,
		mocks.NewMockIRegistry(ctrl), newTestCodec(t), mocks.NewMockPublisher(ctrl), mocks.NewMockSubscriber(ctrl),
		DefaultTopics())
	orchestrator.EnableGateway(nil).EnableWorker(mocks.NewMockAssistant(ctrl), nil)

	// Then starting runs the supervisor once
	req.NoError(orchestrator.Start(context.Background()))
}
