package workers

import (
	"chat-relay/contract"
	"chat-relay/envelope"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ResponseWorker is the gateway's consumption loop: it decrypts answers and
// delivers them to the room's live connection.
type ResponseWorker struct {
	log        *slog.Logger
	subscriber contract.Subscriber
	registry   contract.IRegistry
	codec      *envelope.Codec
	dedupe     contract.DedupeStore
	topic      string
	group      string
}

var _ contract.Worker = (*ResponseWorker)(nil)

func NewResponseWorker(log *slog.Logger, subscriber contract.Subscriber, registry contract.IRegistry,
	codec *envelope.Codec, dedupe contract.DedupeStore, topic, group string) *ResponseWorker {
	return &ResponseWorker{
		log:        log,
		subscriber: subscriber,
		registry:   registry,
		codec:      codec,
		dedupe:     dedupe,
		topic:      topic,
		group:      group,
	}
}

func (w *ResponseWorker) Run(ctx context.Context) error {
	w.log.Info("Consuming responses", "topic", w.topic, "group", w.group)
	err := w.subscriber.Subscribe(ctx, w.topic, w.group, w.Handle)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return fmt.Errorf("%w: subscription to %s ended", errors.ErrBusClosed, w.topic)
	}
	return err
}

// Handle delivers one response. Entries without text are dropped. A failed
// delivery releases the dedupe claim.
func (w *ResponseWorker) Handle(ctx context.Context, value string) (err error) {
	var held string
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
			w.log.Error("Response handling panicked", "panic", r)
		}
		if err != nil && held != "" {
			release(ctx, w.log, w.dedupe, held)
		}
	}()

	response, err := w.codec.Open(value)
	if err != nil {
		w.log.Warn("Failed to decrypt or process message", "error", err)
		return err
	}
	if strings.TrimSpace(response.Text) == "" {
		w.log.Debug("Dropping empty response", "room", response.RoomID)
		return nil
	}
	process, owned := claim(ctx, w.log, w.dedupe, response.ID)
	if !process {
		w.log.Debug("Skipping redelivered response", "id", response.ID, "room", response.RoomID)
		return nil
	}
	if owned {
		held = response.ID
	}

	if err = w.registry.Send(ctx, response.RoomID, response.Text); err != nil {
		w.log.Warn("Delivery failed, connection dropped", "room", response.RoomID, "error", err)
		return err
	}
	return nil
}
