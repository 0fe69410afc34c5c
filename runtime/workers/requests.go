package workers

import (
	"chat-relay/contract"
	"chat-relay/envelope"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
)

// RequestWorker is the worker role: it consumes encrypted user messages,
// answers them and publishes the encrypted answer for the gateways.
type RequestWorker struct {
	log            *slog.Logger
	subscriber     contract.Subscriber
	publisher      contract.Publisher
	codec          *envelope.Codec
	assistant      contract.Assistant
	dedupe         contract.DedupeStore
	requestsTopic  string
	responsesTopic string
	group          string
}

var _ contract.Worker = (*RequestWorker)(nil)

// NewRequestWorker builds the worker. dedupe may be nil.
func NewRequestWorker(log *slog.Logger, subscriber contract.Subscriber, publisher contract.Publisher,
	codec *envelope.Codec, assistant contract.Assistant, dedupe contract.DedupeStore,
	requestsTopic, responsesTopic, group string) *RequestWorker {
	return &RequestWorker{
		log:            log,
		subscriber:     subscriber,
		publisher:      publisher,
		codec:          codec,
		assistant:      assistant,
		dedupe:         dedupe,
		requestsTopic:  requestsTopic,
		responsesTopic: responsesTopic,
		group:          group,
	}
}

func (w *RequestWorker) Run(ctx context.Context) error {
	w.log.Info("Consuming requests", "topic", w.requestsTopic, "group", w.group)
	err := w.subscriber.Subscribe(ctx, w.requestsTopic, w.group, w.Handle)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return fmt.Errorf("%w: subscription to %s ended", errors.ErrBusClosed, w.requestsTopic)
	}
	return err
}

// Handle processes one entry. Every failure drops this entry only, and gives
// its dedupe claim back so that a redelivery is answered.
func (w *RequestWorker) Handle(ctx context.Context, value string) (err error) {
	var held string
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
			w.log.Error("Request handling panicked", "panic", r)
		}
		if err != nil && held != "" {
			release(ctx, w.log, w.dedupe, held)
		}
	}()

	request, err := w.codec.Open(value)
	if err != nil {
		w.log.Warn("Dropping undecodable request", "error", err)
		return err
	}

	process, owned := claim(ctx, w.log, w.dedupe, request.ID)
	if !process {
		w.log.Debug("Skipping redelivered request", "id", request.ID, "room", request.RoomID)
		return nil
	}
	if owned {
		held = request.ID
	}
	w.log.Debug("Received message", "room", request.RoomID)

	answer, err := w.assistant.Reply(ctx, request.Text)
	if err != nil {
		w.log.Error("Responder failed", "room", request.RoomID, "error", err)
		return err
	}

	sealed, err := w.codec.Seal(request.Reply(answer))
	if err != nil {
		w.log.Error("Cannot seal response", "room", request.RoomID, "error", err)
		return err
	}
	if err = w.publisher.Publish(ctx, w.responsesTopic, sealed); err != nil {
		w.log.Error("Cannot publish response", "room", request.RoomID, "error", err)
		return err
	}
	w.log.Debug("Generated response", "room", request.RoomID)
	return nil
}

// claim reports whether the message should be processed and whether this
// call now holds its key. Entries without id and dedupe failures are processed,
// so the store can only ever suppress duplicates.
func claim(ctx context.Context, log *slog.Logger, dedupe contract.DedupeStore, id string) (process, owned bool) {
	if dedupe == nil || id == "" {
		return true, false
	}
	first, err := dedupe.Claim(ctx, id)
	if err != nil {
		log.Warn("Dedupe store unavailable, processing anyway", "id", id, "error", err)
		return true, false
	}
	return first, first
}

// release runs even when ctx is already canceled, which is the usual reason
// an attempt failed.
func release(ctx context.Context, log *slog.Logger, dedupe contract.DedupeStore, id string) {
	if err := dedupe.Release(context.WithoutCancel(ctx), id); err != nil {
		log.Warn("Cannot release dedupe key, redelivery will be skipped", "id", id, "error", err)
	}
}
