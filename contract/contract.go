//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is one live bidirectional text channel bound to a room.
// Accept completes the transport handshake and must be called once before Send/Receive.
type Connection interface {
	Accept(ctx context.Context) error
	Send(ctx context.Context, text string) error
	Receive(ctx context.Context) (string, error)
	Close() error
}

type IRegistry interface {
	Connect(ctx context.Context, roomID domain.RoomID, conn Connection) error
	Disconnect(roomID domain.RoomID)
	Leave(roomID domain.RoomID, conn Connection)
	Send(ctx context.Context, roomID domain.RoomID, text string) error
}

type IOrchestrator interface {
	Join(ctx context.Context, roomID domain.RoomID, conn Connection) error
	Leave(roomID domain.RoomID, conn Connection)
	Relay(ctx context.Context, roomID domain.RoomID, text string) error
	Start(ctx context.Context) error
	Stop()
}

// Handler processes one bus entry. A returned error is logged by the
// transport and never stops consumption.
type Handler func(ctx context.Context, value string) error

type Publisher interface {
	Publish(ctx context.Context, topic, value string) error
}

// Subscriber blocks until ctx is canceled or the transport fails.
// Consumers sharing a group compete for entries.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, group string, handle Handler) error
}

type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// Assistant turns a user message into the bot's answer.
type Assistant interface {
	Reply(ctx context.Context, text string) (string, error)
}

type PropertyLookup interface {
	Describe(ctx context.Context, text string) (string, error)
}

// ImageResolver returns errors.ErrImageNotFound when ref doesn't resolve.
type ImageResolver interface {
	Open(ctx context.Context, ref string) (domain.ImageSource, error)
}

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// TranslatorFactory returns errors.ErrUnsupportedPair when no handle can serve the pair.
type TranslatorFactory interface {
	New(ctx context.Context, pair domain.LanguagePair) (Translator, error)
}

// DedupeStore reports true the first time a key is claimed. Release gives a
// claimed key back after a failed attempt so the redelivery is processed.
type DedupeStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
