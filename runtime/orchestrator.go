// Package runtime wires live connections to the bus.
// It orchestrates the relay without containing business logic.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/envelope"
	"chat-relay/errors"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const (
	DefaultRequestsTopic  = "user_messages"
	DefaultResponsesTopic = "bot_responses"
	DefaultWorkerGroup    = "ai-worker-group"
	DefaultGatewayGroup   = "gateway-group"
)

// Topics names both directions of the relay and the consumer group of each role.
type Topics struct {
	Requests     string
	Responses    string
	WorkerGroup  string
	GatewayGroup string
}

func DefaultTopics() Topics {
	return Topics{
		Requests:     DefaultRequestsTopic,
		Responses:    DefaultResponsesTopic,
		WorkerGroup:  DefaultWorkerGroup,
		GatewayGroup: DefaultGatewayGroup,
	}
}

// Orchestrator hosts the gateway role, the worker role, or both.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	registry   contract.IRegistry
	codec      *envelope.Codec
	publisher  contract.Publisher
	subscriber contract.Subscriber
	topics     Topics

	gateway       bool
	gatewayDedupe contract.DedupeStore

	assistant    contract.Assistant
	workerDedupe contract.DedupeStore
}

var _ contract.IOrchestrator = (*Orchestrator)(nil)

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry contract.IRegistry,
	codec *envelope.Codec, publisher contract.Publisher, subscriber contract.Subscriber, topics Topics) *Orchestrator {
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		registry:   registry,
		codec:      codec,
		publisher:  publisher,
		subscriber: subscriber,
		topics:     topics,
	}
}

// EnableGateway makes Start consume responses and deliver them to rooms.
// dedupe may be nil.
func (o *Orchestrator) EnableGateway(dedupe contract.DedupeStore) *Orchestrator {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gateway = true
	o.gatewayDedupe = dedupe
	return o
}

// EnableWorker makes Start consume requests and answer them with assistant.
// dedupe may be nil.
func (o *Orchestrator) EnableWorker(assistant contract.Assistant, dedupe contract.DedupeStore) *Orchestrator {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.assistant = assistant
	o.workerDedupe = dedupe
	return o
}

func (o *Orchestrator) Join(ctx context.Context, roomID domain.RoomID, conn contract.Connection) error {
	if roomID.IsZero() {
		return fmt.Errorf("%w: room_id is required", errors.ErrProtocol)
	}
	if err := o.registry.Connect(ctx, roomID, conn); err != nil {
		return err
	}
	o.log.Info("Client connected", "room", roomID)
	return nil
}

func (o *Orchestrator) Leave(roomID domain.RoomID, conn contract.Connection) {
	o.registry.Leave(roomID, conn)
	o.log.Info("Client disconnected", "room", roomID)
}

// Relay seals a user message for roomID and publishes it on the requests topic.
func (o *Orchestrator) Relay(ctx context.Context, roomID domain.RoomID, text string) error {
	sealed, err := o.codec.Seal(domain.NewPayload(roomID, text))
	if err != nil {
		return err
	}
	if err = o.publisher.Publish(ctx, o.topics.Requests, sealed); err != nil {
		o.log.Error("Cannot publish request", "room", roomID, "error", err)
		return err
	}
	o.log.Debug("Request relayed", "room", roomID)
	return nil
}

// Start registers the workers of every enabled role and blocks until the
// supervisor returns.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	var roles []contract.Worker
	if o.gateway {
		roles = append(roles, workers.NewResponseWorker(o.log, o.subscriber, o.registry, o.codec,
			o.gatewayDedupe, o.topics.Responses, o.topics.GatewayGroup))
	}
	if o.assistant != nil {
		roles = append(roles, workers.NewRequestWorker(o.log, o.subscriber, o.publisher, o.codec,
			o.assistant, o.workerDedupe, o.topics.Requests, o.topics.Responses, o.topics.WorkerGroup))
	}
	if len(roles) == 0 {
		o.mu.Unlock()
		return fmt.Errorf("%w: neither gateway nor worker role enabled", errors.ErrConfiguration)
	}
	o.supervisor.Add(roles...)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator", "gateway", o.gateway, "worker", o.assistant != nil)
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised workers. Start returns once they are gone.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
