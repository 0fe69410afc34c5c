// Package kafka carries relay envelopes over Kafka topics.
package kafka

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// NewConfig returns the producer and consumer settings shared by both roles.
// Acks are awaited from every in-sync replica and new groups start from the
// oldest retained offset.
func NewConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true
	return config
}

type Publisher struct {
	log      *slog.Logger
	producer sarama.SyncProducer
}

var _ contract.Publisher = (*Publisher)(nil)

func NewPublisher(log *slog.Logger, brokers []string, config *sarama.Config) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return NewPublisherFromProducer(log, producer), nil
}

func NewPublisherFromProducer(log *slog.Logger, producer sarama.SyncProducer) *Publisher {
	return &Publisher{log: log, producer: producer}
}

func (p *Publisher) Publish(ctx context.Context, topic, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.StringEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", topic, err)
	}
	p.log.Debug("Message sent", "topic", topic, "partition", partition, "offset", offset)
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

// Subscriber opens one consumer group session per Subscribe call.
type Subscriber struct {
	log      *slog.Logger
	brokers  []string
	config   *sarama.Config
	newGroup func(brokers []string, group string, config *sarama.Config) (sarama.ConsumerGroup, error)
}

var _ contract.Subscriber = (*Subscriber)(nil)

func NewSubscriber(log *slog.Logger, brokers []string, config *sarama.Config) *Subscriber {
	return &Subscriber{
		log:      log,
		brokers:  brokers,
		config:   config,
		newGroup: sarama.NewConsumerGroup,
	}
}

// Subscribe consumes topic as a member of group until ctx is canceled.
// Rebalances re-enter Consume transparently.
func (s *Subscriber) Subscribe(ctx context.Context, topic, group string, handle contract.Handler) error {
	cg, err := s.newGroup(s.brokers, group, s.config)
	if err != nil {
		return fmt.Errorf("failed to create consumer group %s: %w", group, err)
	}
	defer func() {
		if err := cg.Close(); err != nil {
			s.log.Warn("Consumer group close failed", "group", group, "error", err)
		}
	}()

	go func() {
		for err := range cg.Errors() {
			s.log.Warn("Consumer error", "topic", topic, "group", group, "error", err)
		}
	}()

	handler := &groupHandler{log: s.log, handle: handle}
	for {
		if err := cg.Consume(ctx, []string{topic}, handler); err != nil {
			if stdErrors.Is(err, sarama.ErrClosedConsumerGroup) {
				return fmt.Errorf("%w: %v", errors.ErrBusClosed, err)
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// groupHandler hands every claimed message to the relay handler and marks it
// afterwards, whatever the outcome.
type groupHandler struct {
	log    *slog.Logger
	handle contract.Handler
}

var _ sarama.ConsumerGroupHandler = (*groupHandler)(nil)

func (h *groupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.log.Debug("Partitions assigned", "claims", session.Claims(), "member", session.MemberID())
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(session.Context(), string(msg.Value)); err != nil {
				h.log.Debug("Handler error", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
