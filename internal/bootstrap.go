package internal

import (
	"chat-relay/ai"
	"chat-relay/bus"
	"chat-relay/contract"
	"chat-relay/envelope"
	"chat-relay/infrastructure/api"
	"chat-relay/infrastructure/images"
	"chat-relay/infrastructure/kafka"
	"chat-relay/infrastructure/postgres"
	"chat-relay/infrastructure/ws"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/translation"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
)

func NewCodec(config Config) (*envelope.Codec, error) {
	key, err := config.Key()
	if err != nil {
		return nil, err
	}
	return envelope.NewCodec(key)
}

func TopicsOf(config Config) runtime.Topics {
	return runtime.Topics{
		Requests:     config.RequestsTopic,
		Responses:    config.ResponsesTopic,
		WorkerGroup:  config.WorkerGroup,
		GatewayGroup: config.GatewayGroup,
	}
}

// Transport is the bus seen by one process.
type Transport struct {
	Publisher  contract.Publisher
	Subscriber contract.Subscriber
	close      func()
}

func (t Transport) Close() {
	if t.close != nil {
		t.close()
	}
}

// OpenTransport connects to Kafka or, for BUS_DRIVER=memory, creates a
// process-local bus.
func OpenTransport(config Config, log *slog.Logger, clientID string) (Transport, error) {
	if config.BusDriver == BusMemory {
		b := bus.NewMemoryBus(log)
		return Transport{Publisher: b, Subscriber: b, close: b.Close}, nil
	}
	saramaConfig := kafka.NewConfig(clientID)
	publisher, err := kafka.NewPublisher(log, config.Brokers(), saramaConfig)
	if err != nil {
		return Transport{}, err
	}
	return Transport{
		Publisher:  publisher,
		Subscriber: kafka.NewSubscriber(log, config.Brokers(), saramaConfig),
		close: func() {
			if err := publisher.Close(); err != nil {
				log.Warn("Producer close failed", "error", err)
			}
		},
	}, nil
}

// OpenBadger opens the dedupe database. In debug, the inspector is served on DEBUG_PORT.
func OpenBadger(ctx context.Context, config Config, log *slog.Logger) (*badger.DB, error) {
	db, err := repositories.OpenBadger(config.BadgerFilepath)
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	if log.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		log.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, database.DefaultMapper)
	}
	return db, nil
}

// NewBacklogWorker samples gauges plus the process memory, CPU and goroutines.
// When the process cannot be inspected, only gauges are sampled.
func NewBacklogWorker(config Config, log *slog.Logger, gauges ...workers.Gauge) *workers.BacklogWorker {
	process, err := workers.ProcessGauges(config.RSSThresholdMB)
	if err != nil {
		log.Warn("Process gauges unavailable", "error", err)
	}
	return workers.NewBacklogWorker(log, append(gauges, process...), config.MetricInterval, config.BacklogThreshold)
}

// NewAIClient returns nil when no API key is configured.
func NewAIClient(config Config) *ai.Client {
	if config.AnthropicAPIKey == "" {
		return nil
	}
	return ai.NewClient(config.AnthropicAPIKey, config.AnthropicBaseURL, config.AnthropicModel)
}

// NewAssistant answers with the model when available, otherwise with the echo
// responder. Property questions use Postgres when DATABASE_URL is set.
// The returned func releases the datastore.
func NewAssistant(ctx context.Context, config Config, log *slog.Logger, client *ai.Client) (contract.Assistant, func(), error) {
	var responder contract.Responder = ai.EchoResponder{}
	if client != nil {
		responder = ai.NewResponder(client)
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, answering with the echo responder")
	}

	if config.DatabaseURL == "" {
		return ai.NewAssistant(log, responder, nil), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, config.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	properties := postgres.NewPropertyRepository(log, pool)
	return ai.NewAssistant(log, responder, properties), pool.Close, nil
}

// NewModerationEngine builds the engine with the model classifier when
// available and the file/S3 image resolver.
func NewModerationEngine(ctx context.Context, config Config, log *slog.Logger, client *ai.Client) (*moderation.Engine, error) {
	var classifier contract.Classifier
	if client != nil {
		classifier = ai.NewClassifier(client)
	}

	var objects contract.ImageResolver
	if config.S3Endpoint != "" || config.S3AccessKey != "" {
		s3Client, err := images.NewS3Client(ctx, images.S3Config{
			Region:    config.S3Region,
			Endpoint:  config.S3Endpoint,
			AccessKey: config.S3AccessKey,
			SecretKey: config.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		objects = images.NewS3Resolver(s3Client)
	}
	return moderation.NewDefaultEngine(log, classifier, images.NewSchemeResolver(objects))
}

func NewTranslationGateway(log *slog.Logger, client *ai.Client) *translation.Gateway {
	return translation.NewGateway(log, ai.NewTranslatorFactory(client))
}

// NewHTTPServer serves the gateway API and the room WebSocket endpoint on HOST:PORT.
func NewHTTPServer(config Config, log *slog.Logger, chat services.IChatService,
	engine services.Moderator, translator services.Translator) *http.Server {
	rooms := ws.NewRoomHandler(log, chat, ws.NewUpgrader(config.ConnectionBufferSize), api.RoomID)
	server := api.NewServer(log,
		services.NewModerationService(log, engine),
		services.NewTranslationService(translator),
		rooms)
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
