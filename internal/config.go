package internal

import (
	"chat-relay/envelope"
	"chat-relay/errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	BusKafka  = "kafka"
	BusMemory = "memory"
)

type Config struct {
	EncryptionKey string `env:"ENCRYPTION_KEY,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
	Host          string `env:"HOST,default=0.0.0.0"`
	Port          int    `env:"PORT,default=8000"`
	HealthPort    int    `env:"HEALTH_PORT,default=8090"`
	DebugPort     int    `env:"DEBUG_PORT,default=8081"`

	BusDriver      string `env:"BUS_DRIVER,default=kafka"`
	KafkaBrokers   string `env:"KAFKA_BROKERS,default=kafka:9092"`
	RequestsTopic  string `env:"REQUESTS_TOPIC,default=user_messages"`
	ResponsesTopic string `env:"RESPONSES_TOPIC,default=bot_responses"`
	WorkerGroup    string `env:"WORKER_GROUP,default=ai-worker-group"`
	GatewayGroup   string `env:"GATEWAY_GROUP,default=gateway-group"`

	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	PublishTimeout       time.Duration `env:"PUBLISH_TIMEOUT,default=5s"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=1024"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	BacklogThreshold     int           `env:"BACKLOG_THRESHOLD,default=1000"`
	RSSThresholdMB       int           `env:"RSS_THRESHOLD_MB,default=1024"`

	BadgerFilepath string        `env:"BADGER_FILEPATH"`
	DedupeTTL      time.Duration `env:"DEDUPE_TTL,default=10m"`
	DatabaseURL    string        `env:"DATABASE_URL"`

	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string `env:"ANTHROPIC_MODEL"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`

	S3Region    string `env:"S3_REGION,default=us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
}

// Key decodes ENCRYPTION_KEY.
func (c Config) Key() ([]byte, error) {
	return ParseKey(c.EncryptionKey)
}

// ParseKey turns a 64 hex characters key into 32 bytes.
func ParseKey(hexKey string) ([]byte, error) {
	return envelope.ParseKey(hexKey)
}

// Brokers splits KAFKA_BROKERS, ignoring blanks.
func (c Config) Brokers() []string {
	return lo.Compact(lo.Map(strings.Split(c.KafkaBrokers, ","), func(b string, _ int) string {
		return strings.TrimSpace(b)
	}))
}

// Validate checks the settings a binary cannot start without.
func (c Config) Validate() error {
	if _, err := c.Key(); err != nil {
		return err
	}
	switch c.BusDriver {
	case BusMemory:
	case BusKafka:
		if len(c.Brokers()) == 0 {
			return fmt.Errorf("%w: KAFKA_BROKERS is empty", errors.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown BUS_DRIVER %q", errors.ErrConfiguration, c.BusDriver)
	}
	if c.DedupeTTL <= 0 {
		return fmt.Errorf("%w: DEDUPE_TTL must be positive", errors.ErrConfiguration)
	}
	return nil
}
