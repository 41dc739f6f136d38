package kafka

import (
	"fmt"

	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/IBM/sarama"
)

// Config is the Kafka configuration
type Config struct {
	Brokers  []string
	Producer ProducerConfig
}

// ProducerConfig is the producer configuration
type ProducerConfig struct {
	MaxMessageBytes  int
	Compression      sarama.CompressionCodec
	RequiredAcks     sarama.RequiredAcks
	FlushMaxMessages int
}

// NewConfig creates a new Kafka configuration with defaults
func NewConfig(brokers []string) *Config {
	return &Config{
		Brokers: brokers,
		Producer: ProducerConfig{
			MaxMessageBytes:  1000000,
			Compression:      sarama.CompressionSnappy,
			RequiredAcks:     sarama.WaitForAll,
			FlushMaxMessages: 100,
		},
	}
}

// NewSaramaConfig creates a new Sarama configuration
func NewSaramaConfig(cfg *Config) *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Version = sarama.V3_3_0_0

	saramaConfig.Producer.MaxMessageBytes = cfg.Producer.MaxMessageBytes
	saramaConfig.Producer.Compression = cfg.Producer.Compression
	saramaConfig.Producer.RequiredAcks = cfg.Producer.RequiredAcks
	saramaConfig.Producer.Flush.MaxMessages = cfg.Producer.FlushMaxMessages
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	return saramaConfig
}

// NewSyncProducer creates a new synchronous Kafka producer
func NewSyncProducer(brokers []string, log *logger.Logger) (sarama.SyncProducer, error) {
	cfg := NewConfig(brokers)

	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig(cfg))
	if err != nil {
		log.Errorw("Failed to create Kafka sync producer", "brokers", brokers, "error", err)
		return nil, fmt.Errorf("kafka: failed to create sync producer: %w", err)
	}

	log.Infow("Kafka sync producer initialized", "brokers", brokers)
	return producer, nil
}
