// Package kafka provides a Kafka transport for eventflow.
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/luntra/eventflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// clientID identifies this service in broker logs and quota accounting.
const clientID = "eventflow"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	Register()
}

// Register adds the Kafka transport to the default transport registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.KafkaCapabilities)
}

// Build creates a Kafka transport. The subscriber joins the configured
// consumer group and starts from the oldest offset, so events published
// before the group first connected are still delivered.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	brokers := cfg.GetKafkaBrokers()

	publisherOverrides := kafka.DefaultSaramaSyncPublisherConfig()
	publisherOverrides.ClientID = clientID

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: publisherOverrides,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, fmt.Errorf("building kafka publisher: %w", err)
	}

	subscriberOverrides := kafka.DefaultSaramaSubscriberConfig()
	subscriberOverrides.ClientID = clientID
	subscriberOverrides.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := SubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			ConsumerGroup:         cfg.GetKafkaConsumerGroup(),
			OverwriteSaramaConfig: subscriberOverrides,
		},
		logger,
	)
	if err != nil {
		publisher.Close()
		return transport.Transport{}, fmt.Errorf("building kafka subscriber: %w", err)
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}
