package events

import (
	"context"

	"hyperion/internal/metrics"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

// Producer is the transport events are written through
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Publisher publishes engine lifecycle events to Kafka
type Publisher struct {
	producer Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Producer, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		log:      log,
	}
}

// PublishOptionBought publishes an option bought event
func (p *Publisher) PublishOptionBought(ctx context.Context, event *OptionBought) error {
	return p.publish(ctx, TopicOptionBought, event.OptionID.String(), event)
}

// PublishOptionLocked publishes a collateral locked event
func (p *Publisher) PublishOptionLocked(ctx context.Context, event *OptionLocked) error {
	return p.publish(ctx, TopicOptionLocked, event.OptionID.String(), event)
}

// PublishOptionExercised publishes an in-the-money settlement event
func (p *Publisher) PublishOptionExercised(ctx context.Context, event *OptionExercised) error {
	return p.publish(ctx, TopicOptionExercised, event.OptionID.String(), event)
}

// PublishOptionExpired publishes a worthless expiry event
func (p *Publisher) PublishOptionExpired(ctx context.Context, event *OptionExpired) error {
	return p.publish(ctx, TopicOptionExpired, event.OptionID.String(), event)
}

// PublishPremiumDistributed publishes a premium distribution event
func (p *Publisher) PublishPremiumDistributed(ctx context.Context, event *PremiumDistributed) error {
	return p.publish(ctx, TopicPremiumDistributed, event.PoolID.String(), event)
}

// publish sends one JSON-encoded event keyed for per-option ordering
func (p *Publisher) publish(ctx context.Context, topic string, key string, event interface{}) error {
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		metrics.KafkaMessages.WithLabelValues(topic, "produced", "error").Inc()
		p.log.Error("Failed to publish event", "topic", topic, "key", key, "error", err)
		return errors.Wrapf(err, "publish %s", topic)
	}

	metrics.KafkaMessages.WithLabelValues(topic, "produced", "success").Inc()
	return nil
}
