package consumers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	kafkaadapter "hyperion/internal/adapters/kafka"
	"hyperion/internal/domain/history"
	"hyperion/internal/events"
	"hyperion/internal/metrics"
	chrepo "hyperion/internal/repository/clickhouse"
	"hyperion/pkg/logger"
)

// SettlementHistoryConsumer reads option lifecycle events from Kafka and
// writes them to ClickHouse as append-only history rows
// This keeps analytics traffic off the transactional database
type SettlementHistoryConsumer struct {
	consumer    *kafkaadapter.Consumer
	historyRepo *chrepo.SettlementHistoryRepository
	log         *logger.Logger
}

// NewSettlementHistoryConsumer creates a new settlement history consumer
func NewSettlementHistoryConsumer(
	consumer *kafkaadapter.Consumer,
	historyRepo *chrepo.SettlementHistoryRepository,
	log *logger.Logger,
) *SettlementHistoryConsumer {
	return &SettlementHistoryConsumer{
		consumer:    consumer,
		historyRepo: historyRepo,
		log:         log,
	}
}

// Start begins consuming settlement events
func (c *SettlementHistoryConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting settlement history consumer...")

	defer func() {
		if err := c.consumer.Close(); err != nil {
			c.log.Error("Failed to close settlement history consumer", "error", err)
		}
	}()

	for {
		msg, err := c.consumer.ReadMessageWithShutdownCheck(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Settlement history consumer stopping")
				return nil
			}
			c.log.Errorf("Failed to read settlement event: %v", err)
			continue
		}

		processCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.handleEvent(processCtx, msg); err != nil {
			metrics.KafkaMessages.WithLabelValues(msg.Topic, "consumed", "error").Inc()
			c.log.Error("Failed to handle settlement event",
				"topic", msg.Topic,
				"error", err,
			)
		} else {
			metrics.KafkaMessages.WithLabelValues(msg.Topic, "consumed", "success").Inc()
		}
		cancel()
	}
}

// handleEvent maps one lifecycle event to its history rows
func (c *SettlementHistoryConsumer) handleEvent(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case events.TopicOptionBought:
		var e events.OptionBought
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return err
		}
		return c.historyRepo.Insert(ctx, &history.Record{
			EventType: history.EventBought,
			OptionID:  e.OptionID,
			PairID:    e.PairID,
			Account:   e.Holder,
			Amount:    e.Amount,
			Premium:   e.Premium,
			Fee:       e.Fee,
			Timestamp: e.Timestamp,
		})

	case events.TopicOptionLocked:
		var e events.OptionLocked
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return err
		}
		records := make([]*history.Record, 0, len(e.Pools))
		for _, share := range e.Pools {
			records = append(records, &history.Record{
				EventType: history.EventLocked,
				OptionID:  e.OptionID,
				PoolID:    share.PoolID,
				Amount:    share.Amount,
				Timestamp: e.Timestamp,
			})
		}
		return c.historyRepo.InsertBatch(ctx, records)

	case events.TopicOptionExercised:
		var e events.OptionExercised
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return err
		}
		return c.historyRepo.Insert(ctx, &history.Record{
			EventType: history.EventExercised,
			OptionID:  e.OptionID,
			Account:   e.Holder,
			Payout:    e.Payout,
			Fee:       e.Fee,
			Spot:      e.Spot,
			Timestamp: e.Timestamp,
		})

	case events.TopicOptionExpired:
		var e events.OptionExpired
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return err
		}
		return c.historyRepo.Insert(ctx, &history.Record{
			EventType: history.EventExpired,
			OptionID:  e.OptionID,
			Amount:    e.Returned,
			Timestamp: e.Timestamp,
		})

	case events.TopicPremiumDistributed:
		var e events.PremiumDistributed
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return err
		}
		return c.historyRepo.Insert(ctx, &history.Record{
			EventType: history.EventDistributed,
			PoolID:    e.PoolID,
			Amount:    e.Credited,
			Timestamp: e.Timestamp,
		})

	default:
		c.log.Debugf("Ignoring message on unknown topic %s", msg.Topic)
		return nil
	}
}
