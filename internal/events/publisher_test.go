package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

type producedMessage struct {
	topic string
	key   string
	event interface{}
}

type recordingProducer struct {
	messages []producedMessage
	err      error
}

func (p *recordingProducer) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, producedMessage{topic: topic, key: key, event: event})
	return nil
}

func testLogger() *logger.Logger {
	zl, _ := zap.NewDevelopment()
	return &logger.Logger{SugaredLogger: zl.Sugar()}
}

func TestPublisher_TopicsAndKeys(t *testing.T) {
	producer := &recordingProducer{}
	pub := NewPublisher(producer, testLogger())
	ctx := context.Background()

	optionID := uuid.New()
	poolID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, pub.PublishOptionBought(ctx, &OptionBought{
		OptionID:  optionID,
		Holder:    "0xholder",
		Type:      "call",
		Premium:   decimal.NewFromInt(60),
		Timestamp: now,
	}))
	require.NoError(t, pub.PublishOptionLocked(ctx, &OptionLocked{
		OptionID:   optionID,
		Collateral: decimal.NewFromInt(1600),
		Timestamp:  now,
	}))
	require.NoError(t, pub.PublishOptionExercised(ctx, &OptionExercised{
		OptionID:  optionID,
		Payout:    decimal.NewFromInt(1600),
		Timestamp: now,
	}))
	require.NoError(t, pub.PublishOptionExpired(ctx, &OptionExpired{
		OptionID:  optionID,
		Returned:  decimal.NewFromInt(600),
		Timestamp: now,
	}))
	require.NoError(t, pub.PublishPremiumDistributed(ctx, &PremiumDistributed{
		PoolID:    poolID,
		Day:       20300,
		Credited:  decimal.NewFromInt(100),
		Timestamp: now,
	}))

	require.Len(t, producer.messages, 5)

	assert.Equal(t, TopicOptionBought, producer.messages[0].topic)
	assert.Equal(t, TopicOptionLocked, producer.messages[1].topic)
	assert.Equal(t, TopicOptionExercised, producer.messages[2].topic)
	assert.Equal(t, TopicOptionExpired, producer.messages[3].topic)
	assert.Equal(t, TopicPremiumDistributed, producer.messages[4].topic)

	// Option events key on the option id, liquidity events on the pool id
	for _, msg := range producer.messages[:4] {
		assert.Equal(t, optionID.String(), msg.key)
	}
	assert.Equal(t, poolID.String(), producer.messages[4].key)
}

func TestPublisher_ProducerError(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker unavailable")}
	pub := NewPublisher(producer, testLogger())

	err := pub.PublishOptionBought(context.Background(), &OptionBought{OptionID: uuid.New()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicOptionBought)
	assert.Empty(t, producer.messages)
}
