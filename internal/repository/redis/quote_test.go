package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperion/internal/domain/oracle"
	"hyperion/internal/testsupport"
	"hyperion/pkg/errors"
)

func TestQuoteRepository_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := testsupport.NewRedisClient(t, testsupport.GetConfig().Redis)
	repo := NewQuoteRepository(client, "oracle-test", time.Minute)
	ctx := context.Background()

	pairID := uuid.New()
	written := &oracle.Quote{
		Value:     decimal.NewFromInt(160000000000),
		Decimals:  8,
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.PutQuote(ctx, pairID, written))

	quote, err := repo.GetUnderlyingPrice(ctx, pairID)
	require.NoError(t, err)
	assert.True(t, quote.Value.Equal(written.Value))
	assert.Equal(t, int32(8), quote.Decimals)
	assert.True(t, quote.UpdatedAt.Equal(written.UpdatedAt))
}

func TestQuoteRepository_MissingFeed(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := testsupport.NewRedisClient(t, testsupport.GetConfig().Redis)
	repo := NewQuoteRepository(client, "oracle-test", time.Minute)

	_, err := repo.GetUnderlyingPrice(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNoAggregator))
}

func TestQuoteRepository_StaleFeed(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := testsupport.NewRedisClient(t, testsupport.GetConfig().Redis)
	repo := NewQuoteRepository(client, "oracle-test", time.Minute)
	ctx := context.Background()

	pairID := uuid.New()
	require.NoError(t, repo.PutQuote(ctx, pairID, &oracle.Quote{
		Value:     decimal.NewFromInt(160000000000),
		Decimals:  8,
		UpdatedAt: time.Now().UTC(),
	}))

	// A reader two minutes ahead sees the answer as out of sync
	repo.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := repo.GetUnderlyingPrice(ctx, pairID)
	assert.True(t, errors.Is(err, errors.ErrOutOfSync))
}

func TestQuoteRepository_NamespaceIsolation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := testsupport.NewRedisClient(t, testsupport.GetConfig().Redis)
	ctx := context.Background()

	pairID := uuid.New()
	writer := NewQuoteRepository(client, "oracle-a", time.Minute)
	require.NoError(t, writer.PutQuote(ctx, pairID, &oracle.Quote{
		Value:     decimal.NewFromInt(100000000),
		Decimals:  8,
		UpdatedAt: time.Now().UTC(),
	}))

	reader := NewQuoteRepository(client, "oracle-b", time.Minute)
	_, err := reader.GetUnderlyingPrice(ctx, pairID)
	assert.True(t, errors.Is(err, errors.ErrNoAggregator))
}
