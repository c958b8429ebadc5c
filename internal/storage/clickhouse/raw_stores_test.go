package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

func TestLastByKey(t *testing.T) {
	type kv struct {
		k string
		v int
	}
	got := lastByKey([]kv{{"a", 1}, {"b", 2}, {"a", 3}}, func(x kv) string { return x.k })
	assert.Equal(t, []kv{{"a", 3}, {"b", 2}}, got)
	assert.Empty(t, lastByKey(nil, func(x kv) string { return x.k }))
}

func TestRowVersion_Increasing(t *testing.T) {
	prev := rowVersion()
	for i := 0; i < 1000; i++ {
		next := rowVersion()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestFundingStore_Upsert(t *testing.T) {
	conn := newTestConn(t)

	store := NewFundingStore(conn)
	ctx := context.Background()

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Upsert(ctx, []*domain.FundingRecord{
		{Timestamp: 1_800_000, FundingRate: 0.003},
		{Timestamp: 900_000, FundingRate: 0.001},
	}))
	// Refetch overwrites the stored rate
	require.NoError(t, store.Upsert(ctx, []*domain.FundingRecord{{Timestamp: 900_000, FundingRate: 0.002}}))

	got, err = store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.FundingRecord{Timestamp: 900_000, FundingRate: 0.002}, *got[0])
	assert.Equal(t, int64(1_800_000), got[1].Timestamp)
}

func TestCandleStore_Upsert(t *testing.T) {
	conn := newTestConn(t)

	store := NewCandleStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []*domain.Candle{
		{TimestampBucket: 900, OpenPrice: 1, HighPrice: 2, LowPrice: 0.5, ClosePrice: 1.5},
	}))
	require.NoError(t, store.Upsert(ctx, []*domain.Candle{
		{TimestampBucket: 900, OpenPrice: 1, HighPrice: 2.5, LowPrice: 0.5, ClosePrice: 2.2},
		{TimestampBucket: 1800, OpenPrice: 2.2, HighPrice: 3, LowPrice: 2, ClosePrice: 2.9},
	}))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Candle{TimestampBucket: 900, OpenPrice: 1, HighPrice: 2.5, LowPrice: 0.5, ClosePrice: 2.2}, *got[0])
	assert.Equal(t, int64(1800), got[1].TimestampBucket)
}

func TestTradeStore_Upsert(t *testing.T) {
	conn := newTestConn(t)

	store := NewTradeStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []*domain.Trade{
		{TradeID: "b", Timestamp: 1000, TradePrice: 10, TradeAmount: 1, IndexPrice: 10, Direction: domain.DirectionBuy},
		{TradeID: "a", Timestamp: 1000, TradePrice: 11, TradeAmount: 2, IndexPrice: 10, RealizedPnl: -0.5, Direction: domain.DirectionSell},
		{TradeID: "c", Timestamp: 500, TradePrice: 9, TradeAmount: 1, IndexPrice: 9, Direction: domain.DirectionBuy},
	}))
	// Same trade_id twice in one batch: the later one wins
	require.NoError(t, store.Upsert(ctx, []*domain.Trade{
		{TradeID: "c", Timestamp: 500, TradePrice: 9.1, TradeAmount: 1, IndexPrice: 9, Direction: domain.DirectionBuy},
		{TradeID: "c", Timestamp: 500, TradePrice: 9.2, TradeAmount: 1, IndexPrice: 9, Direction: domain.DirectionBuy},
	}))
	// A later run that no longer sees a/b keeps them
	require.NoError(t, store.Upsert(ctx, nil))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].TradeID)
	assert.Equal(t, 9.2, got[0].TradePrice)
	assert.Equal(t, "a", got[1].TradeID)
	assert.Equal(t, domain.DirectionSell, got[1].Direction)
	assert.Equal(t, -0.5, got[1].RealizedPnl)
	assert.Equal(t, "b", got[2].TradeID)
}

func TestTradeStore_MissingID(t *testing.T) {
	err := NewTradeStore(nil).Upsert(context.Background(), []*domain.Trade{{Timestamp: 1}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
