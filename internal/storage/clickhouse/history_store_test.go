package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

func TestHistoryStore_LoadAbsent(t *testing.T) {
	conn := newTestConn(t)

	_, err := NewHistoryStore(conn).Load(context.Background(), "history")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHistoryStore_SaveAndLoad(t *testing.T) {
	conn := newTestConn(t)

	store := NewHistoryStore(conn)
	ctx := context.Background()

	rows := []*domain.HistoryRow{
		{
			Timestamp:   900,
			FundingRate: 0.001,
			Candle:      &domain.Candle{TimestampBucket: 900, OpenPrice: 1, HighPrice: 2, LowPrice: 0.5, ClosePrice: 1.5},
			Trades: &domain.AggregatedBucket{
				Bucket: 900, TradeCount: 3, MinPrice: 1, MaxPrice: 2, MinVol: 1, MaxVol: 2,
				LastPrice: 1.5, LastVol: 3, AvgIndexPrice: 1.25, PnlBuy: 0.5, PnlSell: -0.25,
			},
			Datetime: time.Unix(900, 0).UTC(),
		},
		{Timestamp: 1800, FundingRate: 0.002, Datetime: time.Unix(1800, 0).UTC()},
	}
	require.NoError(t, store.Save(ctx, "history", rows))

	got, err := store.Load(ctx, "history")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, rows[0].Candle, got[0].Candle)
	assert.Equal(t, rows[0].Trades, got[0].Trades)
	assert.Equal(t, int64(900), got[0].Datetime.Unix())
	assert.Nil(t, got[1].Candle)
	assert.Nil(t, got[1].Trades)
}

func TestHistoryStore_LatestVersionWins(t *testing.T) {
	conn := newTestConn(t)

	store := NewHistoryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "history", []*domain.HistoryRow{
		{Timestamp: 900, FundingRate: 0.001, Datetime: time.Unix(900, 0).UTC()},
		{Timestamp: 1800, FundingRate: 0.003, Datetime: time.Unix(1800, 0).UTC()},
	}))
	require.NoError(t, store.Save(ctx, "history", []*domain.HistoryRow{
		{Timestamp: 900, FundingRate: 0.002, Datetime: time.Unix(900, 0).UTC()},
	}))

	got, err := store.Load(ctx, "history")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.002, got[0].FundingRate)
}

func TestHistoryStore_SaveEmpty(t *testing.T) {
	conn := newTestConn(t)

	store := NewHistoryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "history", nil))

	got, err := store.Load(ctx, "history")
	require.NoError(t, err)
	assert.Empty(t, got)
}
