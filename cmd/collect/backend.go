package main

import (
	"context"
	"fmt"

	"github.com/crynom/derive/internal/config"
	"github.com/crynom/derive/internal/storage"
	chstore "github.com/crynom/derive/internal/storage/clickhouse"
	"github.com/crynom/derive/internal/storage/memory"
	"github.com/crynom/derive/internal/storage/postgres"
)

// stores holds the store set selected by configuration.
// Every backend provides all five stores.
type stores struct {
	funding   storage.FundingStore
	candles   storage.CandleStore
	trades    storage.TradeStore
	history   storage.HistoryStore
	aggregate storage.AggregateStore

	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured backend.
func openStores(ctx context.Context, cfg config.StorageConfig) (*stores, error) {
	s := &stores{}

	switch cfg.Backend {
	case config.BackendMemory:
		s.funding = memory.NewFundingStore()
		s.candles = memory.NewCandleStore()
		s.trades = memory.NewTradeStore()
		s.history = memory.NewHistoryStore()
		s.aggregate = memory.NewAggregateStore()
		return s, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.funding = postgres.NewFundingStore(pool)
		s.candles = postgres.NewCandleStore(pool)
		s.trades = postgres.NewTradeStore(pool)
		s.history = postgres.NewHistoryStore(pool)
		s.aggregate = postgres.NewAggregateStore(pool)
		return s, nil

	case config.BackendClickhouse:
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { conn.Close() })
		s.funding = chstore.NewFundingStore(conn)
		s.candles = chstore.NewCandleStore(conn)
		s.trades = chstore.NewTradeStore(conn)
		s.history = chstore.NewHistoryStore(conn)
		s.aggregate = chstore.NewAggregateStore(conn)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
