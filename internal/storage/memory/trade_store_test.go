package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

func TestTradeStore_UpsertAndGetAll(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []*domain.Trade{
		{TradeID: "b", Timestamp: 1000, TradePrice: 10, Direction: domain.DirectionBuy},
		{TradeID: "a", Timestamp: 1000, TradePrice: 11, Direction: domain.DirectionSell},
		{TradeID: "c", Timestamp: 500, TradePrice: 9, Direction: domain.DirectionBuy},
	}

	if err := store.Upsert(ctx, trades); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d trades, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].TradeID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].TradeID, id)
		}
	}
}

func TestTradeStore_UpsertReplaces(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, []*domain.Trade{{TradeID: "t1", Timestamp: 1000, TradePrice: 10}})
	_ = store.Upsert(ctx, []*domain.Trade{{TradeID: "t1", Timestamp: 1000, TradePrice: 12}})

	got, _ := store.GetAll(ctx)
	if len(got) != 1 || got[0].TradePrice != 12 {
		t.Errorf("expected single trade with price 12, got %+v", got)
	}
}

func TestTradeStore_MissingID(t *testing.T) {
	store := NewTradeStore()

	err := store.Upsert(context.Background(), []*domain.Trade{{TradeID: ""}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
