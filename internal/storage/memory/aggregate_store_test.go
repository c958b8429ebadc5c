package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/crynom/derive/internal/domain"
	"github.com/crynom/derive/internal/storage"
)

func TestAggregateStore_SaveAndLoad(t *testing.T) {
	store := NewAggregateStore()
	ctx := context.Background()

	_, err := store.Load(ctx, "aggregates")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	buckets := []*domain.AggregatedBucket{
		{Bucket: 1800, TradeCount: 2, MinPrice: 9, MaxPrice: 11},
		{Bucket: 900, TradeCount: 1, MinPrice: 10, MaxPrice: 10},
	}
	if err := store.Save(ctx, "aggregates", buckets); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "aggregates")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 || got[0].Bucket != 900 || got[1].Bucket != 1800 {
		t.Errorf("unexpected buckets %+v", got)
	}
}
