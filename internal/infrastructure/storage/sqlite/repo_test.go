package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pumpradar/internal/domain"
)

func TestSQLiteRepoSaveAndRecent(t *testing.T) {
	dbPath := filepath.Join(os.TempDir(), "pumpradar_events_test.db")
	defer os.Remove(dbPath)

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()
	fr := 0.02
	events := []domain.Event{
		{Kind: domain.EventPump, Symbol: "WIF-USDT", Price: 1.06, Percent: 6, At: base},
		{Kind: domain.EventDump, Symbol: "WIF-USDT", Price: 0.95, Percent: 7, At: base.Add(time.Minute)},
		{Kind: domain.EventOverpump, Symbol: "DOGE-USDT", Price: 0.12, Percent: 4, FundingRate: &fr, At: base.Add(2 * time.Minute),
			OrderBook: &domain.OrderBook{Bids: []domain.Level{{Price: 0.119, Qty: 100}}}},
	}
	for _, ev := range events {
		if err := repo.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("SaveEvent failed: %v", err)
		}
	}

	got, err := repo.RecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Kind != domain.EventOverpump || got[1].Kind != domain.EventDump {
		t.Errorf("expected newest first, got %s, %s", got[0].Kind, got[1].Kind)
	}
	if got[0].FundingRate == nil || *got[0].FundingRate != fr {
		t.Error("funding rate lost")
	}
	if got[0].OrderBook == nil || len(got[0].OrderBook.Bids) != 1 {
		t.Error("orderbook lost")
	}

	n, err := repo.CountBySymbol(ctx, "WIF-USDT")
	if err != nil {
		t.Fatalf("CountBySymbol failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 WIF events, got %d", n)
	}
}

func TestSQLiteRepoReopen(t *testing.T) {
	dbPath := filepath.Join(os.TempDir(), "pumpradar_reopen_test.db")
	defer os.Remove(dbPath)

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	ctx := context.Background()
	if err := repo.SaveEvent(ctx, domain.Event{Kind: domain.EventPump, Symbol: "A-USDT", At: time.Now()}); err != nil {
		t.Fatalf("SaveEvent failed: %v", err)
	}
	repo.Close()

	// 迁移可重复执行
	repo, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer repo.Close()

	got, err := repo.RecentEvents(ctx, 0)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 event after reopen, got %d", len(got))
	}
}
