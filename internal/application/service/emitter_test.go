package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pumpradar/internal/domain"
)

type mockNotifier struct {
	name string
	err  error

	mu     sync.Mutex
	events []domain.Event
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Notify(ctx context.Context, ev domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestAsyncEmitterDropsWhenFull(t *testing.T) {
	e := NewAsyncEmitter(2, time.Second)
	for i := 0; i < 5; i++ {
		e.Emit(domain.Event{Kind: domain.EventPump, Symbol: "BTC-USDT"})
	}
	st := e.Stats()
	if st.Queued != 2 || st.Dropped != 3 {
		t.Errorf("expected 2 queued / 3 dropped, got %+v", st)
	}
}

func TestAsyncEmitterFanOut(t *testing.T) {
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", err: errors.New("boom")}
	e := NewAsyncEmitter(8, time.Second, bad, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	e.Emit(domain.Event{Kind: domain.EventDump, Symbol: "ETH-USDT"})
	e.Emit(domain.Event{Kind: domain.EventPump, Symbol: "ETH-USDT"})

	deadline := time.Now().Add(2 * time.Second)
	for ok.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ok.count() != 2 {
		t.Fatalf("expected 2 deliveries despite failing sink, got %d", ok.count())
	}
	if bad.count() != 2 {
		t.Errorf("failing sink should still be called, got %d", bad.count())
	}
	if st := e.Stats(); st.Failed != 2 || st.Emitted != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

type memEventRepo struct {
	events []domain.Event
}

func (m *memEventRepo) SaveEvent(ctx context.Context, ev domain.Event) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memEventRepo) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	out := []domain.Event{}
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *memEventRepo) Close() error { return nil }

func TestEventServiceRecentClampsLimit(t *testing.T) {
	repo := &memEventRepo{}
	svc := NewEventService(repo)
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		if err := svc.Notify(ctx, domain.Event{Symbol: "BTC-USDT", Price: float64(i)}); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}

	got, err := svc.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 50 {
		t.Errorf("expected default limit 50, got %d", len(got))
	}
	if got[0].Price != 59 {
		t.Errorf("expected newest first, got %v", got[0].Price)
	}
}

func TestEventServiceRecentCapsLargeLimit(t *testing.T) {
	repo := &memEventRepo{}
	svc := NewEventService(repo)
	ctx := context.Background()
	for i := 0; i < 600; i++ {
		_ = svc.Notify(ctx, domain.Event{Symbol: "BTC-USDT", Price: float64(i)})
	}

	got, err := svc.Recent(ctx, 1000)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 500 {
		t.Errorf("expected limit capped at 500, got %d", len(got))
	}

	got, _ = svc.Recent(ctx, 120)
	if len(got) != 120 {
		t.Errorf("expected 120 events, got %d", len(got))
	}
}
