package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// EventRecord 事件落库的行格式，payload 为完整事件 JSON
type EventRecord struct {
	Kind        string
	Symbol      string
	Price       float64
	Percent     float64
	Volume      float64
	FundingRate sql.NullFloat64
	TsMs        int64
	Payload     string
}

// NewEventRecord 从事件构造行
func NewEventRecord(ev domain.Event) (EventRecord, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("marshal event: %w", err)
	}
	rec := EventRecord{
		Kind:    string(ev.Kind),
		Symbol:  ev.Symbol,
		Price:   ev.Price,
		Percent: ev.Percent,
		Volume:  ev.Volume,
		TsMs:    ev.At.UnixMilli(),
		Payload: string(b),
	}
	if ev.FundingRate != nil {
		rec.FundingRate = sql.NullFloat64{Float64: *ev.FundingRate, Valid: true}
	}
	return rec, nil
}

// DecodeEvent 从 payload 还原事件
func DecodeEvent(payload string) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return domain.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// ClampLimit 查询条数
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}

// InMemoryEventRepository 未配置任何存储时使用，只保留最近 capacity 条
type InMemoryEventRepository struct {
	mu     sync.RWMutex
	events *domain.Ring[domain.Event]
}

func NewInMemoryEventRepository(capacity int) *InMemoryEventRepository {
	if capacity <= 0 {
		capacity = MaxRecentLimit
	}
	return &InMemoryEventRepository{events: domain.NewRing[domain.Event](capacity)}
}

func (r *InMemoryEventRepository) SaveEvent(ctx context.Context, ev domain.Event) error {
	r.mu.Lock()
	r.events.Push(ev)
	r.mu.Unlock()
	return nil
}

func (r *InMemoryEventRepository) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	limit = ClampLimit(limit)
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Event, 0, min(limit, r.events.Len()))
	for i := r.events.Len() - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.events.At(i))
	}
	return out, nil
}

func (r *InMemoryEventRepository) Close() error { return nil }

var _ port.EventRepository = (*InMemoryEventRepository)(nil)
