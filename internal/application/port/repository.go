package port

import (
	"context"

	"pumpradar/internal/domain"
)

// EventRepository 事件流水
type EventRepository interface {
	SaveEvent(ctx context.Context, ev domain.Event) error
	// RecentEvents 按时间倒序，limit <= 0 时由实现决定默认值
	RecentEvents(ctx context.Context, limit int) ([]domain.Event, error)

	// Connection management
	Close() error
}
