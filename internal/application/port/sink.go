package port

import (
	"context"

	"pumpradar/internal/domain"
)

// Emitter 事件出口，Emit 不阻塞调用方
type Emitter interface {
	Emit(ev domain.Event)
}

// Notifier 具体的通知渠道（控制台、Telegram、仓储）
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev domain.Event) error
}
