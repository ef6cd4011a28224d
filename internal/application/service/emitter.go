package service

import (
	"context"
	"sync/atomic"
	"time"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"

	"github.com/rs/zerolog/log"
)

// AsyncEmitter 异步分发事件到各通知渠道
// Emit 只做一次非阻塞入队，队列满时丢弃
type AsyncEmitter struct {
	ch      chan domain.Event
	sinks   []port.Notifier
	timeout time.Duration

	emitted atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewAsyncEmitter buffer 为队列长度，timeout 为单个渠道的发送超时
func NewAsyncEmitter(buffer int, timeout time.Duration, sinks ...port.Notifier) *AsyncEmitter {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncEmitter{
		ch:      make(chan domain.Event, buffer),
		sinks:   sinks,
		timeout: timeout,
	}
}

func (e *AsyncEmitter) Emit(ev domain.Event) {
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
		log.Warn().Str("symbol", ev.Symbol).Str("kind", string(ev.Kind)).Msg("emitter queue full, event dropped")
	}
}

// Run 消费队列直到 ctx 取消
func (e *AsyncEmitter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.ch:
			e.deliver(ctx, ev)
		}
	}
}

func (e *AsyncEmitter) deliver(ctx context.Context, ev domain.Event) {
	e.emitted.Add(1)
	for _, s := range e.sinks {
		sctx, cancel := context.WithTimeout(ctx, e.timeout)
		err := s.Notify(sctx, ev)
		cancel()
		if err != nil {
			e.failed.Add(1)
			log.Error().
				Str("sink", s.Name()).
				Str("symbol", ev.Symbol).
				Str("kind", string(ev.Kind)).
				Err(err).
				Msg("notify failed")
		}
	}
}

// EmitterStats 计数
type EmitterStats struct {
	Emitted int64 `json:"emitted"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
	Queued  int   `json:"queued"`
}

func (e *AsyncEmitter) Stats() EmitterStats {
	return EmitterStats{
		Emitted: e.emitted.Load(),
		Dropped: e.dropped.Load(),
		Failed:  e.failed.Load(),
		Queued:  len(e.ch),
	}
}
