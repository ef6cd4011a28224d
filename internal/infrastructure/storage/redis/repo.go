package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"
	"pumpradar/internal/infrastructure/storage"

	"github.com/redis/go-redis/v9"
)

const defaultStreamMaxLen = 10000

type Repo struct {
	rdb         *redis.Client
	prefix      string
	ttl         time.Duration
	keyLatest   string // prefix + ":latest"
	eventStream string
	eventChan   string
	maxLen      int64
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, eventStream, eventChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "pumpradar"
	}
	if strings.TrimSpace(eventStream) == "" {
		eventStream = prefix + ":events"
	}
	if strings.TrimSpace(eventChan) == "" {
		eventChan = prefix + ":events:pub"
	}
	return &Repo{
		rdb:         rdb,
		prefix:      prefix,
		ttl:         ttl,
		keyLatest:   prefix + ":latest",
		eventStream: eventStream,
		eventChan:   eventChan,
		maxLen:      defaultStreamMaxLen,
	}
}

// SaveEvent XADD 到 stream，PUBLISH 到频道，并更新每个交易对的最新事件
func (r *Repo) SaveEvent(ctx context.Context, ev domain.Event) error {
	rec, err := storage.NewEventRecord(ev)
	if err != nil {
		return err
	}

	pipe := r.rdb.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: r.eventStream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"ts_ms":   rec.TsMs,
			"kind":    rec.Kind,
			"symbol":  rec.Symbol,
			"percent": rec.Percent,
			"payload": rec.Payload,
		},
	})
	pipe.Publish(ctx, r.eventChan, rec.Payload)

	// Hash: field = "PUMP:WIF-USDT" -> json
	field := fmt.Sprintf("%s:%s", rec.Kind, rec.Symbol)
	pipe.HSet(ctx, r.keyLatest, field, rec.Payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	msgs, err := r.rdb.XRevRangeN(ctx, r.eventStream, "+", "-", int64(storage.ClampLimit(limit))).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(msgs))
	for _, m := range msgs {
		payload, ok := m.Values["payload"].(string)
		if !ok {
			continue
		}
		ev, err := storage.DecodeEvent(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// Latest 某类事件在某交易对上的最近一次
func (r *Repo) Latest(ctx context.Context, kind domain.EventKind, symbol string) (domain.Event, bool, error) {
	payload, err := r.rdb.HGet(ctx, r.keyLatest, fmt.Sprintf("%s:%s", kind, symbol)).Result()
	if err == redis.Nil {
		return domain.Event{}, false, nil
	}
	if err != nil {
		return domain.Event{}, false, err
	}
	ev, err := storage.DecodeEvent(payload)
	if err != nil {
		return domain.Event{}, false, err
	}
	return ev, true, nil
}

// Channel 事件发布频道
func (r *Repo) Channel() string { return r.eventChan }

// Close 连接由 container 统一关闭
func (r *Repo) Close() error { return nil }

var _ port.EventRepository = (*Repo)(nil)
