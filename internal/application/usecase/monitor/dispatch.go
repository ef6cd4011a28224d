package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DispatchQueue 有界、去重、限频的检测任务队列
// 同一交易对在队列中最多出现一次，队列满时直接丢弃
type DispatchQueue struct {
	ch       chan string
	interval time.Duration

	mu            sync.Mutex
	pending       map[string]struct{}
	lastEnqueued  map[string]time.Time
	lastProcessed map[string]time.Time

	dropped atomic.Int64
}

func NewDispatchQueue(capacity int, interval time.Duration) *DispatchQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &DispatchQueue{
		ch:            make(chan string, capacity),
		interval:      interval,
		pending:       make(map[string]struct{}),
		lastEnqueued:  make(map[string]time.Time),
		lastProcessed: make(map[string]time.Time),
	}
}

// Offer 尝试入队，返回是否成功
func (q *DispatchQueue) Offer(symbol string, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t, ok := q.lastEnqueued[symbol]; ok && now.Sub(t) < q.interval {
		return false
	}
	if t, ok := q.lastProcessed[symbol]; ok && now.Sub(t) < q.interval {
		return false
	}
	if _, ok := q.pending[symbol]; ok {
		return false
	}

	select {
	case q.ch <- symbol:
		q.pending[symbol] = struct{}{}
		q.lastEnqueued[symbol] = now
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop 等待一个任务，超时或 ctx 取消返回 false
func (q *DispatchQueue) Pop(ctx context.Context, timeout time.Duration) (string, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", false
	case <-timer.C:
		return "", false
	case sym := <-q.ch:
		return sym, true
	}
}

// Begin 出队后调用：清除 pending，再按上次处理时间做一次限频
// 返回 true 表示本次应该执行检测，并记录处理时间
func (q *DispatchQueue) Begin(symbol string, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.pending, symbol)
	if t, ok := q.lastProcessed[symbol]; ok && now.Sub(t) < q.interval {
		return false
	}
	q.lastProcessed[symbol] = now
	return true
}

func (q *DispatchQueue) Len() int { return len(q.ch) }

func (q *DispatchQueue) Cap() int { return cap(q.ch) }

func (q *DispatchQueue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *DispatchQueue) Dropped() int64 { return q.dropped.Load() }
