package monitor

import (
	"context"
	"time"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain/service"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// WorkerPool 从 DispatchQueue 取交易对执行检测
type WorkerPool struct {
	group      int
	n          int
	queue      *DispatchQueue
	state      *State
	classifier *service.Classifier
	emitter    port.Emitter
	perf       *PerfStats

	popTimeout time.Duration
	heartbeat  time.Duration
	minSamples int // 样本不足时不打心跳
	now        func() time.Time
}

func NewWorkerPool(group, n int, q *DispatchQueue, st *State, cls *service.Classifier, em port.Emitter, perf *PerfStats) *WorkerPool {
	if n <= 0 {
		n = 3
	}
	minSamples := 0
	if cls != nil {
		minSamples = cls.Thresholds().MinSamples
	}
	return &WorkerPool{
		group:      group,
		n:          n,
		queue:      q,
		state:      st,
		classifier: cls,
		emitter:    em,
		perf:       perf,
		popTimeout: time.Second,
		heartbeat:  60 * time.Second,
		minSamples: minSamples,
		now:        time.Now,
	}
}

// Run 启动 n 个 worker，ctx 取消后等待全部退出
func (w *WorkerPool) Run(ctx context.Context) {
	var wg conc.WaitGroup
	for i := 0; i < w.n; i++ {
		id := i
		wg.Go(func() { w.loop(ctx, id) })
	}
	wg.Wait()
}

func (w *WorkerPool) loop(ctx context.Context, id int) {
	for ctx.Err() == nil {
		sym, ok := w.queue.Pop(ctx, w.popTimeout)
		if !ok {
			continue
		}
		w.process(id, sym)
	}
}

func (w *WorkerPool) process(id int, symbol string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Int("group", w.group).
				Int("worker", id).
				Str("symbol", symbol).
				Interface("panic", r).
				Msg("classification panicked")
		}
	}()

	now := w.now()
	if !w.queue.Begin(symbol, now) {
		return
	}
	st := w.state.Get(symbol)
	if st == nil {
		return
	}

	start := time.Now()
	ev, hit := w.classifier.Evaluate(st, now)
	elapsed := time.Since(start)

	if snap := st.Snapshot(); snap.Ticks >= w.minSamples && st.HeartbeatDue(now, w.heartbeat) {
		log.Debug().
			Str("symbol", snap.Symbol).
			Float64("last_price", snap.LastPrice).
			Int("ticks", snap.Ticks).
			Msg("heartbeat")
	}

	if hit {
		w.emitter.Emit(ev)
	}

	if r, due := w.perf.Record(elapsed, w.now()); due {
		log.Info().
			Int("group", w.group).
			Int("worker", id).
			Int("count", r.Count).
			Float64("per_sec", r.Throughput).
			Float64("avg_ms", ms(r.Avg)).
			Float64("median_ms", ms(r.Median)).
			Float64("min_ms", ms(r.Min)).
			Float64("max_ms", ms(r.Max)).
			Int("queue", w.queue.Len()).
			Int("pending", w.queue.PendingLen()).
			Msg("classification stats")
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
