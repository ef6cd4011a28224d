package monitor

import (
	"context"
	"errors"
	"time"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain/service"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// MaxGroupSize 单个连接最多订阅的交易对数
const MaxGroupSize = 50

type ServiceDeps struct {
	Symbols          []string
	GroupSize        int           // <= 50
	Stagger          time.Duration // 分组启动间隔
	Workers          int           // 每组 worker 数
	DispatchInterval time.Duration // 同一交易对两次检测的最小间隔
	BufferCapacity   int
	PerfEvery        time.Duration
	Heartbeat        time.Duration

	Classifier *service.Classifier
	Emitter    port.Emitter
	NewFeed    port.FeedFactory
}

func (d *ServiceDeps) applyDefaults() {
	if d.GroupSize <= 0 || d.GroupSize > MaxGroupSize {
		d.GroupSize = MaxGroupSize
	}
	if d.Stagger < 0 {
		d.Stagger = 0
	}
	if d.Workers <= 0 {
		d.Workers = 3
	}
	if d.DispatchInterval <= 0 {
		d.DispatchInterval = 500 * time.Millisecond
	}
	if d.PerfEvery <= 0 {
		d.PerfEvery = 10 * time.Second
	}
	if d.Heartbeat <= 0 {
		d.Heartbeat = 60 * time.Second
	}
}

// Service 按分组启动行情连接和检测 worker
type Service struct {
	deps   ServiceDeps
	st     *State
	groups []*Group
	now    func() time.Time
}

func NewService(deps ServiceDeps) (*Service, error) {
	deps.applyDefaults()
	if deps.Classifier == nil || deps.Emitter == nil || deps.NewFeed == nil {
		return nil, errors.New("monitor: classifier, emitter and feed factory are required")
	}

	s := &Service{
		deps: deps,
		st:   NewState(deps.Symbols, deps.BufferCapacity),
		now:  time.Now,
	}
	if len(s.st.Symbols()) == 0 {
		return nil, errors.New("monitor: no symbols")
	}

	perf := NewPerfStats(deps.PerfEvery, s.now())
	for i, syms := range Shard(s.st.Symbols(), deps.GroupSize) {
		q := NewDispatchQueue(2*len(syms), deps.DispatchInterval)
		wp := NewWorkerPool(i, deps.Workers, q, s.st, deps.Classifier, deps.Emitter, perf)
		wp.heartbeat = deps.Heartbeat
		g := &Group{
			ID:      i,
			Symbols: syms,
			state:   s.st,
			queue:   q,
			workers: wp,
			now:     s.now,
		}
		g.feed = deps.NewFeed(i, syms, g)
		s.groups = append(s.groups, g)
	}
	return s, nil
}

// Shard 把交易对按 size 切分
func Shard(symbols []string, size int) [][]string {
	if size <= 0 {
		size = MaxGroupSize
	}
	var out [][]string
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[i:end])
	}
	return out
}

// Run 依次错开启动各分组，阻塞直到 ctx 取消且所有分组退出
func (s *Service) Run(ctx context.Context) error {
	log.Info().
		Int("symbols", len(s.st.Symbols())).
		Int("groups", len(s.groups)).
		Msg("monitor starting")

	var wg conc.WaitGroup
	for i, g := range s.groups {
		if i > 0 && s.deps.Stagger > 0 {
			t := time.NewTimer(s.deps.Stagger)
			select {
			case <-ctx.Done():
				t.Stop()
				wg.Wait()
				return ctx.Err()
			case <-t.C:
			}
		}
		g := g
		wg.Go(func() { g.Run(ctx) })
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) Symbols() []string { return s.st.Symbols() }

func (s *Service) Status() []GroupStatus {
	out := make([]GroupStatus, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.Status())
	}
	return out
}
