package monitor

import (
	"context"
	"time"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// Group 一个行情连接 + 它自己的调度队列和 worker
type Group struct {
	ID      int
	Symbols []string

	state   *State
	queue   *DispatchQueue
	workers *WorkerPool
	feed    port.MarketFeed
	now     func() time.Time
}

// OnUpdate 行情写入窗口，需要时调度检测
func (g *Group) OnUpdate(u domain.Update) {
	now := g.now()
	if g.state.Apply(u, now) {
		g.queue.Offer(u.Symbol, now)
	}
}

func (g *Group) Run(ctx context.Context) {
	log.Info().Int("group", g.ID).Int("symbols", len(g.Symbols)).Msg("group started")

	var wg conc.WaitGroup
	wg.Go(func() { g.workers.Run(ctx) })
	wg.Go(func() {
		if err := g.feed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Int("group", g.ID).Err(err).Msg("feed stopped")
		}
	})
	wg.Wait()

	log.Info().Int("group", g.ID).Msg("group stopped")
}

// GroupStatus 分组运行状态
type GroupStatus struct {
	ID      int            `json:"id"`
	Symbols int            `json:"symbols"`
	Feed    port.FeedStats `json:"feed"`
	Queue   int            `json:"queue"`
	Pending int            `json:"pending"`
	Dropped int64          `json:"dropped"`
}

func (g *Group) Status() GroupStatus {
	s := GroupStatus{
		ID:      g.ID,
		Symbols: len(g.Symbols),
		Queue:   g.queue.Len(),
		Pending: g.queue.PendingLen(),
		Dropped: g.queue.Dropped(),
	}
	if g.feed != nil {
		s.Feed = g.feed.Stats()
	}
	return s
}
