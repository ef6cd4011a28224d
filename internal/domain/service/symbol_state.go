package service

import (
	"strings"
	"sync"
	"time"

	"pumpradar/internal/domain"
)

// SymbolState 单个交易对的行情窗口与检测状态
// feed 写入和 worker 检测都会访问，临界区很短
type SymbolState struct {
	mu sync.Mutex

	Symbol string
	series *domain.Series

	lastEventAt   time.Time
	lastPumpPrice float64 // 0 表示没有记录
	lastPumpAt    time.Time
	lastDumpPrice float64
	lastDumpAt    time.Time

	lastHeartbeat time.Time
}

// NewSymbolState 创建交易对状态
func NewSymbolState(symbol string, capacity int) *SymbolState {
	return &SymbolState{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		series: domain.NewSeries(capacity),
	}
}

// Apply 把一条行情更新写入窗口，返回是否产生了新的价格/成交量/K 线样本
// 仅有盘口更新时返回 false，调用方不需要重新调度检测
func (s *SymbolState) Apply(u domain.Update, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch u.Kind {
	case domain.UpdateLastPrice, domain.UpdateBookTicker:
		s.series.PushPrice(u.Price, now)
		return true
	case domain.UpdateKline:
		if u.HasPrice {
			s.series.PushPrice(u.Price, now)
		}
		s.series.PushVolume(u.Volume)
		s.series.MergeCandle(u.Candle)
		return true
	case domain.UpdateDepth:
		s.series.SetOrderBook(u.Book)
		return false
	default:
		return false
	}
}

// Snapshot 简要状态，用于日志和健康检查
type Snapshot struct {
	Symbol      string
	Ticks       int
	LastPrice   float64
	LastEventAt time.Time
}

func (s *SymbolState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	px, _ := s.series.LastPrice()
	return Snapshot{
		Symbol:      s.Symbol,
		Ticks:       s.series.Len(),
		LastPrice:   px,
		LastEventAt: s.lastEventAt,
	}
}

// HeartbeatDue 距离上次心跳超过 every 时返回 true 并记录本次时间
func (s *SymbolState) HeartbeatDue(now time.Time, every time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastHeartbeat.IsZero() && now.Sub(s.lastHeartbeat) < every {
		return false
	}
	s.lastHeartbeat = now
	return true
}
