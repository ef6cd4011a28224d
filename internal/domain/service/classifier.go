package service

import (
	"math"
	"time"

	"pumpradar/internal/domain"
)

// Thresholds 检测阈值，均为固定的经验值
type Thresholds struct {
	MinSamples           int           // 至少多少个价格样本才检测
	Cooldown             time.Duration // 任意两次事件的最小间隔
	Window               time.Duration // 极值统计窗口
	MinVolatility        float64       // 窗口波动率下限 (high-low)/low
	MinMovePercent       float64       // PUMP/DUMP 最小幅度 (%)
	MaxMovePercent       float64       // PUMP/DUMP 最大幅度 (%)
	MinDuration          time.Duration // 从极值点起算的最短时间
	MaxDuration          time.Duration // 从极值点起算的最长时间
	MinRepeatPriceChange float64       // 同类事件重复通知所需的价格变化
	PriceResetTimeout    time.Duration // 超过该时间清空重复抑制状态
	OverpumpFunding      float64       // OVERPUMP 资金费率下限
	OverpumpPremium      float64       // OVERPUMP 价格相对均价倍数
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSamples:           30,
		Cooldown:             30 * time.Second,
		Window:               300 * time.Second,
		MinVolatility:        0.02,
		MinMovePercent:       5,
		MaxMovePercent:       30,
		MinDuration:          5 * time.Second,
		MaxDuration:          300 * time.Second,
		MinRepeatPriceChange: 0.05,
		PriceResetTimeout:    3600 * time.Second,
		OverpumpFunding:      0.01,
		OverpumpPremium:      1.03,
	}
}

// FundingLookup 只读缓存查询，过期或缺失时返回 false，不会触发请求
type FundingLookup interface {
	Lookup(symbol string, now time.Time) (float64, bool)
}

// Classifier 根据行情窗口判定 PUMP / DUMP / OVERPUMP
type Classifier struct {
	th      Thresholds
	funding FundingLookup
}

// NewClassifier 创建分类器，funding 可以为 nil
func NewClassifier(th Thresholds, funding FundingLookup) *Classifier {
	return &Classifier{th: th, funding: funding}
}

func (c *Classifier) Thresholds() Thresholds { return c.th }

// Evaluate 对一个交易对执行一轮检测，命中时返回事件并更新冷却和重复抑制状态
// 每轮最多产生一个事件
func (c *Classifier) Evaluate(st *SymbolState, now time.Time) (domain.Event, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.series
	if s.Len() < c.th.MinSamples {
		return domain.Event{}, false
	}
	if !st.lastEventAt.IsZero() && now.Sub(st.lastEventAt) < c.th.Cooldown {
		return domain.Event{}, false
	}

	ex, ok := s.WindowExtrema(now, c.th.Window)
	if !ok || ex.Volatility < c.th.MinVolatility {
		return domain.Event{}, false
	}

	cur, _ := s.LastPrice()
	deltaUp := (cur - ex.Low) / ex.Low * 100
	deltaDown := (cur - ex.High) / ex.High * 100
	durationUp := now.Sub(ex.LowAt)
	durationDown := now.Sub(ex.HighAt)

	if !st.lastPumpAt.IsZero() && now.Sub(st.lastPumpAt) > c.th.PriceResetTimeout {
		st.lastPumpPrice = 0
		st.lastPumpAt = time.Time{}
	}
	if !st.lastDumpAt.IsZero() && now.Sub(st.lastDumpAt) > c.th.PriceResetTimeout {
		st.lastDumpPrice = 0
		st.lastDumpAt = time.Time{}
	}

	if c.inMoveBand(deltaUp) && c.inDurationBand(durationUp) {
		if c.repeatAllowed(st.lastPumpPrice, cur) {
			st.lastEventAt = now
			st.lastPumpPrice = cur
			st.lastPumpAt = now
			return c.event(domain.EventPump, st, cur, deltaUp, nil, now), true
		}
	}

	if c.inMoveBand(-deltaDown) && c.inDurationBand(durationDown) {
		if c.repeatAllowed(st.lastDumpPrice, cur) {
			st.lastEventAt = now
			st.lastDumpPrice = cur
			st.lastDumpAt = now
			return c.event(domain.EventDump, st, cur, math.Abs(deltaDown), nil, now), true
		}
	}

	// vwap 取整个保留窗口的均价，与上面 300s 窗口不同
	vwap, _ := s.MeanPrice()
	if c.funding == nil {
		return domain.Event{}, false
	}
	funding, ok := c.funding.Lookup(st.Symbol, now)
	if !ok {
		return domain.Event{}, false
	}
	if funding > c.th.OverpumpFunding && cur > vwap*c.th.OverpumpPremium {
		st.lastEventAt = now
		premium := (cur/vwap - 1) * 100
		return c.event(domain.EventOverpump, st, cur, premium, &funding, now), true
	}
	return domain.Event{}, false
}

func (c *Classifier) inMoveBand(pct float64) bool {
	return pct >= c.th.MinMovePercent && pct <= c.th.MaxMovePercent
}

func (c *Classifier) inDurationBand(d time.Duration) bool {
	return d >= c.th.MinDuration && d <= c.th.MaxDuration
}

func (c *Classifier) repeatAllowed(last, cur float64) bool {
	if last <= 0 {
		return true
	}
	return math.Abs(cur-last)/last >= c.th.MinRepeatPriceChange
}

func (c *Classifier) event(kind domain.EventKind, st *SymbolState, price, pct float64, funding *float64, now time.Time) domain.Event {
	return domain.Event{
		Kind:        kind,
		Symbol:      st.Symbol,
		Price:       price,
		Percent:     pct,
		Volume:      st.series.VolumeSum(),
		Candles:     st.series.Candles(),
		OrderBook:   st.series.OrderBook(),
		FundingRate: funding,
		At:          now,
	}
}
