package domain

import "time"

// DefaultSeriesCapacity 每个交易对保留的样本数
const DefaultSeriesCapacity = 240

// Series 单个交易对的滚动行情窗口：价格/时间成对保存，成交量与 K 线各自独立
type Series struct {
	prices  *Ring[float64]
	times   *Ring[time.Time]
	volumes *Ring[float64]
	candles *Ring[Candle]
	book    *OrderBook
}

// NewSeries 创建固定容量的行情窗口
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}
	return &Series{
		prices:  NewRing[float64](capacity),
		times:   NewRing[time.Time](capacity),
		volumes: NewRing[float64](capacity),
		candles: NewRing[Candle](capacity),
	}
}

// PushPrice 追加一个价格样本
func (s *Series) PushPrice(price float64, at time.Time) {
	s.prices.Push(price)
	s.times.Push(at)
}

// PushVolume 追加一个成交量样本
func (s *Series) PushVolume(v float64) {
	s.volumes.Push(v)
}

// MergeCandle 与末尾 K 线开盘时间相同则替换（未收盘的 K 线在更新），否则追加
func (s *Series) MergeCandle(c Candle) {
	if last, ok := s.candles.Last(); ok && last.OpenTime == c.OpenTime {
		s.candles.SetLast(c)
		return
	}
	s.candles.Push(c)
}

// SetOrderBook 整体替换盘口快照
func (s *Series) SetOrderBook(b *OrderBook) {
	s.book = b
}

// Len 价格样本数
func (s *Series) Len() int { return s.prices.Len() }

func (s *Series) Cap() int { return s.prices.Cap() }

func (s *Series) PriceAt(i int) float64 { return s.prices.At(i) }

func (s *Series) TimeAt(i int) time.Time { return s.times.At(i) }

// LastPrice 最新价格
func (s *Series) LastPrice() (float64, bool) { return s.prices.Last() }

// Candles 返回 K 线副本
func (s *Series) Candles() []Candle { return s.candles.Slice() }

func (s *Series) CandleCount() int { return s.candles.Len() }

// OrderBook 返回盘口快照副本，没有快照时为 nil
func (s *Series) OrderBook() *OrderBook { return s.book.Clone() }

// MeanPrice 整个保留窗口内价格的算术平均（并非真正的成交量加权）
func (s *Series) MeanPrice() (float64, bool) {
	n := s.prices.Len()
	if n == 0 {
		return 0, false
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += s.prices.At(i)
	}
	return sum / float64(n), true
}

// VolumeSum 保留窗口内成交量之和
func (s *Series) VolumeSum() float64 {
	var sum float64
	for i := 0; i < s.volumes.Len(); i++ {
		sum += s.volumes.At(i)
	}
	return sum
}

// Extrema 时间窗口内的极值
type Extrema struct {
	Low        float64
	LowIndex   int
	LowAt      time.Time
	High       float64
	HighIndex  int
	HighAt     time.Time
	Samples    int
	Volatility float64 // (high-low)/low
}

// WindowExtrema 统计 now-at <= window 的样本的最高/最低价
// 窗口内不足 2 个样本时 ok 为 false，调用方应跳过本轮
func (s *Series) WindowExtrema(now time.Time, window time.Duration) (Extrema, bool) {
	var ex Extrema
	first := true
	for i := 0; i < s.prices.Len(); i++ {
		at := s.times.At(i)
		if now.Sub(at) > window {
			continue
		}
		p := s.prices.At(i)
		ex.Samples++
		if first {
			ex.Low, ex.LowIndex, ex.LowAt = p, i, at
			ex.High, ex.HighIndex, ex.HighAt = p, i, at
			first = false
			continue
		}
		if p < ex.Low {
			ex.Low, ex.LowIndex, ex.LowAt = p, i, at
		}
		if p > ex.High {
			ex.High, ex.HighIndex, ex.HighAt = p, i, at
		}
	}
	if ex.Samples < 2 {
		return ex, false
	}
	if ex.Low > 0 {
		ex.Volatility = (ex.High - ex.Low) / ex.Low
	}
	return ex, true
}
