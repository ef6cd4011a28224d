package domain

import (
	"testing"
	"time"
)

// TestRingKeepsMostRecent 写入 capacity+k 个元素后只保留最近的 capacity 个
func TestRingKeepsMostRecent(t *testing.T) {
	r := NewRing[int](240)
	for i := 0; i < 240+17; i++ {
		r.Push(i)
	}

	if r.Len() != 240 {
		t.Fatalf("expected 240 entries, got %d", r.Len())
	}
	for i := 0; i < r.Len(); i++ {
		if got, want := r.At(i), 17+i; got != want {
			t.Fatalf("At(%d) = %d, want %d", i, got, want)
		}
	}
	if last, _ := r.Last(); last != 256 {
		t.Errorf("expected last 256, got %d", last)
	}
}

func TestRingSetLastOnEmpty(t *testing.T) {
	r := NewRing[string](2)
	r.SetLast("a")
	if r.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", r.Len())
	}
	r.Push("b")
	r.Push("c")
	r.SetLast("d")
	got := r.Slice()
	if len(got) != 2 || got[0] != "b" || got[1] != "d" {
		t.Errorf("unexpected slice %v", got)
	}
}

func TestSeriesPriceBufferBound(t *testing.T) {
	s := NewSeries(DefaultSeriesCapacity)
	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < DefaultSeriesCapacity+5; i++ {
		s.PushPrice(float64(i), base.Add(time.Duration(i)*time.Second))
	}

	if s.Len() != DefaultSeriesCapacity {
		t.Fatalf("expected %d prices, got %d", DefaultSeriesCapacity, s.Len())
	}
	if s.PriceAt(0) != 5 {
		t.Errorf("expected oldest price 5, got %v", s.PriceAt(0))
	}
	if !s.TimeAt(0).Equal(base.Add(5 * time.Second)) {
		t.Errorf("timestamps not evicted together with prices")
	}
}

// TestSeriesCandleMerge 相同开盘时间替换，新开盘时间追加
func TestSeriesCandleMerge(t *testing.T) {
	s := NewSeries(10)
	s.MergeCandle(Candle{OpenTime: 60_000, Open: 1, High: 1.1, Low: 0.9, Close: 1.0, Volume: 10})
	s.MergeCandle(Candle{OpenTime: 60_000, Open: 1, High: 1.2, Low: 0.9, Close: 1.15, Volume: 25})

	candles := s.Candles()
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle after in-progress update, got %d", len(candles))
	}
	if candles[0].Close != 1.15 || candles[0].Volume != 25 {
		t.Errorf("later values should win, got %+v", candles[0])
	}

	s.MergeCandle(Candle{OpenTime: 120_000, Open: 1.15, High: 1.15, Low: 1.1, Close: 1.12, Volume: 3})
	if s.CandleCount() != 2 {
		t.Fatalf("expected 2 candles, got %d", s.CandleCount())
	}
}

func TestSeriesWindowExtrema(t *testing.T) {
	s := NewSeries(20)
	now := time.Unix(1_700_000_000, 0)

	s.PushPrice(0.5, now.Add(-400*time.Second)) // outside window
	s.PushPrice(1.00, now.Add(-200*time.Second))
	s.PushPrice(0.98, now.Add(-100*time.Second))
	s.PushPrice(1.05, now.Add(-50*time.Second))
	s.PushPrice(1.01, now)

	ex, ok := s.WindowExtrema(now, 300*time.Second)
	if !ok {
		t.Fatal("expected extrema")
	}
	if ex.Samples != 4 {
		t.Errorf("expected 4 in-window samples, got %d", ex.Samples)
	}
	if ex.Low != 0.98 || ex.LowIndex != 2 {
		t.Errorf("unexpected low %v@%d", ex.Low, ex.LowIndex)
	}
	if ex.High != 1.05 || ex.HighIndex != 3 {
		t.Errorf("unexpected high %v@%d", ex.High, ex.HighIndex)
	}
	want := (1.05 - 0.98) / 0.98
	if diff := ex.Volatility - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("volatility = %v, want %v", ex.Volatility, want)
	}
}

func TestSeriesWindowExtremaInsufficient(t *testing.T) {
	s := NewSeries(10)
	now := time.Unix(1_700_000_000, 0)
	s.PushPrice(1, now.Add(-time.Hour))
	s.PushPrice(1, now)

	if _, ok := s.WindowExtrema(now, 300*time.Second); ok {
		t.Error("a single in-window sample must report insufficient data")
	}
}

func TestSeriesMeanAndVolume(t *testing.T) {
	s := NewSeries(4)
	now := time.Now()
	for _, p := range []float64{1, 2, 3, 4, 5} {
		s.PushPrice(p, now)
	}
	s.PushVolume(10)
	s.PushVolume(5.5)

	mean, ok := s.MeanPrice()
	if !ok || mean != 3.5 {
		t.Errorf("expected mean 3.5 over retained prices, got %v", mean)
	}
	if s.VolumeSum() != 15.5 {
		t.Errorf("expected volume 15.5, got %v", s.VolumeSum())
	}
}

func TestOrderBookCloneIsIndependent(t *testing.T) {
	s := NewSeries(4)
	book := &OrderBook{Bids: []Level{{Price: 1, Qty: 2}}, Asks: []Level{{Price: 1.1, Qty: 3}}}
	s.SetOrderBook(book)

	cp := s.OrderBook()
	book.Bids[0].Qty = 99
	if cp.Bids[0].Qty != 2 {
		t.Errorf("clone aliases source book")
	}
	if NewSeries(1).OrderBook() != nil {
		t.Errorf("expected nil book before any depth update")
	}
}
