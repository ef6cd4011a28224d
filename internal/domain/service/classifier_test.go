package service

import (
	"math"
	"testing"
	"time"

	"pumpradar/internal/domain"
)

type stubFunding map[string]float64

func (s stubFunding) Lookup(symbol string, _ time.Time) (float64, bool) {
	v, ok := s[symbol]
	return v, ok
}

func feed(st *SymbolState, price float64, at time.Time) {
	st.Apply(domain.Update{Kind: domain.UpdateLastPrice, Symbol: st.Symbol, Price: price, HasPrice: true}, at)
}

// 10 个窗口外样本 + 20 个窗口内 1.00 样本，最后一笔 1.06
func pumpState(now time.Time) *SymbolState {
	st := NewSymbolState("ABC-USDT", domain.DefaultSeriesCapacity)
	t0 := now.Add(-400 * time.Second)
	for i := 0; i < 10; i++ {
		feed(st, 1.00, t0.Add(time.Duration(i)*time.Second))
	}
	start := now.Add(-10 * time.Second)
	for i := 0; i < 20; i++ {
		feed(st, 1.00, start.Add(time.Duration(i)*500*time.Millisecond))
	}
	feed(st, 1.06, now)
	return st
}

func TestClassifierPump(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st := pumpState(now)
	c := NewClassifier(DefaultThresholds(), nil)

	ev, ok := c.Evaluate(st, now)
	if !ok {
		t.Fatal("expected PUMP event")
	}
	if ev.Kind != domain.EventPump {
		t.Errorf("kind mismatch: expected PUMP, got %s", ev.Kind)
	}
	if math.Abs(ev.Percent-6) > 1e-6 {
		t.Errorf("percent mismatch: expected ~6, got %f", ev.Percent)
	}
	if ev.Price != 1.06 || ev.Symbol != "ABC-USDT" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.FundingRate != nil {
		t.Error("PUMP should not carry funding rate")
	}

	// 冷却期内不再触发
	feed(st, 1.20, now.Add(10*time.Second))
	if _, ok := c.Evaluate(st, now.Add(10*time.Second)); ok {
		t.Error("event inside cooldown")
	}
}

func TestClassifierMinSamples(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st := NewSymbolState("ABC-USDT", domain.DefaultSeriesCapacity)
	for i := 0; i < 28; i++ {
		feed(st, 1.00, now.Add(time.Duration(i-30)*time.Second))
	}
	feed(st, 1.10, now)

	c := NewClassifier(DefaultThresholds(), nil)
	if _, ok := c.Evaluate(st, now); ok {
		t.Error("29 samples should not be evaluated")
	}
}

func TestClassifierDurationTooLong(t *testing.T) {
	now := time.Unix(1700000000, 0)
	th := DefaultThresholds()
	th.Window = 600 * time.Second

	st := NewSymbolState("ABC-USDT", domain.DefaultSeriesCapacity)
	start := now.Add(-400 * time.Second)
	for i := 0; i < 30; i++ {
		feed(st, 1.00, start.Add(time.Duration(i)*time.Second))
	}
	feed(st, 1.06, now)

	c := NewClassifier(th, nil)
	if ev, ok := c.Evaluate(st, now); ok {
		t.Errorf("move over 400s should not fire, got %s", ev.Kind)
	}
}

func TestClassifierDurationTooShort(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st := NewSymbolState("ABC-USDT", domain.DefaultSeriesCapacity)
	start := now.Add(-3 * time.Second)
	for i := 0; i < 30; i++ {
		feed(st, 1.00, start.Add(time.Duration(i)*100*time.Millisecond))
	}
	feed(st, 1.08, now)

	c := NewClassifier(DefaultThresholds(), nil)
	if _, ok := c.Evaluate(st, now); ok {
		t.Error("move within 3s should not fire")
	}
}

func TestClassifierLowVolatility(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st := NewSymbolState("ABC-USDT", domain.DefaultSeriesCapacity)
	for i := 0; i < 40; i++ {
		feed(st, 1.00+float64(i%2)*0.01, now.Add(time.Duration(i-40)*time.Second))
	}
	c := NewClassifier(DefaultThresholds(), stubFunding{"ABC-USDT": 0.05})
	if _, ok := c.Evaluate(st, now); ok {
		t.Error("flat market should not fire")
	}
}

func TestClassifierPumpWinsOverDump(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st := NewSymbolState("ABC-USDT", domain.DefaultSeriesCapacity)
	for i := 0; i < 15; i++ {
		feed(st, 1.0, now.Add(-100*time.Second+time.Duration(i)*time.Second))
	}
	for i := 0; i < 14; i++ {
		feed(st, 1.2, now.Add(-50*time.Second+time.Duration(i)*time.Second))
	}
	feed(st, 1.1, now)

	c := NewClassifier(DefaultThresholds(), nil)
	ev, ok := c.Evaluate(st, now)
	if !ok || ev.Kind != domain.EventPump {
		t.Fatalf("expected PUMP, got %v %s", ok, ev.Kind)
	}

	// 冷却结束后同价位 PUMP 被抑制，DUMP 条件仍然成立
	later := now.Add(31 * time.Second)
	ev, ok = c.Evaluate(st, later)
	if !ok || ev.Kind != domain.EventDump {
		t.Fatalf("expected DUMP after cooldown, got %v %s", ok, ev.Kind)
	}
	want := (1.2 - 1.1) / 1.2 * 100
	if math.Abs(ev.Percent-want) > 1e-6 {
		t.Errorf("percent mismatch: expected %f, got %f", want, ev.Percent)
	}
}

func TestClassifierRepeatSuppression(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := NewClassifier(DefaultThresholds(), nil)

	st := pumpState(now)
	st.lastPumpPrice = 1.05
	st.lastPumpAt = now.Add(-100 * time.Second)
	if _, ok := c.Evaluate(st, now); ok {
		t.Error("repeat PUMP at similar price should be suppressed")
	}

	// 超过重置时间后重新允许
	st = pumpState(now)
	st.lastPumpPrice = 1.05
	st.lastPumpAt = now.Add(-3601 * time.Second)
	ev, ok := c.Evaluate(st, now)
	if !ok || ev.Kind != domain.EventPump {
		t.Fatalf("expected PUMP after reset, got %v %s", ok, ev.Kind)
	}
	if st.lastPumpPrice != 1.06 {
		t.Errorf("last pump price not updated: %f", st.lastPumpPrice)
	}
}

func TestClassifierRepeatPumpFarEnough(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := NewClassifier(DefaultThresholds(), nil)

	// 1.00 -> 1.06 变化 6%，超过 5% 重复阈值
	st := pumpState(now)
	st.lastPumpPrice = 1.00
	st.lastPumpAt = now.Add(-100 * time.Second)
	ev, ok := c.Evaluate(st, now)
	if !ok || ev.Kind != domain.EventPump {
		t.Fatalf("expected repeat PUMP, got %v %s", ok, ev.Kind)
	}
	if st.lastPumpPrice != 1.06 {
		t.Errorf("last pump price not updated: %f", st.lastPumpPrice)
	}
	if !st.lastPumpAt.Equal(now) {
		t.Errorf("last pump time not updated: %v", st.lastPumpAt)
	}
}

// 窗口内 1.00，最后一笔 0.94
func dumpState(now time.Time) *SymbolState {
	st := NewSymbolState("ABC-USDT", domain.DefaultSeriesCapacity)
	t0 := now.Add(-400 * time.Second)
	for i := 0; i < 10; i++ {
		feed(st, 1.00, t0.Add(time.Duration(i)*time.Second))
	}
	start := now.Add(-10 * time.Second)
	for i := 0; i < 20; i++ {
		feed(st, 1.00, start.Add(time.Duration(i)*500*time.Millisecond))
	}
	feed(st, 0.94, now)
	return st
}

func TestClassifierRepeatDump(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := NewClassifier(DefaultThresholds(), nil)

	st := dumpState(now)
	st.lastDumpPrice = 0.95
	st.lastDumpAt = now.Add(-100 * time.Second)
	if _, ok := c.Evaluate(st, now); ok {
		t.Error("repeat DUMP at similar price should be suppressed")
	}

	st = dumpState(now)
	st.lastDumpPrice = 1.00
	st.lastDumpAt = now.Add(-100 * time.Second)
	ev, ok := c.Evaluate(st, now)
	if !ok || ev.Kind != domain.EventDump {
		t.Fatalf("expected repeat DUMP, got %v %s", ok, ev.Kind)
	}
	if math.Abs(ev.Percent-6) > 1e-6 {
		t.Errorf("percent mismatch: expected ~6, got %f", ev.Percent)
	}
	if st.lastDumpPrice != 0.94 {
		t.Errorf("last dump price not updated: %f", st.lastDumpPrice)
	}
}

func overpumpState(now time.Time) *SymbolState {
	st := NewSymbolState("XYZ-USDT", domain.DefaultSeriesCapacity)
	t0 := now.Add(-1000 * time.Second)
	for i := 0; i < 200; i++ {
		feed(st, 0.90, t0.Add(time.Duration(i)*time.Second))
	}
	for i := 0; i < 10; i++ {
		feed(st, 0.98, now.Add(time.Duration(i-20)*time.Second))
	}
	feed(st, 1.00, now)
	return st
}

func TestClassifierOverpump(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st := overpumpState(now)
	c := NewClassifier(DefaultThresholds(), stubFunding{"XYZ-USDT": 0.015})

	ev, ok := c.Evaluate(st, now)
	if !ok {
		t.Fatal("expected OVERPUMP event")
	}
	if ev.Kind != domain.EventOverpump {
		t.Fatalf("kind mismatch: expected OVERPUMP, got %s", ev.Kind)
	}
	if ev.FundingRate == nil || *ev.FundingRate != 0.015 {
		t.Errorf("funding rate not attached: %v", ev.FundingRate)
	}
	vwap := (200*0.90 + 10*0.98 + 1.00) / 211
	want := (1.00/vwap - 1) * 100
	if math.Abs(ev.Percent-want) > 1e-6 {
		t.Errorf("premium mismatch: expected %f, got %f", want, ev.Percent)
	}
}

func TestClassifierOverpumpNeedsFunding(t *testing.T) {
	now := time.Unix(1700000000, 0)

	low := NewClassifier(DefaultThresholds(), stubFunding{"XYZ-USDT": 0.005})
	if _, ok := low.Evaluate(overpumpState(now), now); ok {
		t.Error("funding below threshold should not fire")
	}

	missing := NewClassifier(DefaultThresholds(), stubFunding{})
	if _, ok := missing.Evaluate(overpumpState(now), now); ok {
		t.Error("missing funding should not fire")
	}
}

func TestSymbolStateApply(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st := NewSymbolState(" abc-usdt ", 10)
	if st.Symbol != "ABC-USDT" {
		t.Errorf("symbol not normalized: %q", st.Symbol)
	}

	book := &domain.OrderBook{Bids: []domain.Level{{Price: 1, Qty: 2}}}
	if st.Apply(domain.Update{Kind: domain.UpdateDepth, Book: book}, now) {
		t.Error("depth update should not request evaluation")
	}
	if !st.Apply(domain.Update{Kind: domain.UpdateKline, Price: 1.5, HasPrice: true, Volume: 3,
		Candle: domain.Candle{OpenTime: 60000, Close: 1.5, Volume: 3}}, now) {
		t.Error("kline update should request evaluation")
	}

	snap := st.Snapshot()
	if snap.Ticks != 1 || snap.LastPrice != 1.5 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	if !st.HeartbeatDue(now, time.Minute) {
		t.Error("first heartbeat should be due")
	}
	if st.HeartbeatDue(now.Add(30*time.Second), time.Minute) {
		t.Error("heartbeat within interval")
	}
	if !st.HeartbeatDue(now.Add(61*time.Second), time.Minute) {
		t.Error("heartbeat after interval")
	}
}
