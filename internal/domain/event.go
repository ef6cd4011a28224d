package domain

import "time"

// EventKind 市场事件类别
type EventKind string

const (
	EventPump     EventKind = "PUMP"
	EventDump     EventKind = "DUMP"
	EventOverpump EventKind = "OVERPUMP"
)

// Event 一次检测到的市场事件，构造后不再修改
type Event struct {
	Kind        EventKind  `json:"kind"`
	Symbol      string     `json:"symbol"`
	Price       float64    `json:"price"`
	Percent     float64    `json:"percent"`
	Volume      float64    `json:"volume"`
	Candles     []Candle   `json:"candles,omitempty"`
	OrderBook   *OrderBook `json:"orderbook,omitempty"`
	FundingRate *float64   `json:"funding_rate,omitempty"`
	At          time.Time  `json:"at"`
}

// LastCandle 返回事件携带的最新一根 K 线
func (e Event) LastCandle() (Candle, bool) {
	if len(e.Candles) == 0 {
		return Candle{}, false
	}
	return e.Candles[len(e.Candles)-1], true
}
