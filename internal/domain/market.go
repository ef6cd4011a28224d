package domain

// Candle 一根 K 线，以开盘时间（毫秒）为键
type Candle struct {
	OpenTime int64   `json:"time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Level 订单簿的一档
type Level struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// OrderBook 最新的盘口快照，每次更新整体替换，不保留历史
type OrderBook struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// Clone 深拷贝，事件不与行情缓冲共享切片
func (b *OrderBook) Clone() *OrderBook {
	if b == nil {
		return nil
	}
	return &OrderBook{
		Bids: append([]Level(nil), b.Bids...),
		Asks: append([]Level(nil), b.Asks...),
	}
}

// UpdateKind 行情更新的类别，由消息中出现的字段决定
type UpdateKind int

const (
	UpdateLastPrice UpdateKind = iota + 1
	UpdateKline
	UpdateBookTicker
	UpdateDepth
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateLastPrice:
		return "lastPrice"
	case UpdateKline:
		return "kline"
	case UpdateBookTicker:
		return "bookTicker"
	case UpdateDepth:
		return "depth"
	default:
		return "unknown"
	}
}

// Update 解码后的一条行情更新
//
//	UpdateLastPrice / UpdateBookTicker: Price
//	UpdateKline: Price (HasPrice), Volume, Candle
//	UpdateDepth: Book
type Update struct {
	Kind     UpdateKind
	Symbol   string
	Price    float64
	HasPrice bool
	Volume   float64
	Candle   Candle
	Book     *OrderBook
}
