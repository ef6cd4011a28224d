package bingx

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"pumpradar/internal/domain"

	"github.com/shopspring/decimal"
)

const pingFrame = "Ping"

// gunzip 行情帧都是 gzip 压缩的
func gunzip(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// DecodeMessage 解析解压后的 JSON 消息
// data 可以是对象或数组，无法识别的条目直接跳过
func DecodeMessage(text []byte) ([]domain.Update, error) {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()

	var msg map[string]any
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	// 一帧只能有一个 JSON 值
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("decode message: %w", ErrTrailingData)
	}

	dataType, _ := msg["dataType"].(string)
	envSym, _ := msg["s"].(string)

	var out []domain.Update
	switch data := msg["data"].(type) {
	case map[string]any:
		if u, ok := decodeItem(data, dataType, envSym); ok {
			out = append(out, u)
		}
	case []any:
		for _, it := range data {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if u, ok := decodeItem(m, dataType, envSym); ok {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

// decodeItem 按字段判断消息类型
// 顺序: lastPrice > kline > bookTicker > depth
func decodeItem(d map[string]any, dataType, envSym string) (domain.Update, bool) {
	sym := resolveSymbol(d, dataType, envSym)
	if sym == "" {
		return domain.Update{}, false
	}

	_, hasC := d["c"]
	_, hasV := d["v"]
	_, hasT := d["T"]
	e, _ := d["e"].(string)

	switch {
	case hasC && e == "lastPriceUpdate":
		px, ok := toFloat(d["c"])
		if !ok {
			return domain.Update{}, false
		}
		return domain.Update{Kind: domain.UpdateLastPrice, Symbol: sym, Price: px, HasPrice: true}, true

	case hasV && hasT:
		u := domain.Update{Kind: domain.UpdateKline, Symbol: sym}
		if px, ok := toFloat(d["c"]); ok {
			u.Price, u.HasPrice = px, true
		}
		u.Volume, _ = toFloat(d["v"])
		u.Candle = domain.Candle{
			OpenTime: toInt64(d["T"]),
			Open:     floatOrZero(d["o"]),
			High:     floatOrZero(d["h"]),
			Low:      floatOrZero(d["l"]),
			Close:    floatOrZero(d["c"]),
			Volume:   u.Volume,
		}
		return u, true

	case e == "bookTicker":
		px, ok := toFloat(d["a"])
		if !ok {
			px, ok = toFloat(d["b"])
		}
		if !ok {
			return domain.Update{}, false
		}
		return domain.Update{Kind: domain.UpdateBookTicker, Symbol: sym, Price: px, HasPrice: true}, true
	}

	bids, hasBids := d["bids"]
	asks, hasAsks := d["asks"]
	if hasBids && hasAsks {
		return domain.Update{
			Kind:   domain.UpdateDepth,
			Symbol: sym,
			Book:   &domain.OrderBook{Bids: toLevels(bids), Asks: toLevels(asks)},
		}, true
	}
	return domain.Update{}, false
}

// resolveSymbol 优先条目自身的 s，其次外层 s，最后取 dataType 的 "SYMBOL@channel" 前缀
func resolveSymbol(d map[string]any, dataType, envSym string) string {
	if s, ok := d["s"].(string); ok && s != "" {
		return strings.ToUpper(s)
	}
	if envSym != "" {
		return strings.ToUpper(envSym)
	}
	if dataType != "" {
		if i := strings.IndexByte(dataType, '@'); i > 0 {
			return strings.ToUpper(dataType[:i])
		}
		return strings.ToUpper(dataType)
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	case float64:
		return x, true
	}
	return 0, false
}

func floatOrZero(v any) float64 {
	f, _ := toFloat(v)
	return f
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := toFloat(x)
		return int64(f)
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return 0
		}
		return d.IntPart()
	case float64:
		return int64(x)
	}
	return 0
}

// toLevels 盘口档位: [[price, qty], ...] 或 [{"p":..,"a":..}, ...]
func toLevels(v any) []domain.Level {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]domain.Level, 0, len(arr))
	for _, it := range arr {
		switch x := it.(type) {
		case []any:
			if len(x) < 2 {
				continue
			}
			p, ok1 := toFloat(x[0])
			q, ok2 := toFloat(x[1])
			if ok1 && ok2 {
				out = append(out, domain.Level{Price: p, Qty: q})
			}
		case map[string]any:
			p, ok1 := toFloat(firstOf(x, "p", "price"))
			q, ok2 := toFloat(firstOf(x, "a", "v", "qty"))
			if ok1 && ok2 {
				out = append(out, domain.Level{Price: p, Qty: q})
			}
		}
	}
	return out
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}
