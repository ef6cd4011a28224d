package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"pumpradar/internal/domain"
)

func marker(kind domain.EventKind) string {
	switch kind {
	case domain.EventPump:
		return "🟡"
	case domain.EventDump:
		return "🔵"
	default:
		return "🔴"
	}
}

func title(kind domain.EventKind) string {
	if kind == domain.EventOverpump {
		return "OVERPUMP — SHORT ZONE"
	}
	return string(kind)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatEvent HTML 格式的事件消息
func FormatEvent(ev domain.Event) string {
	lines := make([]string, 0, 24)
	lines = append(lines, fmt.Sprintf("%s <b>%s</b>\n", marker(ev.Kind), title(ev.Kind)))
	lines = append(lines, fmt.Sprintf("🪙 <b>Symbol:</b> <code>%s</code>\n", ev.Symbol))
	lines = append(lines, fmt.Sprintf("💰 <b>Price:</b> <code>%s</code>\n", num(ev.Price)))
	lines = append(lines, fmt.Sprintf("📈 <b>Change:</b> <code>%.2f%%</code>\n", ev.Percent))
	lines = append(lines, fmt.Sprintf("📊 <b>Volume:</b> <code>%s</code>\n", num(ev.Volume)))
	if ev.FundingRate != nil {
		lines = append(lines, fmt.Sprintf("⚡ <b>Funding rate:</b> <code>%s</code>\n", num(*ev.FundingRate)))
	}

	if c, ok := ev.LastCandle(); ok {
		lines = append(lines, "🕯 <b>Candle (1m):</b>")
		lines = append(lines,
			fmt.Sprintf("   > open: <code>%s</code>", num(c.Open)),
			fmt.Sprintf("   > high: <code>%s</code>", num(c.High)),
			fmt.Sprintf("   > low: <code>%s</code>", num(c.Low)),
			fmt.Sprintf("   > close: <code>%s</code>", num(c.Close)),
			fmt.Sprintf("   > volume: <code>%s</code>", num(c.Volume)),
		)
		lines = append(lines, "\n")
	}

	if ob := ev.OrderBook; ob != nil && (len(ob.Bids) > 0 || len(ob.Asks) > 0) {
		lines = append(lines, "📘 <b>Orderbook (top):</b>")
		if len(ob.Bids) > 0 {
			lines = append(lines, "  🟢 <b>Bids:</b>")
			for _, l := range top(ob.Bids, 3) {
				lines = append(lines, fmt.Sprintf("    <code>%s × %s</code>", num(l.Price), num(l.Qty)))
			}
		}
		if len(ob.Asks) > 0 {
			lines = append(lines, "  🔴 <b>Asks:</b>")
			for _, l := range top(ob.Asks, 3) {
				lines = append(lines, fmt.Sprintf("    <code>%s × %s</code>", num(l.Price), num(l.Qty)))
			}
		}
		lines = append(lines, "\n")
	}

	return strings.Join(lines, "\n")
}

func top(levels []domain.Level, n int) []domain.Level {
	if len(levels) > n {
		return levels[:n]
	}
	return levels
}
