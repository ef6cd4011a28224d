package exchange

import (
	"strings"
)

// SymbolConverter 符号转换接口
type SymbolConverter interface {
	// Symbol2Coin 将交易对转换为币种
	// 例: BTC-USDT -> BTC
	Symbol2Coin(symbol string) string

	// Coin2Symbol 将币种或各种写法的交易对转换为标准交易对
	// 例: BTC -> BTC-USDT, btcusdt -> BTC-USDT, BTC_USDT -> BTC-USDT
	Coin2Symbol(coin string) string

	// SymbolSuffix 返回报价币种，例: USDT
	SymbolSuffix() string
}

// DashSymbolConverter BingX 永续合约使用 "BASE-QUOTE" 格式
type DashSymbolConverter struct {
	quote string
}

// NewDashSymbolConverter 创建符号转换器
func NewDashSymbolConverter(quote string) *DashSymbolConverter {
	q := strings.ToUpper(strings.TrimSpace(quote))
	if q == "" {
		q = "USDT"
	}
	return &DashSymbolConverter{quote: q}
}

func (c *DashSymbolConverter) SymbolSuffix() string {
	return c.quote
}

func (c *DashSymbolConverter) Symbol2Coin(symbol string) string {
	sym := c.Coin2Symbol(symbol)
	return strings.TrimSuffix(sym, "-"+c.quote)
}

func (c *DashSymbolConverter) Coin2Symbol(coin string) string {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return ""
	}
	coin = strings.NewReplacer("_", "-", "/", "-").Replace(coin)

	if strings.HasSuffix(coin, "-"+c.quote) {
		return coin
	}
	// 没有分隔符但带报价币种，例如 BTCUSDT
	if base, ok := strings.CutSuffix(coin, c.quote); ok && base != "" && !strings.Contains(base, "-") {
		return base + "-" + c.quote
	}
	if strings.Contains(coin, "-") {
		return coin
	}
	return coin + "-" + c.quote
}
