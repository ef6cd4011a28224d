package bingx

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Discovery 按价格区间筛选 USDT 永续合约
type Discovery struct {
	client   *RESTClient
	quote    string
	minPrice float64
	maxPrice float64
}

func NewDiscovery(client *RESTClient, quote string, minPrice, maxPrice float64) *Discovery {
	if quote == "" {
		quote = "USDT"
	}
	if minPrice <= 0 {
		minPrice = 0.0001
	}
	if maxPrice <= 0 {
		maxPrice = 1.0
	}
	return &Discovery{client: client, quote: strings.ToUpper(quote), minPrice: minPrice, maxPrice: maxPrice}
}

// Discover 返回排序后的交易对列表
func (d *Discovery) Discover(ctx context.Context) ([]string, error) {
	contracts, err := d.client.Contracts(ctx)
	if err != nil {
		return nil, err
	}
	prices, err := d.client.LastPrices(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(contracts))
	seen := make(map[string]struct{}, len(contracts))
	for _, c := range contracts {
		if !strings.HasSuffix(c.Symbol, d.quote) {
			continue
		}
		if _, dup := seen[c.Symbol]; dup {
			continue
		}
		px, ok := prices[c.Symbol]
		if !ok {
			continue
		}
		if px < d.minPrice || px > d.maxPrice {
			continue
		}
		seen[c.Symbol] = struct{}{}
		out = append(out, c.Symbol)
	}
	sort.Strings(out)

	log.Info().
		Int("contracts", len(contracts)).
		Int("selected", len(out)).
		Float64("min_price", d.minPrice).
		Float64("max_price", d.maxPrice).
		Msg("symbols discovered")
	return out, nil
}
