package port

import "context"

// FundingFetcher 单个交易对资金费率查询
type FundingFetcher interface {
	FundingRate(ctx context.Context, symbol string) (float64, error)
}

// SymbolSource 可交易合约列表
type SymbolSource interface {
	Discover(ctx context.Context) ([]string, error)
}
