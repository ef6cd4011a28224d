package service

import (
	"context"
	"sync"
	"time"

	"pumpradar/internal/application/port"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// FundingCacheConfig 资金费率缓存参数
type FundingCacheConfig struct {
	TTL          time.Duration // 缓存有效期
	Interval     time.Duration // 后台刷新间隔
	FetchTimeout time.Duration // 单次请求超时
	BatchSize    int           // 并发请求数
}

func (c *FundingCacheConfig) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 60 * time.Second
	}
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
}

type fundingEntry struct {
	rate      float64
	fetchedAt time.Time
}

// FundingRateCache 资金费率缓存
// 检测路径只读缓存 (Lookup)，后台 Run 定时批量刷新
type FundingRateCache struct {
	fetcher port.FundingFetcher
	cfg     FundingCacheConfig
	symbols []string
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]fundingEntry
}

// NewFundingRateCache 创建资金费率缓存，symbols 为后台刷新的交易对
func NewFundingRateCache(fetcher port.FundingFetcher, symbols []string, cfg FundingCacheConfig) *FundingRateCache {
	cfg.applyDefaults()
	return &FundingRateCache{
		fetcher: fetcher,
		cfg:     cfg,
		symbols: append([]string(nil), symbols...),
		now:     time.Now,
		entries: make(map[string]fundingEntry),
	}
}

// Lookup 返回未过期的缓存值，不发起请求
func (c *FundingRateCache) Lookup(symbol string, now time.Time) (float64, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok || now.Sub(e.fetchedAt) >= c.cfg.TTL {
		return 0, false
	}
	return e.rate, true
}

// Get 缓存未命中或过期时请求一次并写回
func (c *FundingRateCache) Get(ctx context.Context, symbol string) (float64, bool) {
	if v, ok := c.Lookup(symbol, c.now()); ok {
		return v, true
	}
	return c.fetch(ctx, symbol)
}

// Store 直接写入缓存
func (c *FundingRateCache) Store(symbol string, rate float64, at time.Time) {
	c.mu.Lock()
	c.entries[symbol] = fundingEntry{rate: rate, fetchedAt: at}
	c.mu.Unlock()
}

// Len 缓存条目数
func (c *FundingRateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *FundingRateCache) fetch(ctx context.Context, symbol string) (float64, bool) {
	fctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	rate, err := c.fetcher.FundingRate(fctx, symbol)
	if err != nil {
		log.Debug().Str("symbol", symbol).Err(err).Msg("funding rate fetch failed")
		return 0, false
	}
	c.Store(symbol, rate, c.now())
	return rate, true
}

// Run 启动后立即刷新一次，之后按 Interval 刷新，直到 ctx 取消
func (c *FundingRateCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh 刷新所有缺失或过期的交易对，返回成功数
func (c *FundingRateCache) Refresh(ctx context.Context) int {
	now := c.now()
	stale := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		if _, ok := c.Lookup(s, now); !ok {
			stale = append(stale, s)
		}
	}
	if len(stale) == 0 {
		return 0
	}

	var (
		mu sync.Mutex
		ok int
	)
	p := pool.New().WithMaxGoroutines(c.cfg.BatchSize)
	for _, s := range stale {
		if ctx.Err() != nil {
			break
		}
		s := s
		p.Go(func() {
			if _, got := c.fetch(ctx, s); got {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		})
	}
	p.Wait()

	log.Debug().Int("stale", len(stale)).Int("updated", ok).Msg("funding rates refreshed")
	return ok
}
