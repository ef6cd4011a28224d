package bingx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const DefaultRESTURL = "https://open-api.bingx.com"

const (
	pathContracts   = "/openApi/swap/v2/quote/contracts"
	pathTicker      = "/openApi/swap/v2/quote/ticker"
	pathFundingRate = "/openApi/swap/v2/quote/fundingRate"
)

// RESTClient BingX 公共行情 REST 客户端
// http.Client 懒加载并在所有请求间共享，Close 后可再次使用
type RESTClient struct {
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter

	mu     sync.Mutex
	client *http.Client
}

// NewRESTClient rps <= 0 时不限速
func NewRESTClient(baseURL string, rps float64, burst int) *RESTClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 10
	}
	return &RESTClient{
		baseURL: baseURL,
		timeout: 10 * time.Second,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (c *RESTClient) httpClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	return c.client
}

// Close 释放空闲连接
func (c *RESTClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.CloseIdleConnections()
		c.client = nil
	}
	return nil
}

type apiResp struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *RESTClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bingx http %d: %s", resp.StatusCode, string(body))
	}

	var r apiResp
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if r.Code != 0 {
		return fmt.Errorf("%w: %s code=%d msg=%s", ErrAPI, path, r.Code, r.Msg)
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return fmt.Errorf("%w: %s", ErrNoData, path)
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

type fundingItem struct {
	Symbol      string          `json:"symbol"`
	FundingRate decimal.Decimal `json:"fundingRate"`
}

// fundingData 接口可能返回单个对象或历史数组
type fundingData []fundingItem

func (d *fundingData) UnmarshalJSON(b []byte) error {
	b = []byte(strings.TrimSpace(string(b)))
	if len(b) == 0 {
		return nil
	}
	if b[0] == '[' {
		var arr []fundingItem
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		*d = arr
		return nil
	}
	var one fundingItem
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*d = fundingData{one}
	return nil
}

// FundingRate 当前资金费率
func (c *RESTClient) FundingRate(ctx context.Context, symbol string) (float64, error) {
	var data fundingData
	if err := c.get(ctx, pathFundingRate, url.Values{"symbol": {symbol}}, &data); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: funding rate %s", ErrNoData, symbol)
	}
	return data[0].FundingRate.InexactFloat64(), nil
}

// Contract 合约信息
type Contract struct {
	Symbol string `json:"symbol"`
	Status int    `json:"status"`
}

func (c *RESTClient) Contracts(ctx context.Context) ([]Contract, error) {
	var out []Contract
	if err := c.get(ctx, pathContracts, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type tickerItem struct {
	Symbol    string          `json:"symbol"`
	LastPrice decimal.Decimal `json:"lastPrice"`
}

// LastPrices symbol -> 最新价
func (c *RESTClient) LastPrices(ctx context.Context) (map[string]float64, error) {
	var items []tickerItem
	if err := c.get(ctx, pathTicker, nil, &items); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(items))
	for _, it := range items {
		out[it.Symbol] = it.LastPrice.InexactFloat64()
	}
	return out, nil
}
