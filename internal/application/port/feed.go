package port

import (
	"context"

	"pumpradar/internal/domain"
)

// UpdateSink 行情解码后的写入目标
type UpdateSink interface {
	OnUpdate(u domain.Update)
}

// FeedStats 连接状态
type FeedStats struct {
	Connected  bool  `json:"connected"`
	Reconnects int64 `json:"reconnects"`
	Frames     int64 `json:"frames"`
	Dropped    int64 `json:"dropped"` // 解压或解析失败的帧
}

// MarketFeed 一组交易对的行情连接，Run 阻塞到 ctx 取消
type MarketFeed interface {
	Run(ctx context.Context) error
	Stats() FeedStats
}

// FeedFactory 为一个分组创建行情连接
type FeedFactory func(group int, symbols []string, sink UpdateSink) MarketFeed
