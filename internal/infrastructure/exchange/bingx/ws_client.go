package bingx

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pumpradar/internal/application/port"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const DefaultWSURL = "wss://open-api-swap.bingx.com/swap-market"

// Channels 每个交易对订阅的频道
var Channels = []string{"lastPrice", "kline_1m", "depth5@500ms", "bookTicker"}

// SubscribeRequest 订阅请求
type SubscribeRequest struct {
	ID       string `json:"id"`
	ReqType  string `json:"reqType"`
	DataType string `json:"dataType"`
}

// FeedConnector 一组交易对的行情连接
// 断线后固定等待 ReconnectDelay 重连，直到 ctx 取消
type FeedConnector struct {
	wsURL   string
	group   int
	symbols []string
	sink    port.UpdateSink

	ReconnectDelay time.Duration
	ReadTimeout    time.Duration
	DialTimeout    time.Duration

	wmu  sync.Mutex // 写操作串行
	conn *websocket.Conn

	connected  atomic.Bool
	reconnects atomic.Int64
	frames     atomic.Int64
	dropped    atomic.Int64
}

func NewFeedConnector(wsURL string, group int, symbols []string, sink port.UpdateSink) *FeedConnector {
	wsURL = strings.TrimSpace(wsURL)
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &FeedConnector{
		wsURL:          wsURL,
		group:          group,
		symbols:        symbols,
		sink:           sink,
		ReconnectDelay: 5 * time.Second,
		ReadTimeout:    60 * time.Second,
		DialTimeout:    10 * time.Second,
	}
}

// SubscribeRequests 订阅请求，id 在整个分组内从 1 递增
func (f *FeedConnector) SubscribeRequests() []SubscribeRequest {
	reqs := make([]SubscribeRequest, 0, len(f.symbols)*len(Channels))
	id := 1
	for _, s := range f.symbols {
		for _, ch := range Channels {
			reqs = append(reqs, SubscribeRequest{
				ID:       strconv.Itoa(id),
				ReqType:  "sub",
				DataType: s + "@" + ch,
			})
			id++
		}
	}
	return reqs
}

func (f *FeedConnector) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		return errors.New("bingx: no symbols for feed")
	}

	for {
		err := f.session(ctx)
		f.connected.Store(false)
		if ctx.Err() != nil {
			return nil
		}

		f.reconnects.Add(1)
		log.Warn().Int("group", f.group).Err(err).Dur("delay", f.ReconnectDelay).Msg("ws disconnected, reconnecting")

		t := time.NewTimer(f.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (f *FeedConnector) session(ctx context.Context) error {
	log.Info().Int("group", f.group).Str("url", f.wsURL).Msg("ws connecting")

	cctx, cancel := context.WithTimeout(ctx, f.DialTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(cctx, f.wsURL, nil)
	cancel()
	if err != nil {
		return err
	}

	f.wmu.Lock()
	f.conn = conn
	f.wmu.Unlock()
	defer func() {
		f.wmu.Lock()
		f.conn = nil
		f.wmu.Unlock()
		_ = conn.Close()
	}()

	for _, req := range f.SubscribeRequests() {
		if err := f.writeJSON(req); err != nil {
			return err
		}
	}
	f.connected.Store(true)
	log.Info().Int("group", f.group).Int("symbols", len(f.symbols)).Msg("ws connected & subscribed")

	return f.readLoop(ctx, conn)
}

func (f *FeedConnector) readLoop(ctx context.Context, conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))
			if reply := f.HandleFrame(b); reply != nil {
				if err := f.writeText(reply); err != nil {
					errCh <- err
					return
				}
			}
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// HandleFrame 处理一帧原始数据，需要回复时返回回复内容
func (f *FeedConnector) HandleFrame(raw []byte) []byte {
	f.frames.Add(1)

	text, err := gunzip(raw)
	if err != nil {
		f.dropped.Add(1)
		log.Error().Int("group", f.group).Err(err).Msg("gzip decompress failed")
		return nil
	}
	if string(text) == pingFrame {
		return []byte("Pong")
	}

	updates, err := DecodeMessage(text)
	if err != nil {
		f.dropped.Add(1)
		log.Error().Int("group", f.group).Err(err).Msg("json decode failed")
		return nil
	}
	for _, u := range updates {
		f.sink.OnUpdate(u)
	}
	return nil
}

func (f *FeedConnector) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.writeText(b)
}

func (f *FeedConnector) writeText(b []byte) error {
	f.wmu.Lock()
	defer f.wmu.Unlock()
	if f.conn == nil {
		return errors.New("bingx: connection closed")
	}
	_ = f.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return f.conn.WriteMessage(websocket.TextMessage, b)
}

func (f *FeedConnector) Stats() port.FeedStats {
	return port.FeedStats{
		Connected:  f.connected.Load(),
		Reconnects: f.reconnects.Load(),
		Frames:     f.frames.Load(),
		Dropped:    f.dropped.Load(),
	}
}
