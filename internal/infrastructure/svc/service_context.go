package svc

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	appcontainer "pumpradar/internal/application/container"
	"pumpradar/internal/application/port"
	"pumpradar/internal/application/service"
	"pumpradar/internal/application/usecase/monitor"
	domainservice "pumpradar/internal/domain/service"
	"pumpradar/internal/infrastructure/config"
	infracontainer "pumpradar/internal/infrastructure/container"
	"pumpradar/internal/infrastructure/exchange/bingx"
	"pumpradar/internal/interfaces/console"
	"pumpradar/internal/interfaces/stream"
	"pumpradar/internal/interfaces/telegram"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层
	rest    *bingx.RESTClient
	storage *infracontainer.Container
	app     *appcontainer.Container

	// 应用组件
	funding  *service.FundingRateCache
	emitter  *service.AsyncEmitter
	monitor  *monitor.Service
	telegram *telegram.Notifier
	stream   *stream.Server

	closerChain []func() error
}

// New 创建并初始化 ServiceContext，所有依赖都在这里按顺序装配
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		rest:        bingx.NewRESTClient(cfg.Rest.BaseURL, cfg.Rest.RatePerSec, cfg.Rest.Burst),
		closerChain: make([]func() error, 0),
	}
	sc.closerChain = append(sc.closerChain, sc.rest.Close)

	if err := sc.initializeComponents(); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents() error {
	// 0. 存储
	ic, err := infracontainer.New(sc.Config)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}
	sc.storage = ic
	sc.closerChain = append(sc.closerChain, ic.Close)
	sc.app = appcontainer.New(ic.EventRepository())

	// 1. 交易对
	symbols, err := sc.resolveSymbols()
	if err != nil {
		return err
	}

	// 2. 资金费率缓存和分类器
	sc.funding = service.NewFundingRateCache(sc.rest, symbols, service.FundingCacheConfig{
		TTL:          time.Duration(sc.Config.Funding.TTLSec) * time.Second,
		Interval:     time.Duration(sc.Config.Funding.IntervalSec) * time.Second,
		FetchTimeout: time.Duration(sc.Config.Funding.TimeoutMs) * time.Millisecond,
		BatchSize:    sc.Config.Funding.BatchSize,
	})
	classifier := domainservice.NewClassifier(domainservice.DefaultThresholds(), sc.funding)
	th := classifier.Thresholds()
	log.Info().
		Int("min_samples", th.MinSamples).
		Dur("cooldown", th.Cooldown).
		Dur("window", th.Window).
		Float64("min_move_pct", th.MinMovePercent).
		Float64("max_move_pct", th.MaxMovePercent).
		Float64("overpump_funding", th.OverpumpFunding).
		Msg("classifier thresholds")

	// 3. 通知渠道
	sinks, err := sc.buildSinks()
	if err != nil {
		return err
	}
	sc.emitter = service.NewAsyncEmitter(
		sc.Config.Notify.Buffer,
		time.Duration(sc.Config.Notify.TimeoutSec)*time.Second,
		sinks...,
	)

	// 4. 检测
	mon, err := monitor.NewService(monitor.ServiceDeps{
		Symbols:          symbols,
		GroupSize:        sc.Config.Feed.GroupSize,
		Stagger:          sc.Config.StaggerDelay(),
		Workers:          sc.Config.Detect.Workers,
		DispatchInterval: sc.Config.DispatchInterval(),
		BufferCapacity:   sc.Config.Detect.BufferCapacity,
		PerfEvery:        time.Duration(sc.Config.Detect.PerfEverySec) * time.Second,
		Heartbeat:        time.Duration(sc.Config.Detect.HeartbeatSec) * time.Second,
		Classifier:       classifier,
		Emitter:          sc.emitter,
		NewFeed:          sc.feedFactory(),
	})
	if err != nil {
		return err
	}
	sc.monitor = mon

	log.Info().
		Int("symbols", len(symbols)).
		Int("sinks", len(sinks)).
		Msg("all components initialized")
	return nil
}

// resolveSymbols 配置了列表直接用，否则走 REST 自动发现
func (sc *ServiceContext) resolveSymbols() ([]string, error) {
	if len(sc.Config.Symbols.List) > 0 {
		return sc.Config.Symbols.List, nil
	}

	ctx, cancel := context.WithTimeout(sc.Ctx, 30*time.Second)
	defer cancel()

	var src port.SymbolSource = bingx.NewDiscovery(sc.rest, sc.Config.Symbols.Quote, sc.Config.Symbols.MinPrice, sc.Config.Symbols.MaxPrice)
	symbols, err := src.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("symbol discovery failed: %w", err)
	}
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	log.Info().
		Int("symbols", len(symbols)).
		Float64("min_price", sc.Config.Symbols.MinPrice).
		Float64("max_price", sc.Config.Symbols.MaxPrice).
		Msg("symbols discovered")
	return symbols, nil
}

func (sc *ServiceContext) buildSinks() ([]port.Notifier, error) {
	var sinks []port.Notifier
	if sc.Config.Notify.Console {
		sinks = append(sinks, console.NewSink())
	}

	// 落库
	sinks = append(sinks, sc.app.EventService())

	tg := sc.Config.Notify.Telegram
	if tg.Enabled {
		store, err := telegram.OpenChatStore(tg.ChatsFile)
		if err != nil {
			return nil, fmt.Errorf("open chat store: %w", err)
		}
		n, err := telegram.New(telegram.Config{
			APIURL:     tg.APIURL,
			Token:      tg.Token,
			ChatIDs:    tg.ChatIDs,
			Store:      store,
			RatePerSec: tg.RatePerSec,
		})
		if err != nil {
			return nil, err
		}
		sc.telegram = n
		sinks = append(sinks, n)
	}

	if sc.Config.Stream.Enabled {
		sc.stream = stream.NewServer(sc.Config.Stream.Addr, sc.app.EventService(), sc.health)
		if rr := sc.storage.RedisRepo(); rr != nil {
			sc.stream.WithLatest(rr)
		}
		sinks = append(sinks, sc.stream)
	}
	return sinks, nil
}

func (sc *ServiceContext) feedFactory() port.FeedFactory {
	wsURL := sc.Config.Feed.WsURL
	reconnect := time.Duration(sc.Config.Feed.ReconnectSec) * time.Second
	readTimeout := time.Duration(sc.Config.Feed.ReadTimeoutSec) * time.Second
	return func(group int, symbols []string, sink port.UpdateSink) port.MarketFeed {
		f := bingx.NewFeedConnector(wsURL, group, symbols, sink)
		f.ReconnectDelay = reconnect
		f.ReadTimeout = readTimeout
		return f
	}
}

// Health 健康检查返回的运行状态
type Health struct {
	Symbols int                   `json:"symbols"`
	Funding int                   `json:"funding_cached"`
	Emitter service.EmitterStats  `json:"emitter"`
	Groups  []monitor.GroupStatus `json:"groups"`
}

func (sc *ServiceContext) health() any {
	return Health{
		Symbols: len(sc.monitor.Symbols()),
		Funding: sc.funding.Len(),
		Emitter: sc.emitter.Stats(),
		Groups:  sc.monitor.Status(),
	}
}

// Run 启动所有后台任务，阻塞直到 ctx 取消
func (sc *ServiceContext) Run(ctx context.Context) error {
	var wg conc.WaitGroup
	wg.Go(func() { sc.emitter.Run(ctx) })
	wg.Go(func() { sc.funding.Run(ctx) })

	if sc.telegram != nil {
		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := sc.telegram.SendStartup(sendCtx); err != nil {
			log.Warn().Err(err).Msg("telegram startup message failed")
		}
		cancel()
		if sc.Config.Notify.Telegram.Poll {
			wg.Go(func() { sc.telegram.Poll(ctx) })
		}
	}

	if sc.stream != nil {
		wg.Go(func() {
			if err := sc.stream.Run(ctx); err != nil {
				log.Error().Err(err).Msg("stream server exited")
			}
		})
	}

	err := sc.monitor.Run(ctx)
	wg.Wait()
	return err
}

// Monitor 检测服务
func (sc *ServiceContext) Monitor() *monitor.Service {
	return sc.monitor
}

// Storage 存储容器
func (sc *ServiceContext) Storage() *infracontainer.Container {
	return sc.storage
}

// Close 按初始化的相反顺序关闭所有资源
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
