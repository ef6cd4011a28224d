package console

import (
	"context"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sink 把事件写到日志，级别 WARN
type Sink struct {
	logger zerolog.Logger
}

func NewSink() port.Notifier { return &Sink{logger: log.Logger} }

// NewSinkWithLogger 测试或自定义输出时使用
func NewSinkWithLogger(l zerolog.Logger) *Sink { return &Sink{logger: l} }

func (s *Sink) Name() string { return "console" }

func (s *Sink) Notify(ctx context.Context, ev domain.Event) error {
	e := s.logger.Warn().
		Str("kind", string(ev.Kind)).
		Str("symbol", ev.Symbol).
		Float64("price", ev.Price).
		Float64("percent", ev.Percent).
		Float64("volume", ev.Volume)
	if ev.FundingRate != nil {
		e = e.Float64("funding_rate", *ev.FundingRate)
	}
	e.Msgf("%s detected on %s", ev.Kind, ev.Symbol)
	return nil
}
