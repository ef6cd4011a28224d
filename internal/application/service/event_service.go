package service

import (
	"context"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// EventService 事件落库，同时作为一个通知渠道挂到 emitter 上
type EventService struct {
	repo port.EventRepository
}

func NewEventService(repo port.EventRepository) *EventService {
	return &EventService{repo: repo}
}

func (s *EventService) Name() string { return "repository" }

func (s *EventService) Notify(ctx context.Context, ev domain.Event) error {
	return s.repo.SaveEvent(ctx, ev)
}

func (s *EventService) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}
	return s.repo.RecentEvents(ctx, limit)
}
