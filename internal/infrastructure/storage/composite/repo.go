package composite

import (
	"context"
	"errors"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"
)

// Repo 写入扇出到所有仓储，读取走第一个可用的仓储
type Repo struct {
	repos []port.EventRepository
}

func New(repos ...port.EventRepository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.EventRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) SaveEvent(ctx context.Context, ev domain.Event) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveEvent(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if len(r.repos) == 0 {
		return nil, errors.New("composite: no repositories")
	}
	var firstErr error
	for _, repo := range r.repos {
		evs, err := repo.RecentEvents(ctx, limit)
		if err == nil {
			return evs, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// Close 各仓储的底层连接由 container 关闭
func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.EventRepository = (*Repo)(nil)
