package container

import (
	"pumpradar/internal/application/port"
	"pumpradar/internal/application/service"
)

type Container struct {
	repo port.EventRepository

	eventService *service.EventService
}

func New(repo port.EventRepository) *Container {
	return &Container{
		repo: repo,
	}
}

func (c *Container) Repository() port.EventRepository {
	return c.repo
}

func (c *Container) EventService() *service.EventService {
	if c.eventService == nil {
		c.eventService = service.NewEventService(c.repo)
	}
	return c.eventService
}

func (c *Container) Close() error {
	return c.repo.Close()
}
