package controller

import (
	"context"

	"matchengine/internal/rabbitmq"
	"matchengine/internal/store"
)

// ServerController backs the health and banner endpoints.
type ServerController interface {
	Health(ctx context.Context) (string, error)
	Online() string
}

type serverController struct {
	store  store.Store
	rabbit rabbitmq.Client // nil when the mirror is disabled
}

func NewServerController(st store.Store, rabbit rabbitmq.Client) ServerController {
	return &serverController{store: st, rabbit: rabbit}
}

func (sc *serverController) Online() string {
	return "Real-time Scalable Matchmaking Engine"
}

func (sc *serverController) Health(ctx context.Context) (string, error) {
	if err := sc.store.Ping(ctx); err != nil {
		return "store unreachable", err
	}
	if sc.rabbit != nil {
		if err := sc.rabbit.Health(); err != nil {
			return "event mirror unreachable", err
		}
	}
	return "healthy", nil
}
