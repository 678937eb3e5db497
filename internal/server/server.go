package server

import (
	"fmt"
	"net/http"
	"time"

	"matchengine/internal/config"
	"matchengine/internal/controller"
)

type Server struct {
	sc     controller.ServerController
	tc     controller.TicketController
	config config.Config
}

// New assembles the HTTP ingress server around the controllers.
func New(cfg config.Config, sc controller.ServerController, tc controller.TicketController) *http.Server {
	server := Server{
		sc:     sc,
		tc:     tc,
		config: cfg,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%v", cfg.Port),
		Handler:      server.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
