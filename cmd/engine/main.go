package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchengine/internal/bus"
	"matchengine/internal/config"
	"matchengine/internal/controller"
	"matchengine/internal/engine"
	"matchengine/internal/notify"
	"matchengine/internal/rabbitmq"
	"matchengine/internal/rules"
	"matchengine/internal/server"
	"matchengine/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	configPath := "config/config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg)

	// The rules registry is fatal when missing: an engine with no modes has
	// nothing to schedule.
	registry, err := rules.Load(cfg.Matchmaking.RulesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load matchmaking rules")
	}

	redisStore, err := store.NewRedisStore(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis store")
	}
	defer redisStore.Close()

	var mirror bus.Mirror
	var rabbit rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbit, err = rabbitmq.NewClientFromConfig(cfg.RabbitMQ)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create RabbitMQ client")
		}
		defer rabbit.Close()

		mirror, err = bus.NewAMQPMirror(rabbit, cfg.RabbitMQ.ExchangeName)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up RabbitMQ event mirror")
		}
	}

	eventBus := bus.NewRedisBus(redisStore.Client(), mirror)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	scheduler := engine.NewScheduler(redisStore, eventBus, registry, cfg.Matchmaking)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	notifier := notify.NewNotifier(eventBus, redisStore, notify.NewRedisDispatcher(redisStore.Client()))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifier.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Notification fan-out exited with error")
		}
	}()

	sc := controller.NewServerController(redisStore, rabbit)
	tc := controller.NewTicketController(redisStore, eventBus, registry, cfg.Matchmaking)
	httpServer := server.New(*cfg, sc, tc)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP ingress listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down matchmaking engine")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("Matchmaking engine stopped")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}
