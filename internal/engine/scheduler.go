package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"matchengine/internal/bus"
	"matchengine/internal/config"
	"matchengine/internal/rules"
	"matchengine/internal/store"
)

// Scheduler is the matchmaking driver: a single long-lived task that walks
// every configured mode each tick and runs one proposal/balance/region/commit
// round per mode. It is the sole remover of pool entries; ingress only
// inserts.
type Scheduler struct {
	store store.Store
	bus   bus.Bus
	rules *rules.Registry

	interval  time.Duration
	ticketTTL time.Duration

	now func() time.Time
}

// NewScheduler wires the scheduler against the shared store, the event bus
// and the rules registry.
func NewScheduler(st store.Store, b bus.Bus, reg *rules.Registry, cfg config.MatchmakingConfig) *Scheduler {
	return &Scheduler{
		store:     st,
		bus:       b,
		rules:     reg,
		interval:  time.Duration(cfg.TickIntervalSec) * time.Second,
		ticketTTL: time.Duration(cfg.TicketTTLSec) * time.Second,
		now:       time.Now,
	}
}

// Run drives ticks until ctx is cancelled. Shutdown is cooperative: the
// in-flight mode round always completes so the commit/rollback invariant
// holds, then the loop exits before the next mode.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().
		Dur("interval", s.interval).
		Int("modes", len(s.rules.Modes())).
		Msg("Matchmaking scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Matchmaking scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one round for every configured mode in declared order. A failed
// round is logged and the next mode proceeds; a tick never aborts because
// one mode failed.
func (s *Scheduler) Tick(ctx context.Context) {
	// Rounds run on an uncancellable context so a shutdown signal cannot
	// strand a half-committed match; cancellation is honored between modes.
	roundCtx := context.WithoutCancel(ctx)

	for _, mode := range s.rules.Modes() {
		modeRules, ok := s.rules.Get(mode)
		if !ok {
			continue
		}
		if err := s.runRound(roundCtx, mode, modeRules); err != nil {
			log.Error().Err(err).Str("gameMode", mode).Msg("Matchmaking round failed")
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
