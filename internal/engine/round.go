package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"matchengine/internal/model"
	"matchengine/internal/store"
)

// runRound executes one full matchmaking round for a mode: proposal,
// balancing, region selection, commit. Absence of a match is the common
// case and is not an error.
func (s *Scheduler) runRound(ctx context.Context, mode string, modeRules model.ModeRules) error {
	prop, err := s.buildProposal(ctx, mode, modeRules)
	if err != nil || prop == nil {
		return err
	}

	teams, totals := balanceTeams(prop.tickets, modeRules.NumTeams)

	region, viable := selectRegion(prop.tickets, modeRules.MaxLatency)
	if !viable {
		// Candidates never left the pool; only the popped anchor goes back.
		s.reinsertAnchor(ctx, mode, prop.anchor().TicketID, prop.anchorScore)
		log.Debug().
			Str("gameMode", mode).
			Str("anchorId", prop.anchor().TicketID).
			Int("maxLatency", modeRules.MaxLatency).
			Msg("No viable region for proposal")
		return nil
	}

	return s.commitMatch(ctx, mode, prop, teams, totals, region)
}

// commitMatch atomically removes the proposal's candidates from the pool
// and publishes match_found. The anchor is already out (popped). A short
// removal count means a competitor raced us: nothing is published and pool
// membership is reconciled from the ticket records.
func (s *Scheduler) commitMatch(ctx context.Context, mode string, prop *proposal, teams map[string][]model.Player, totals []int, region string) error {
	candidateIDs := prop.ticketIDs()[1:]

	removed, err := s.store.PoolRemoveMany(ctx, mode, candidateIDs)
	if err != nil {
		s.reinsertAnchor(ctx, mode, prop.anchor().TicketID, prop.anchorScore)
		return fmt.Errorf("remove proposal tickets: %w", err)
	}
	if removed < len(candidateIDs) {
		log.Warn().
			Str("gameMode", mode).
			Int("expected", len(candidateIDs)).
			Int("removed", removed).
			Msg("Partial pool removal, reconciling and aborting round")
		s.reconcile(ctx, mode, prop.tickets)
		return nil
	}

	match := &model.Match{
		MatchID:   uuid.NewString(),
		GameMode:  mode,
		Region:    region,
		Teams:     teams,
		TicketIDs: prop.ticketIDs(),
		Timestamp: s.now().Unix(),
	}

	// Matched records leave the store so a later reconcile can never
	// resurrect them into the pool.
	for _, id := range match.TicketIDs {
		if err := s.store.DeleteTicket(ctx, id); err != nil {
			log.Error().Err(err).Str("ticketId", id).Msg("Failed to delete matched ticket record")
		}
	}

	log.Info().
		Str("gameMode", mode).
		Str("matchId", match.MatchID).
		Str("region", region).
		Ints("teamSkillTotals", totals).
		Int("tickets", len(match.TicketIDs)).
		Msg("Match committed")

	s.publishMatch(ctx, match)
	return nil
}

// publishMatch emits match_found plus the dashboard log and pool_updated
// events. The bus is best-effort: failures are logged, the commit stands.
func (s *Scheduler) publishMatch(ctx context.Context, match *model.Match) {
	if err := s.bus.PublishMatchFound(ctx, model.NewMatchFoundEvent(match)); err != nil {
		log.Error().Err(err).Str("matchId", match.MatchID).Msg("Failed to publish match_found")
	}

	now := s.now().Unix()
	logEv := model.DashboardLogEvent{
		Event:     model.EVENT_LOG,
		Message:   fmt.Sprintf("Match found for %s", match.GameMode),
		Level:     "info",
		Timestamp: now,
	}
	if err := s.bus.PublishLog(ctx, logEv); err != nil {
		log.Error().Err(err).Str("matchId", match.MatchID).Msg("Failed to publish dashboard log")
	}

	poolEv := model.PoolUpdatedEvent{
		Event:     model.EVENT_POOL_UPDATED,
		GameMode:  match.GameMode,
		Action:    model.ACTION_MATCH_CREATED,
		Timestamp: now,
	}
	if err := s.bus.PublishPoolUpdated(ctx, poolEv); err != nil {
		log.Error().Err(err).Str("matchId", match.MatchID).Msg("Failed to publish pool_updated")
	}
}

// reconcile repairs pool membership after a partial removal: every proposal
// ticket whose record is still retrievable and is not pooled goes back in
// with its recomputed score. Tickets a competitor fully claimed have no
// record left and stay out.
func (s *Scheduler) reconcile(ctx context.Context, mode string, tickets []*model.Ticket) {
	for _, t := range tickets {
		ticket, err := s.store.GetTicket(ctx, t.TicketID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		} else if err != nil {
			log.Error().Err(err).Str("ticketId", t.TicketID).Msg("Reconcile lookup failed")
			continue
		}

		pooled, err := s.store.PoolContains(ctx, mode, t.TicketID)
		if err != nil {
			log.Error().Err(err).Str("ticketId", t.TicketID).Msg("Reconcile membership check failed")
			continue
		}
		if pooled {
			continue
		}

		if err := s.store.PoolInsert(ctx, mode, t.TicketID, ticket.AverageSkill()); err != nil {
			log.Error().Err(err).Str("ticketId", t.TicketID).Msg("Reconcile re-insert failed")
		}
	}
}
