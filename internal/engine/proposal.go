package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"matchengine/internal/model"
	"matchengine/internal/store"
)

// proposal is an ordered set of tickets whose player counts sum exactly to
// the mode's match size. The anchor is always first.
type proposal struct {
	tickets     []*model.Ticket
	anchorScore float64
	tolerance   float64
}

func (p *proposal) ticketIDs() []string {
	ids := make([]string, len(p.tickets))
	for i, t := range p.tickets {
		ids[i] = t.TicketID
	}
	return ids
}

func (p *proposal) anchor() *model.Ticket {
	return p.tickets[0]
}

type candidate struct {
	ticket *model.Ticket
	score  float64
}

// buildProposal pops an anchor and tries to fill the match around it.
// Returns (nil, nil) when no proposal can be formed this round: not enough
// pooled tickets, a stale anchor, or no candidate combination summing to
// the remaining need. A popped anchor that cannot be matched is re-inserted
// with its original score so its wait time keeps widening the window.
func (s *Scheduler) buildProposal(ctx context.Context, mode string, modeRules model.ModeRules) (*proposal, error) {
	matchSize := modeRules.MatchSize()

	size, err := s.store.PoolSize(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("pool size: %w", err)
	}
	if size < int64(matchSize) {
		return nil, nil
	}

	anchorID, anchorScore, ok, err := s.store.PoolPopMin(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("pop anchor: %w", err)
	}
	if !ok {
		return nil, nil
	}

	anchor, err := s.store.GetTicket(ctx, anchorID)
	if errors.Is(err, store.ErrNotFound) {
		// Stale pool entry; the pop already dropped it.
		log.Warn().Str("gameMode", mode).Str("ticketId", anchorID).Msg("Dropped stale anchor entry")
		return nil, nil
	} else if err != nil {
		s.reinsertAnchor(ctx, mode, anchorID, anchorScore)
		return nil, fmt.Errorf("anchor lookup: %w", err)
	}

	waited := anchor.WaitTime(s.now())
	tolerance := modeRules.ToleranceAt(waited)
	anchorAvg := anchor.AverageSkill()

	candidates, err := s.scanCandidates(ctx, mode, anchorID, anchorAvg, tolerance)
	if err != nil {
		s.reinsertAnchor(ctx, mode, anchorID, anchorScore)
		return nil, err
	}

	tickets, filled := packParties(anchor, candidates, matchSize)
	if !filled {
		s.reinsertAnchor(ctx, mode, anchorID, anchorScore)
		log.Debug().
			Str("gameMode", mode).
			Str("anchorId", anchorID).
			Float64("tolerance", tolerance).
			Dur("waited", waited).
			Msg("No match proposal this round")
		return nil, nil
	}

	return &proposal{tickets: tickets, anchorScore: anchorScore, tolerance: tolerance}, nil
}

// scanCandidates queries the anchor's skill window and resolves records.
// Stale entries (pooled id with no record) are removed from the pool on the
// spot. Candidates come back sorted for packing: party size descending,
// then ascending score, then id.
func (s *Scheduler) scanCandidates(ctx context.Context, mode, anchorID string, anchorAvg, tolerance float64) ([]candidate, error) {
	ids, err := s.store.PoolRangeByScore(ctx, mode, anchorAvg-tolerance, anchorAvg+tolerance)
	if err != nil {
		return nil, fmt.Errorf("range by score: %w", err)
	}

	candidates := make([]candidate, 0, len(ids))
	stale := make([]string, 0)
	for _, id := range ids {
		if id == anchorID {
			continue
		}
		ticket, err := s.store.GetTicket(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			stale = append(stale, id)
			continue
		} else if err != nil {
			return nil, fmt.Errorf("candidate lookup: %w", err)
		}
		candidates = append(candidates, candidate{ticket: ticket, score: ticket.AverageSkill()})
	}

	if len(stale) > 0 {
		if _, err := s.store.PoolRemoveMany(ctx, mode, stale); err != nil {
			log.Error().Err(err).Str("gameMode", mode).Int("count", len(stale)).Msg("Failed to drop stale pool entries")
		} else {
			log.Warn().Str("gameMode", mode).Int("count", len(stale)).Msg("Dropped stale pool entries")
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].ticket.PartySize(), candidates[j].ticket.PartySize()
		if pi != pj {
			return pi > pj
		}
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].ticket.TicketID < candidates[j].ticket.TicketID
	})

	return candidates, nil
}

// packParties fills the match greedily, largest parties first, so big
// parties are placed before the remaining need fragments. Optimal whenever
// some candidate subset sums exactly to the need; otherwise the round fails
// and the anchor waits for a wider window.
func packParties(anchor *model.Ticket, candidates []candidate, matchSize int) ([]*model.Ticket, bool) {
	need := matchSize - anchor.PartySize()
	tickets := []*model.Ticket{anchor}

	for _, c := range candidates {
		if need == 0 {
			break
		}
		if c.ticket.PartySize() <= need {
			tickets = append(tickets, c.ticket)
			need -= c.ticket.PartySize()
		}
	}

	return tickets, need == 0
}

// reinsertAnchor puts a popped anchor back with its original score.
func (s *Scheduler) reinsertAnchor(ctx context.Context, mode, id string, score float64) {
	if err := s.store.PoolInsert(ctx, mode, id, score); err != nil {
		// TTL expiry will reap the record; the ticket is lost to the pool.
		log.Error().Err(err).Str("gameMode", mode).Str("ticketId", id).Msg("Failed to re-insert anchor")
	}
}
