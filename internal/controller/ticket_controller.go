package controller

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"matchengine/internal/bus"
	"matchengine/internal/config"
	"matchengine/internal/model"
	"matchengine/internal/rules"
	"matchengine/internal/store"
)

// Ingress validation errors, surfaced to the HTTP layer as 400s.
var (
	ErrUnknownMode   = errors.New("unknown game mode")
	ErrInvalidTicket = errors.New("invalid ticket")
)

const (
	maxPartySize   = 5
	minLatencyMs   = 10
	maxSyntheticMs = 200
)

// PlayerPayload is the per-player ingress shape.
type PlayerPayload struct {
	PlayerName       string         `json:"playerName" binding:"required"`
	Skill            int            `json:"skill"`
	RegionPreference map[string]int `json:"regionPreference"`
}

// JoinQueueRequest is the normalized ticket creation payload. A solo
// request is a one-element party.
type JoinQueueRequest struct {
	GameMode         string          `json:"gameMode" binding:"required"`
	Players          []PlayerPayload `json:"players" binding:"required"`
	RegionPreference map[string]int  `json:"regionPreference"`
	LatencyData      map[string]int  `json:"latencyData"`
}

// TicketController is the ingress contract: validate, persist, pool,
// announce.
type TicketController interface {
	// EnqueueTicket creates a ticket from the request and returns its id.
	EnqueueTicket(ctx context.Context, req JoinQueueRequest) (string, error)

	// PoolSize reports the number of waiting tickets for a mode.
	PoolSize(ctx context.Context, mode string) (int64, error)
}

type ticketController struct {
	store store.Store
	bus   bus.Bus
	rules *rules.Registry
	cfg   config.MatchmakingConfig
}

// NewTicketController builds the ingress controller.
func NewTicketController(st store.Store, b bus.Bus, reg *rules.Registry, cfg config.MatchmakingConfig) TicketController {
	return &ticketController{store: st, bus: b, rules: reg, cfg: cfg}
}

func (tc *ticketController) EnqueueTicket(ctx context.Context, req JoinQueueRequest) (string, error) {
	modeRules, ok := tc.rules.Get(req.GameMode)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, req.GameMode)
	}
	if err := validateRequest(req); err != nil {
		return "", err
	}
	// A party larger than the mode's match size can never fill a proposal;
	// pooled, it would anchor every round and starve the mode until its TTL.
	if matchSize := modeRules.MatchSize(); len(req.Players) > matchSize {
		return "", fmt.Errorf("%w: party of %d exceeds %s match size %d",
			ErrInvalidTicket, len(req.Players), req.GameMode, matchSize)
	}

	ticket := &model.Ticket{
		TicketID:         uuid.NewString(),
		GameMode:         req.GameMode,
		RegionPreference: req.RegionPreference,
		LatencyData:      req.LatencyData,
		CreationTime:     time.Now().Unix(),
		Status:           model.STATUS_SEARCHING,
	}
	for _, p := range req.Players {
		ticket.Players = append(ticket.Players, model.Player{
			PlayerName:       p.PlayerName,
			Skill:            p.Skill,
			RegionPreference: p.RegionPreference,
		})
	}
	if len(ticket.LatencyData) == 0 {
		ticket.LatencyData = syntheticLatency(ticket.Players, tc.cfg.KnownRegions)
	}

	ttl := time.Duration(tc.cfg.TicketTTLSec) * time.Second
	if err := tc.store.PutTicket(ctx, ticket, ttl); err != nil {
		return "", fmt.Errorf("persist ticket: %w", err)
	}

	if err := tc.store.PoolInsert(ctx, ticket.GameMode, ticket.TicketID, ticket.AverageSkill()); err != nil {
		// Without a pool entry the record is unreachable; drop it rather
		// than leave a ticket the scheduler can never see.
		if delErr := tc.store.DeleteTicket(ctx, ticket.TicketID); delErr != nil {
			log.Error().Err(delErr).Str("ticketId", ticket.TicketID).Msg("Failed to clean up unpooled ticket")
		}
		return "", fmt.Errorf("pool ticket: %w", err)
	}

	log.Info().
		Str("ticketId", ticket.TicketID).
		Str("gameMode", ticket.GameMode).
		Int("party", ticket.PartySize()).
		Float64("avgSkill", ticket.AverageSkill()).
		Msg("Ticket enqueued")

	ev := model.PoolUpdatedEvent{
		Event:     model.EVENT_POOL_UPDATED,
		GameMode:  ticket.GameMode,
		Action:    model.ACTION_ENQUEUED,
		Timestamp: time.Now().Unix(),
	}
	if err := tc.bus.PublishPoolUpdated(ctx, ev); err != nil {
		log.Error().Err(err).Str("gameMode", ticket.GameMode).Msg("Failed to publish pool_updated")
	}

	return ticket.TicketID, nil
}

func (tc *ticketController) PoolSize(ctx context.Context, mode string) (int64, error) {
	if _, ok := tc.rules.Get(mode); !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return tc.store.PoolSize(ctx, mode)
}

func validateRequest(req JoinQueueRequest) error {
	if len(req.Players) == 0 {
		return fmt.Errorf("%w: at least one player required", ErrInvalidTicket)
	}
	if len(req.Players) > maxPartySize {
		return fmt.Errorf("%w: party larger than %d players", ErrInvalidTicket, maxPartySize)
	}
	for _, p := range req.Players {
		if strings.TrimSpace(p.PlayerName) == "" {
			return fmt.Errorf("%w: empty player name", ErrInvalidTicket)
		}
		if p.Skill < 0 {
			return fmt.Errorf("%w: negative skill for %q", ErrInvalidTicket, p.PlayerName)
		}
		for region, weight := range p.RegionPreference {
			if weight <= 0 {
				return fmt.Errorf("%w: non-positive preference weight for region %q", ErrInvalidTicket, region)
			}
		}
	}
	for region, latency := range req.LatencyData {
		if latency < minLatencyMs {
			return fmt.Errorf("%w: latency for region %q below %dms", ErrInvalidTicket, region, minLatencyMs)
		}
	}
	return nil
}

// syntheticLatency derives reproducible per-region latencies from the party
// identity when the client sends none. Same players, same figures.
func syntheticLatency(players []model.Player, regions []string) map[string]int {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.PlayerName
	}
	sort.Strings(names)
	identity := strings.Join(names, ",")

	latencies := make(map[string]int, len(regions))
	for _, region := range regions {
		h := fnv.New32a()
		h.Write([]byte(identity))
		h.Write([]byte{'@'})
		h.Write([]byte(region))
		span := maxSyntheticMs - minLatencyMs + 1
		latencies[region] = minLatencyMs + int(h.Sum32()%uint32(span))
	}
	return latencies
}
