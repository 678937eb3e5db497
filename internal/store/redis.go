package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"matchengine/internal/config"
	"matchengine/internal/model"
)

// RedisStore implements Store on a single Redis instance: ticket records as
// JSON strings with TTL, pools as sorted sets keyed by party average skill,
// sessions in the collaborator-owned user_sids hash.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store and verifies the connection.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to connect to Redis")
		return nil, err
	}

	log.Info().
		Str("address", cfg.Address).
		Str("prefix", cfg.Prefix).
		Int("db", cfg.DB).
		Msg("Redis store initialized successfully")

	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

// Client exposes the underlying connection so the bus adapter can share it.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) key(parts ...string) string {
	key := s.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (s *RedisStore) ticketKey(id string) string { return s.key("ticket", id) }
func (s *RedisStore) poolKey(mode string) string { return s.key("pool", mode) }
func (s *RedisStore) sessionsKey() string        { return s.key("user_sids") }

// PutTicket writes the ticket record with the given TTL.
func (s *RedisStore) PutTicket(ctx context.Context, ticket *model.Ticket, ttl time.Duration) error {
	payload, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("marshal ticket %s: %w", ticket.TicketID, err)
	}

	if err := s.client.Set(ctx, s.ticketKey(ticket.TicketID), payload, ttl).Err(); err != nil {
		log.Error().Err(err).Str("ticketId", ticket.TicketID).Msg("Error writing ticket record")
		return err
	}

	log.Debug().
		Str("ticketId", ticket.TicketID).
		Str("gameMode", ticket.GameMode).
		Dur("ttl", ttl).
		Msg("Ticket record written")

	return nil
}

// GetTicket retrieves a ticket record, or ErrNotFound if absent or expired.
func (s *RedisStore) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	data, err := s.client.Get(ctx, s.ticketKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		log.Error().Err(err).Str("ticketId", id).Msg("Error reading ticket record")
		return nil, err
	}

	var ticket model.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, fmt.Errorf("unmarshal ticket %s: %w", id, err)
	}
	return &ticket, nil
}

// DeleteTicket removes a ticket record.
func (s *RedisStore) DeleteTicket(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.ticketKey(id)).Err()
}

// PoolInsert adds a ticket id to the mode's sorted set.
func (s *RedisStore) PoolInsert(ctx context.Context, mode, id string, score float64) error {
	err := s.client.ZAdd(ctx, s.poolKey(mode), redis.Z{Score: score, Member: id}).Err()
	if err != nil {
		log.Error().Err(err).Str("gameMode", mode).Str("ticketId", id).Msg("Error inserting into pool")
		return err
	}

	log.Debug().
		Str("gameMode", mode).
		Str("ticketId", id).
		Float64("score", score).
		Msg("Ticket pooled")

	return nil
}

// PoolRemoveMany removes the given ids in one ZREM and reports the count
// Redis actually removed.
func (s *RedisStore) PoolRemoveMany(ctx context.Context, mode string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	removed, err := s.client.ZRem(ctx, s.poolKey(mode), members...).Result()
	if err != nil {
		log.Error().Err(err).Str("gameMode", mode).Int("ids", len(ids)).Msg("Error removing from pool")
		return 0, err
	}
	return int(removed), nil
}

// PoolRangeByScore returns pooled ids with score in [min, max], ascending.
// Ties within a score are ordered lexicographically by id (sorted-set
// semantics); the proposal builder re-sorts candidates anyway.
func (s *RedisStore) PoolRangeByScore(ctx context.Context, mode string, min, max float64) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.poolKey(mode), &redis.ZRangeBy{
		Min: strconv.FormatFloat(min, 'f', -1, 64),
		Max: strconv.FormatFloat(max, 'f', -1, 64),
	}).Result()
	if err != nil {
		log.Error().Err(err).Str("gameMode", mode).Msg("Error querying pool range")
		return nil, err
	}
	return ids, nil
}

// PoolPopMin pops the lowest-scored ticket id from the pool.
func (s *RedisStore) PoolPopMin(ctx context.Context, mode string) (string, float64, bool, error) {
	members, err := s.client.ZPopMin(ctx, s.poolKey(mode), 1).Result()
	if err != nil {
		log.Error().Err(err).Str("gameMode", mode).Msg("Error popping pool minimum")
		return "", 0, false, err
	}
	if len(members) == 0 {
		return "", 0, false, nil
	}

	id, _ := members[0].Member.(string)
	return id, members[0].Score, true, nil
}

// PoolContains reports pool membership via ZSCORE.
func (s *RedisStore) PoolContains(ctx context.Context, mode, id string) (bool, error) {
	err := s.client.ZScore(ctx, s.poolKey(mode), id).Err()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// PoolSize returns the pool cardinality.
func (s *RedisStore) PoolSize(ctx context.Context, mode string) (int64, error) {
	size, err := s.client.ZCard(ctx, s.poolKey(mode)).Result()
	if err != nil {
		log.Error().Err(err).Str("gameMode", mode).Msg("Error reading pool size")
		return 0, err
	}
	return size, nil
}

// Session resolves a player's live session id from the user_sids hash.
func (s *RedisStore) Session(ctx context.Context, playerID string) (string, error) {
	sid, err := s.client.HGet(ctx, s.sessionsKey(), playerID).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	} else if err != nil {
		return "", err
	}
	return sid, nil
}

// RegisterSession records a playerId -> sessionId mapping. Called by the
// socket collaborator on connect, not by the engine.
func (s *RedisStore) RegisterSession(ctx context.Context, playerID, sessionID string) error {
	return s.client.HSet(ctx, s.sessionsKey(), playerID, sessionID).Err()
}

// Ping tests the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	log.Info().Msg("Closing Redis store connection")
	return s.client.Close()
}
