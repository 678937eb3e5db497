package store

import (
	"context"
	"errors"
	"time"

	"matchengine/internal/model"
)

// ErrNotFound is returned when a ticket record or session id does not exist.
var ErrNotFound = errors.New("not found")

// TicketStore persists ticket records by id with a TTL.
type TicketStore interface {
	// PutTicket writes the record; it expires after ttl if never removed.
	PutTicket(ctx context.Context, ticket *model.Ticket, ttl time.Duration) error

	// GetTicket retrieves a record by id, or ErrNotFound.
	GetTicket(ctx context.Context, id string) (*model.Ticket, error)

	// DeleteTicket removes a record. Missing records are not an error.
	DeleteTicket(ctx context.Context, id string) error
}

// PoolStore is the per-mode set of waiting ticket ids ordered by party
// average skill. A ticket is pooled iff its id is present here; the record
// itself lives in the TicketStore.
type PoolStore interface {
	// PoolInsert adds a ticket id with its score. Idempotent on (id, score).
	PoolInsert(ctx context.Context, mode, id string, score float64) error

	// PoolRemoveMany atomically removes the given ids and reports how many
	// were actually present. It never rolls back: a short count means a
	// competitor removed some ids first and the caller must reconcile.
	PoolRemoveMany(ctx context.Context, mode string, ids []string) (int, error)

	// PoolRangeByScore returns ids with score in [min, max], ascending.
	PoolRangeByScore(ctx context.Context, mode string, min, max float64) ([]string, error)

	// PoolPopMin removes and returns the lowest-scored id. ok is false when
	// the pool is empty.
	PoolPopMin(ctx context.Context, mode string) (id string, score float64, ok bool, err error)

	// PoolContains reports whether the id is currently pooled.
	PoolContains(ctx context.Context, mode, id string) (bool, error)

	// PoolSize returns the number of pooled tickets for the mode.
	PoolSize(ctx context.Context, mode string) (int64, error)
}

// SessionStore is the playerId -> sessionId map owned by the socket
// collaborator. The engine only reads it; RegisterSession exists for the
// collaborator's side and for tests.
type SessionStore interface {
	Session(ctx context.Context, playerID string) (string, error)
	RegisterSession(ctx context.Context, playerID, sessionID string) error
}

// Store is the complete shared-state surface of the engine.
type Store interface {
	TicketStore
	PoolStore
	SessionStore

	Ping(ctx context.Context) error
	Close() error
}
