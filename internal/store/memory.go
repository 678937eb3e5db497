package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"matchengine/internal/model"
)

// MemoryStore is a single-node in-process Store used by tests and local
// development. Equal-score pool entries keep insertion order.
type MemoryStore struct {
	mu       sync.Mutex
	tickets  map[string]memoryTicket
	pools    map[string][]poolEntry
	sessions map[string]string
	seq      uint64
}

type memoryTicket struct {
	ticket    model.Ticket
	expiresAt time.Time
}

type poolEntry struct {
	id    string
	score float64
	seq   uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  make(map[string]memoryTicket),
		pools:    make(map[string][]poolEntry),
		sessions: make(map[string]string),
	}
}

func (s *MemoryStore) PutTicket(_ context.Context, ticket *model.Ticket, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires := time.Time{}
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	s.tickets[ticket.TicketID] = memoryTicket{ticket: *ticket, expiresAt: expires}
	return nil
}

func (s *MemoryStore) GetTicket(_ context.Context, id string) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !rec.expiresAt.IsZero() && time.Now().After(rec.expiresAt) {
		delete(s.tickets, id)
		return nil, ErrNotFound
	}
	ticket := rec.ticket
	return &ticket, nil
}

func (s *MemoryStore) DeleteTicket(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, id)
	return nil
}

func (s *MemoryStore) PoolInsert(_ context.Context, mode, id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.pools[mode]
	for i, e := range entries {
		if e.id == id {
			// Re-scoring an existing member keeps a single entry, like ZADD.
			entries[i].score = score
			s.sortPool(mode)
			return nil
		}
	}

	s.seq++
	s.pools[mode] = append(entries, poolEntry{id: id, score: score, seq: s.seq})
	s.sortPool(mode)
	return nil
}

// sortPool keeps entries ascending by score, ties by insertion sequence.
func (s *MemoryStore) sortPool(mode string) {
	entries := s.pools[mode]
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score < entries[j].score
		}
		return entries[i].seq < entries[j].seq
	})
}

func (s *MemoryStore) PoolRemoveMany(_ context.Context, mode string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	entries := s.pools[mode]
	kept := entries[:0]
	removed := 0
	for _, e := range entries {
		if wanted[e.id] {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.pools[mode] = kept
	return removed, nil
}

func (s *MemoryStore) PoolRangeByScore(_ context.Context, mode string, min, max float64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0)
	for _, e := range s.pools[mode] {
		if e.score >= min && e.score <= max {
			ids = append(ids, e.id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) PoolPopMin(_ context.Context, mode string) (string, float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.pools[mode]
	if len(entries) == 0 {
		return "", 0, false, nil
	}
	head := entries[0]
	s.pools[mode] = entries[1:]
	return head.id, head.score, true, nil
}

func (s *MemoryStore) PoolContains(_ context.Context, mode, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.pools[mode] {
		if e.id == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) PoolSize(_ context.Context, mode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.pools[mode])), nil
}

func (s *MemoryStore) Session(_ context.Context, playerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid, ok := s.sessions[playerID]
	if !ok {
		return "", ErrNotFound
	}
	return sid, nil
}

func (s *MemoryStore) RegisterSession(_ context.Context, playerID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[playerID] = sessionID
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
