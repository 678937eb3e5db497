package model

import "time"

const (
	// Ticket Status
	STATUS_SEARCHING = "searching"
	STATUS_MATCHED   = "matched"
	STATUS_CANCELLED = "cancelled"

	// Event Types
	EVENT_MATCH_FOUND  = "match_found"
	EVENT_POOL_UPDATED = "pool_updated"
	EVENT_LOG          = "log"

	// Pool Update Actions
	ACTION_ENQUEUED      = "enqueued"
	ACTION_MATCH_CREATED = "match_created"
)

// Player is a single queue participant nested inside a ticket.
type Player struct {
	PlayerName       string         `json:"playerName"`
	Skill            int            `json:"skill"`
	RegionPreference map[string]int `json:"regionPreference,omitempty"`
}

// Ticket is a matchmaking request for a party of one or more players.
// Immutable once created; identity is the server-generated UUID.
type Ticket struct {
	TicketID         string         `json:"ticketId"`
	Players          []Player       `json:"players"`
	GameMode         string         `json:"gameMode"`
	RegionPreference map[string]int `json:"regionPreference,omitempty"`
	LatencyData      map[string]int `json:"latencyData"`
	CreationTime     int64          `json:"creationTime"` // epoch seconds
	Status           string         `json:"status"`
}

// PartySize returns the number of players carried by the ticket.
func (t *Ticket) PartySize() int {
	return len(t.Players)
}

// SkillSum returns the sum of all player skills on the ticket.
func (t *Ticket) SkillSum() int {
	sum := 0
	for _, p := range t.Players {
		sum += p.Skill
	}
	return sum
}

// AverageSkill is the party average skill, used as the pool score.
// Recomputed on demand, never persisted separately.
func (t *Ticket) AverageSkill() float64 {
	if len(t.Players) == 0 {
		return 0
	}
	return float64(t.SkillSum()) / float64(len(t.Players))
}

// WaitTime returns how long the ticket has been queued relative to now.
func (t *Ticket) WaitTime(now time.Time) time.Duration {
	return now.Sub(time.Unix(t.CreationTime, 0))
}

// ExpandStep widens the skill acceptance window once a ticket has waited
// at least AfterSeconds.
type ExpandStep struct {
	AfterSeconds float64 `json:"afterSeconds"`
	NewTolerance float64 `json:"newTolerance"`
}

// ModeRules is the per-game-mode matchmaking configuration.
type ModeRules struct {
	TeamSize          int          `json:"teamSize"`
	NumTeams          int          `json:"numTeams"`
	SkillTolerance    float64      `json:"skillTolerance"`
	ExpandSearchSteps []ExpandStep `json:"expandSearchSteps,omitempty"`
	MaxLatency        int          `json:"maxLatency,omitempty"`
}

// MatchSize is the exact number of players a match in this mode requires.
func (r ModeRules) MatchSize() int {
	return r.TeamSize * r.NumTeams
}

// ToleranceAt returns the effective skill tolerance for a ticket that has
// waited the given duration. Steps are sorted ascending by AfterSeconds
// with non-decreasing tolerance; the latest applicable step wins.
func (r ModeRules) ToleranceAt(waited time.Duration) float64 {
	tolerance := r.SkillTolerance
	for _, step := range r.ExpandSearchSteps {
		if waited.Seconds() >= step.AfterSeconds {
			tolerance = step.NewTolerance
		}
	}
	return tolerance
}

// Match is a committed match assembled by the engine.
type Match struct {
	MatchID   string              `json:"matchId"`
	GameMode  string              `json:"gameMode"`
	Region    string              `json:"region"`
	Teams     map[string][]Player `json:"teams"` // team_1, team_2, ...
	TicketIDs []string            `json:"ticketIds"`
	Timestamp int64               `json:"timestamp"`
}

// PlayerNames returns every player name across all teams.
func (m *Match) PlayerNames() []string {
	names := make([]string, 0)
	for _, team := range m.Teams {
		for _, p := range team {
			names = append(names, p.PlayerName)
		}
	}
	return names
}

// MatchFoundEvent is published on the match_found channel after commit.
type MatchFoundEvent struct {
	Event     string              `json:"event"` // always "match_found"
	MatchID   string              `json:"matchId"`
	GameMode  string              `json:"gameMode"`
	Region    string              `json:"region"`
	Teams     map[string][]Player `json:"teams"`
	TicketIDs []string            `json:"ticketIds"`
	Timestamp int64               `json:"timestamp"`
}

// NewMatchFoundEvent builds the wire event for a committed match.
func NewMatchFoundEvent(m *Match) MatchFoundEvent {
	return MatchFoundEvent{
		Event:     EVENT_MATCH_FOUND,
		MatchID:   m.MatchID,
		GameMode:  m.GameMode,
		Region:    m.Region,
		Teams:     m.Teams,
		TicketIDs: m.TicketIDs,
		Timestamp: m.Timestamp,
	}
}

// PoolUpdatedEvent tells the dashboard a mode's pool changed.
type PoolUpdatedEvent struct {
	Event     string `json:"event"` // always "pool_updated"
	GameMode  string `json:"gameMode"`
	Action    string `json:"action,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// DashboardLogEvent is a human-readable log line for the dashboard feed.
type DashboardLogEvent struct {
	Event     string `json:"event"` // always "log"
	Message   string `json:"message"`
	Level     string `json:"level"`
	Timestamp int64  `json:"timestamp"`
}

// Notification is the per-recipient payload handed to the socket layer.
type Notification struct {
	Message string              `json:"message"`
	MatchID string              `json:"matchId"`
	Region  string              `json:"region"`
	Teams   map[string][]Player `json:"teams"`
}
