package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"matchengine/internal/model"
)

func latencyTicket(id string, latency map[string]int, players ...model.Player) *model.Ticket {
	if len(players) == 0 {
		players = []model.Player{{PlayerName: id, Skill: 100}}
	}
	return &model.Ticket{TicketID: id, Players: players, LatencyData: latency}
}

func TestSelectRegionMissingEntryDisqualifies(t *testing.T) {
	tickets := []*model.Ticket{
		latencyTicket("a", map[string]int{"us-east": 40, "eu-west": 50}),
		latencyTicket("b", map[string]int{"us-east": 60}),
	}

	region, ok := selectRegion(tickets, 150)
	assert.True(t, ok)
	assert.Equal(t, "us-east", region, "eu-west lacks an entry for ticket b")
}

func TestSelectRegionLatencyBudget(t *testing.T) {
	tickets := []*model.Ticket{
		latencyTicket("a", map[string]int{"us-east": 160, "eu-west": 90}),
		latencyTicket("b", map[string]int{"us-east": 40, "eu-west": 95}),
	}

	region, ok := selectRegion(tickets, 150)
	assert.True(t, ok)
	assert.Equal(t, "eu-west", region, "us-east busts ticket a's budget")

	_, ok = selectRegion(tickets, 80)
	assert.False(t, ok, "no region fits everyone under 80ms")
}

func TestSelectRegionPrefersPlayerPreference(t *testing.T) {
	// eu-west has slightly worse latency but carries preference weight;
	// 3x weighting must outvote the 10ms headroom difference.
	players := []model.Player{
		{PlayerName: "p1", Skill: 100, RegionPreference: map[string]int{"eu-west": 5}},
		{PlayerName: "p2", Skill: 100, RegionPreference: map[string]int{"eu-west": 5}},
	}
	tickets := []*model.Ticket{
		latencyTicket("a", map[string]int{"us-east": 40, "eu-west": 50}, players...),
	}

	region, ok := selectRegion(tickets, 150)
	assert.True(t, ok)
	assert.Equal(t, "eu-west", region)
}

func TestSelectRegionSingleViableShortCircuits(t *testing.T) {
	tickets := []*model.Ticket{
		latencyTicket("a", map[string]int{"ap-south": 90, "us-east": 300}),
	}

	region, ok := selectRegion(tickets, 150)
	assert.True(t, ok)
	assert.Equal(t, "ap-south", region)
}
