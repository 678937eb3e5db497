package engine

import (
	"fmt"
	"sort"

	"matchengine/internal/model"
)

// balanceTeams partitions the proposal's tickets into numTeams teams.
// Parties are indivisible: a whole ticket lands on one team. Tickets are
// walked in descending average-skill order and each goes to the team with
// the lowest running skill total, which keeps totals close. With mixed
// party sizes the per-team headcount may differ by up to max(party)-1; the
// caller logs totals so the imbalance is visible.
func balanceTeams(tickets []*model.Ticket, numTeams int) (map[string][]model.Player, []int) {
	ordered := make([]*model.Ticket, len(tickets))
	copy(ordered, tickets)

	sort.SliceStable(ordered, func(i, j int) bool {
		ai, aj := ordered[i].AverageSkill(), ordered[j].AverageSkill()
		if ai != aj {
			return ai > aj
		}
		if ordered[i].CreationTime != ordered[j].CreationTime {
			return ordered[i].CreationTime < ordered[j].CreationTime
		}
		return ordered[i].TicketID < ordered[j].TicketID
	})

	members := make([][]model.Player, numTeams)
	totals := make([]int, numTeams)

	for _, ticket := range ordered {
		weakest := 0
		for i := 1; i < numTeams; i++ {
			if totals[i] < totals[weakest] {
				weakest = i
			}
		}
		members[weakest] = append(members[weakest], ticket.Players...)
		totals[weakest] += ticket.SkillSum()
	}

	teams := make(map[string][]model.Player, numTeams)
	for i, team := range members {
		teams[fmt.Sprintf("team_%d", i+1)] = team
	}
	return teams, totals
}
