package engine

import (
	"sort"

	"matchengine/internal/model"
)

const latencyScoreCeiling = 200

// selectRegion picks the server region for a proposal. A region is viable
// only when every ticket carries a latency entry for it within maxLatency;
// a missing entry disqualifies the region outright. Among viable regions
// the winner maximizes 3*preference + latency headroom, ties broken by
// ascending region name.
func selectRegion(tickets []*model.Ticket, maxLatency int) (string, bool) {
	if len(tickets) == 0 {
		return "", false
	}

	viable := make([]string, 0)
	for region, latency := range tickets[0].LatencyData {
		if latency > maxLatency {
			continue
		}
		ok := true
		for _, t := range tickets[1:] {
			l, present := t.LatencyData[region]
			if !present || l > maxLatency {
				ok = false
				break
			}
		}
		if ok {
			viable = append(viable, region)
		}
	}

	if len(viable) == 0 {
		return "", false
	}
	if len(viable) == 1 {
		return viable[0], true
	}

	sort.Strings(viable)

	best := ""
	bestScore := 0.0
	for _, region := range viable {
		score := regionScore(tickets, region)
		if best == "" || score > bestScore {
			best = region
			bestScore = score
		}
	}
	return best, true
}

// regionScore combines summed player preference weights with average
// latency headroom. Each ticket contributes its latency once per player it
// carries so large parties weigh proportionally.
func regionScore(tickets []*model.Ticket, region string) float64 {
	preference := 0
	latencySum := 0
	playerCount := 0

	for _, t := range tickets {
		for _, p := range t.Players {
			preference += p.RegionPreference[region]
			latencySum += t.LatencyData[region]
			playerCount++
		}
	}

	avgLatency := float64(latencySum) / float64(playerCount)
	latencyScore := latencyScoreCeiling - avgLatency
	if latencyScore < 0 {
		latencyScore = 0
	}
	return 3*float64(preference) + latencyScore
}
