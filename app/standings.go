// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package app

import (
	"sort"

	"github.com/danielhkuo/party-survey/models"
)

// Standing is one party's position in the results
type Standing struct {
	Party models.Party
	Rank  int     // 1-based; tied parties share a rank
	Share float64 // fraction of all votes, 0 when nobody has voted
}

// Results aggregates a party collection for display
type Results struct {
	Total     int
	Standings []Standing
}

// Leader returns the top standing, if any party has votes
func (r Results) Leader() (Standing, bool) {
	if len(r.Standings) == 0 || r.Total == 0 {
		return Standing{}, false
	}
	return r.Standings[0], true
}

// Standings ranks parties by vote count. Ties keep collection order.
func Standings(parties []models.Party) Results {
	res := Results{Standings: make([]Standing, len(parties))}
	for i, p := range parties {
		res.Total += p.VoteCount
		res.Standings[i] = Standing{Party: p}
	}

	sort.SliceStable(res.Standings, func(i, j int) bool {
		return res.Standings[i].Party.VoteCount > res.Standings[j].Party.VoteCount
	})

	for i := range res.Standings {
		s := &res.Standings[i]
		if res.Total > 0 {
			s.Share = float64(s.Party.VoteCount) / float64(res.Total)
		}
		if i > 0 && res.Standings[i-1].Party.VoteCount == s.Party.VoteCount {
			s.Rank = res.Standings[i-1].Rank
		} else {
			s.Rank = i + 1
		}
	}
	return res
}
