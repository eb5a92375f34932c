// Package stats builds prediction-engine inputs from completed games.
// All functions are pure: they read game slices and compute aggregates,
// leaving fetching and persistence to the callers.
package stats

import (
	"sort"
	"strings"
	"time"

	"polynba/internal/models"
)

const last5Window = 5

// defaultRestDays is assumed when no prior game is visible in the lookup
// window. Mid-season gaps longer than the window are rare; a neutral-ish
// three days avoids penalizing teams with short fetch histories.
const defaultRestDays = 3

// sortByDateDesc orders games most recent first, with game ID as a
// deterministic tiebreak for same-day entries.
func sortByDateDesc(games []models.RecentGame) []models.RecentGame {
	sorted := make([]models.RecentGame, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].GameID > sorted[j].GameID
	})
	return sorted
}

// BuildRecentStats aggregates a team's completed games into the recent
// form summary the engine consumes. Games may arrive in any order.
func BuildRecentStats(team string, games []models.RecentGame) *models.TeamRecentStats {
	sorted := sortByDateDesc(games)

	s := &models.TeamRecentStats{Team: team, Games: sorted}

	var form strings.Builder
	var totalScore int
	for i, g := range sorted {
		totalScore += g.TeamScore
		if g.Won {
			s.Wins++
			form.WriteByte('W')
		} else {
			s.Losses++
			form.WriteByte('L')
		}
		if i < last5Window {
			s.Last5Games++
			if g.Won {
				s.Last5Wins++
			}
		}
	}

	if len(sorted) > 0 {
		s.WinRate = float64(s.Wins) / float64(len(sorted))
		s.AvgScore = float64(totalScore) / float64(len(sorted))
	}
	s.Form = form.String()

	return s
}

// BuildH2H filters team A's games down to mutual matchups with team B and
// summarizes them. Returns zero-count stats when the teams have not met.
func BuildH2H(teamA, teamB string, gamesA []models.RecentGame) *models.H2HStats {
	h := &models.H2HStats{TeamA: teamA, TeamB: teamB}

	var formA, formB strings.Builder
	for _, g := range sortByDateDesc(gamesA) {
		if g.Opponent != teamB {
			continue
		}
		h.TotalGames++
		if g.Won {
			h.TeamAWins++
			formA.WriteByte('W')
			formB.WriteByte('L')
		} else {
			h.TeamBWins++
			formA.WriteByte('L')
			formB.WriteByte('W')
		}
	}
	h.TeamAForm = formA.String()
	h.TeamBForm = formB.String()

	return h
}

// RestDays returns whole days between the team's most recent game strictly
// before target and the target date, comparing calendar dates rather than
// timestamps. Floored at 1 so a same-day or overnight turnaround still
// registers as a back-to-back. With no prior game visible it returns
// defaultRestDays.
func RestDays(games []models.RecentGame, target time.Time) int {
	targetDay := truncateToDay(target)

	var last time.Time
	for _, g := range games {
		day := truncateToDay(g.Date)
		if day.Before(targetDay) && day.After(last) {
			last = day
		}
	}
	if last.IsZero() {
		return defaultRestDays
	}

	days := int(targetDay.Sub(last).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
