package engine

import (
	"fmt"

	"polynba/internal/models"
)

// Scoring constants. The sign convention is shared by every scorer:
// positive favors team A, negative favors team B, bounded to [-100, 100].
const (
	strengthAmplifier = 3.0   // net-rating points -> score
	winRateAmplifier  = 100.0 // win-rate proxy when advanced stats missing
	formMultiplier    = 40.0  // last-5 win-rate difference -> score
	offenseMultiplier = 5.0   // eFG% difference (percent points) -> score
	h2hMultiplier     = 200.0 // h2h win proportion around 0.5 -> score
	homeBonus         = 15.0

	penaltyOut          = -25.0
	penaltyDoubtful     = -15.0
	penaltyQuestionable = -8.0
	penaltyDayToDay     = -3.0
)

// Factor is one scored dimension of a matchup
type Factor struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`

	// hasData distinguishes a real observation from a neutral fallback;
	// it feeds the confidence estimator and is not serialized.
	hasData bool
}

func clampScore(s float64) float64 {
	if s > 100 {
		return 100
	}
	if s < -100 {
		return -100
	}
	return s
}

// scoreTeamStrength compares overall team quality. Net rating is preferred;
// the recent win rate is a proxy when advanced stats are unavailable for
// either team.
func scoreTeamStrength(in *Input) Factor {
	f := Factor{Name: "Team Strength"}

	if in.AdvancedA != nil && in.AdvancedB != nil {
		diff := in.AdvancedA.NetRating - in.AdvancedB.NetRating
		f.Score = clampScore(diff * strengthAmplifier)
		f.Description = fmt.Sprintf("net rating %.1f vs %.1f", in.AdvancedA.NetRating, in.AdvancedB.NetRating)
		f.hasData = true
		return f
	}

	if in.StatsA != nil && in.StatsB != nil {
		diff := in.StatsA.WinRate - in.StatsB.WinRate
		f.Score = clampScore(diff * winRateAmplifier)
		f.Description = fmt.Sprintf("win rate %.0f%% vs %.0f%% (advanced stats unavailable)",
			in.StatsA.WinRate*100, in.StatsB.WinRate*100)
		f.hasData = true
		return f
	}

	f.Description = "team strength data unavailable"
	return f
}

// scoreRecentForm compares results over each team's last five games.
func scoreRecentForm(in *Input) Factor {
	f := Factor{Name: "Recent Form"}

	rateA := in.StatsA.Last5WinRate()
	rateB := in.StatsB.Last5WinRate()
	f.Score = clampScore((rateA - rateB) * formMultiplier)
	f.hasData = in.StatsA != nil && in.StatsA.Last5Games > 0 &&
		in.StatsB != nil && in.StatsB.Last5Games > 0

	if f.hasData {
		f.Description = fmt.Sprintf("last 5: %d-%d vs %d-%d",
			in.StatsA.Last5Wins, in.StatsA.Last5Games-in.StatsA.Last5Wins,
			in.StatsB.Last5Wins, in.StatsB.Last5Games-in.StatsB.Last5Wins)
	} else {
		f.Description = "recent form data incomplete"
	}
	return f
}

// injuryPenalty sums per-player penalties for one team's report.
// A nil report is treated as fully healthy; that is a policy choice, not a
// data gap.
func injuryPenalty(report *models.TeamInjuries) float64 {
	if report == nil {
		return 0
	}
	var total float64
	for _, inj := range report.Injuries {
		switch inj.Status {
		case models.InjuryOut:
			total += penaltyOut
		case models.InjuryDoubtful:
			total += penaltyDoubtful
		case models.InjuryQuestionable:
			total += penaltyQuestionable
		case models.InjuryDayToDay:
			total += penaltyDayToDay
		}
	}
	return total
}

func scoreInjuryImpact(in *Input) Factor {
	f := Factor{Name: "Injury Impact"}

	penA := injuryPenalty(in.InjuriesA)
	penB := injuryPenalty(in.InjuriesB)
	f.Score = clampScore(penA - penB)

	// A nil report reads as a healthy roster, so this factor always counts
	// toward completeness; confidence must not drop for missing reports.
	f.hasData = true

	if in.InjuriesA != nil && in.InjuriesB != nil {
		f.Description = fmt.Sprintf("injury burden %.0f vs %.0f", penA, penB)
	} else {
		f.Description = "no injury report, assuming healthy rosters"
	}
	return f
}

// scoreHeadToHead scores historical matchups between the two teams.
// Weighted low by the aggregator because the sample is typically tiny.
func scoreHeadToHead(in *Input) Factor {
	f := Factor{Name: "Head-to-Head"}

	if in.H2H == nil || in.H2H.TotalGames == 0 {
		f.Description = "no recent head-to-head games"
		return f
	}

	f.Score = clampScore((in.H2H.TeamAWinRate() - 0.5) * h2hMultiplier)
	f.Description = fmt.Sprintf("head-to-head %d-%d", in.H2H.TeamAWins, in.H2H.TeamBWins)
	f.hasData = true
	return f
}

// scoreOffensivePower compares effective field-goal percentage.
func scoreOffensivePower(in *Input) Factor {
	f := Factor{Name: "Offensive Power"}

	if in.AdvancedA == nil || in.AdvancedB == nil {
		f.Description = "shooting efficiency data unavailable"
		return f
	}

	diff := in.AdvancedA.EffectiveFGPct - in.AdvancedB.EffectiveFGPct
	f.Score = clampScore(diff * offenseMultiplier)
	f.Description = fmt.Sprintf("eFG%% %.1f vs %.1f", in.AdvancedA.EffectiveFGPct, in.AdvancedB.EffectiveFGPct)
	f.hasData = true
	return f
}

// restStep maps rest days to a fatigue adjustment. Rest days are floored
// at 1 upstream; 1 means a back-to-back.
func restStep(days int) float64 {
	switch {
	case days <= 1:
		return -15
	case days == 2:
		return 0
	case days == 3:
		return 5
	default:
		return 8
	}
}

func scoreFatigue(in *Input) Factor {
	f := Factor{Name: "Fatigue & Rest"}

	stepA := restStep(in.RestDaysA)
	stepB := restStep(in.RestDaysB)
	f.Score = clampScore(stepA - stepB)
	f.Description = fmt.Sprintf("%d days rest vs %d", in.RestDaysA, in.RestDaysB)
	f.hasData = true
	return f
}

// scoreHomeAdvantage applies a fixed bonus to the home side when the
// home/away flag is known. The flag is resolved externally from the
// schedule; when unknown the factor stays neutral and confidence notes it.
func scoreHomeAdvantage(in *Input) Factor {
	f := Factor{Name: "Home Advantage"}

	if in.IsTeamAHome == nil {
		f.Description = "home court unknown"
		return f
	}

	if *in.IsTeamAHome {
		f.Score = homeBonus
		f.Description = fmt.Sprintf("%s at home", in.TeamA)
	} else {
		f.Score = -homeBonus
		f.Description = fmt.Sprintf("%s at home", in.TeamB)
	}
	f.hasData = true
	return f
}
