// Package engine computes heuristic win probabilities for NBA matchups.
//
// The engine is a single-pass, stateless computation: identical inputs
// produce identical outputs, it performs no I/O and holds no shared state,
// so callers may invoke it concurrently without coordination. Incomplete
// data (missing stats, injuries, unknown home court) degrades to neutral
// defaults and lowers confidence; only structurally invalid input returns
// an error.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"polynba/internal/models"
)

// ErrInvalidInput marks structurally invalid engine input, such as
// negative rest days or market prices outside [0, 1].
var ErrInvalidInput = errors.New("invalid prediction input")

// Aggregation constants. Weights sum to 1.0; the head-to-head weight folds
// in the low prior historically applied to the small h2h sample.
const (
	weightStrength = 0.30
	weightForm     = 0.15
	weightInjury   = 0.20
	weightH2H      = 0.05
	weightOffense  = 0.10
	weightFatigue  = 0.10
	weightHome     = 0.10

	// Synergy bumps beyond the linear sum
	restedHomeBonus        = 5.0
	injuredFatiguedPenalty = 5.0
	heavyInjuryThreshold   = -20.0

	// Logistic sensitivity: k grows as data completeness drops, pulling
	// sparse-data probabilities toward 0.5.
	sigmoidBaseK   = 20.0
	sigmoidSparseK = 12.0

	// Safety band keeping probabilities away from degenerate certainty
	minProbability = 0.01
	maxProbability = 0.99

	// Market blend priors
	modelPriorWeight  = 0.7
	marketPriorWeight = 0.3

	topReasoningFactors = 4
)

// ModelVersion identifies the canonical weight/constant set above.
const ModelVersion = "heuristic-v3"

// MarketPrices holds the observed prediction-market prices for the
// team-A-wins outcome. Yes and No are each in [0, 1].
type MarketPrices struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}

// ImpliedProbability returns the normalized market probability for team A.
func (m MarketPrices) ImpliedProbability() float64 {
	return m.Yes / (m.Yes + m.No)
}

// Input carries fully resolved matchup data. Nil pointers mean the data
// was unavailable; the engine absorbs those as neutral defaults.
type Input struct {
	TeamA string
	TeamB string

	StatsA *models.TeamRecentStats
	StatsB *models.TeamRecentStats

	H2H *models.H2HStats

	AdvancedA *models.AdvancedTeamStats
	AdvancedB *models.AdvancedTeamStats

	InjuriesA *models.TeamInjuries
	InjuriesB *models.TeamInjuries

	// Market is the observed market price pair; nil skips blending.
	Market *MarketPrices

	// RestDaysA/B are non-negative, floored at 1 by the stats builder.
	RestDaysA int
	RestDaysB int

	// IsTeamAHome is nil when home court could not be resolved.
	IsTeamAHome *bool
}

// Result is the engine output. TeamAProbability is the final
// market-blended figure; ModelProbability retains the raw model number so
// callers can display model-vs-market divergence.
type Result struct {
	TeamAProbability  float64  `json:"teamAProbability"`
	TeamBProbability  float64  `json:"teamBProbability"`
	ModelProbability  float64  `json:"modelProbability"`
	MarketProbability float64  `json:"marketProbability"`
	Confidence        float64  `json:"confidence"`
	Factors           []Factor `json:"factors"`
	Reasoning         []string `json:"reasoning"`
}

// Predict scores the matchup and returns the win-probability estimate for
// team A, its complement for team B, a confidence score, the contributing
// factors and human-readable reasoning.
func Predict(in *Input) (*Result, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil input", ErrInvalidInput)
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	// Declaration order is the tiebreak for reasoning, so keep it stable.
	factors := []Factor{
		scoreTeamStrength(in),
		scoreRecentForm(in),
		scoreInjuryImpact(in),
		scoreHeadToHead(in),
		scoreOffensivePower(in),
		scoreFatigue(in),
		scoreHomeAdvantage(in),
	}
	weights := []float64{
		weightStrength,
		weightForm,
		weightInjury,
		weightH2H,
		weightOffense,
		weightFatigue,
		weightHome,
	}

	composite := 0.0
	withData := 0
	for i, f := range factors {
		composite += clampScore(f.Score) * weights[i]
		if f.hasData {
			withData++
		}
	}
	composite += synergy(in)

	completeness := float64(withData) / float64(len(factors))

	// Sparse data flattens the curve toward a coin flip
	k := sigmoidBaseK + sigmoidSparseK*(1-completeness)
	modelProb := clampProbability(sigmoid(composite / k))

	res := &Result{
		ModelProbability: modelProb,
		Confidence:       confidence(completeness, composite),
		Factors:          factors,
		Reasoning:        buildReasoning(in, factors),
	}

	// Blend with the market when a price is available; the raw model
	// number is retained for divergence display.
	final := modelProb
	if in.Market != nil {
		res.MarketProbability = in.Market.ImpliedProbability()
		final = clampProbability(modelPriorWeight*modelProb + marketPriorWeight*res.MarketProbability)
	}
	res.TeamAProbability = final
	res.TeamBProbability = 1 - final

	return res, nil
}

func validate(in *Input) error {
	if in.RestDaysA < 0 || in.RestDaysB < 0 {
		return fmt.Errorf("%w: negative rest days (%d, %d)", ErrInvalidInput, in.RestDaysA, in.RestDaysB)
	}
	for _, adv := range []*models.AdvancedTeamStats{in.AdvancedA, in.AdvancedB} {
		if adv == nil {
			continue
		}
		if !isFinite(adv.NetRating) || !isFinite(adv.EffectiveFGPct) {
			return fmt.Errorf("%w: non-finite advanced stats for %s", ErrInvalidInput, adv.Team)
		}
	}
	for _, st := range []*models.TeamRecentStats{in.StatsA, in.StatsB} {
		if st == nil {
			continue
		}
		if !isFinite(st.WinRate) || !isFinite(st.AvgScore) {
			return fmt.Errorf("%w: non-finite recent stats for %s", ErrInvalidInput, st.Team)
		}
		if st.Last5Games < 0 || st.Last5Wins < 0 || st.Last5Wins > st.Last5Games {
			return fmt.Errorf("%w: inconsistent last-5 record for %s (%d of %d)",
				ErrInvalidInput, st.Team, st.Last5Wins, st.Last5Games)
		}
	}
	if h := in.H2H; h != nil {
		if h.TotalGames < 0 || h.TeamAWins < 0 || h.TeamBWins < 0 ||
			h.TeamAWins+h.TeamBWins > h.TotalGames {
			return fmt.Errorf("%w: inconsistent head-to-head record (%d-%d of %d)",
				ErrInvalidInput, h.TeamAWins, h.TeamBWins, h.TotalGames)
		}
	}
	if in.Market != nil {
		m := in.Market
		if !isFinite(m.Yes) || !isFinite(m.No) ||
			m.Yes < 0 || m.Yes > 1 || m.No < 0 || m.No > 1 {
			return fmt.Errorf("%w: market prices out of range (yes=%v no=%v)", ErrInvalidInput, m.Yes, m.No)
		}
		if m.Yes+m.No == 0 {
			return fmt.Errorf("%w: market prices sum to zero", ErrInvalidInput)
		}
	}
	return nil
}

// synergy applies constant nonlinear corrections for factor combinations
// the linear sum undersells: a well-rested home team, and a depleted team
// on short rest. Computed per team and differenced to keep the score
// antisymmetric under team swap.
func synergy(in *Input) float64 {
	adjust := func(home bool, restDays int, injuries *models.TeamInjuries) float64 {
		var adj float64
		if home && restDays >= 3 {
			adj += restedHomeBonus
		}
		if injuryPenalty(injuries) <= heavyInjuryThreshold && restStep(restDays) < 0 {
			adj -= injuredFatiguedPenalty
		}
		return adj
	}

	homeA, homeB := false, false
	if in.IsTeamAHome != nil {
		homeA = *in.IsTeamAHome
		homeB = !homeA
	}

	return adjust(homeA, in.RestDaysA, in.InjuriesA) - adjust(homeB, in.RestDaysB, in.InjuriesB)
}

// confidence grows with data completeness, with a smaller contribution
// from the magnitude of the composite score. It can only fall as inputs
// go missing: defaults zero their factor scores, so both terms shrink.
func confidence(completeness, composite float64) float64 {
	magnitude := math.Min(math.Abs(composite)/60, 1)
	return 0.7*completeness + 0.3*completeness*magnitude
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clampProbability(p float64) float64 {
	if p < minProbability {
		return minProbability
	}
	if p > maxProbability {
		return maxProbability
	}
	return p
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// buildReasoning renders the top factors by absolute score as display
// strings. The sort is stable so ties keep declaration order. Factors
// carry no signal below half a point and are skipped.
func buildReasoning(in *Input, factors []Factor) []string {
	ranked := make([]Factor, len(factors))
	copy(ranked, factors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Score) > math.Abs(ranked[j].Score)
	})

	reasoning := make([]string, 0, topReasoningFactors)
	for _, f := range ranked {
		if len(reasoning) == topReasoningFactors {
			break
		}
		if math.Abs(f.Score) < 0.5 {
			continue
		}
		favored := in.TeamA
		if f.Score < 0 {
			favored = in.TeamB
		}
		reasoning = append(reasoning, fmt.Sprintf("%s: %s favored (%s)", f.Name, favored, f.Description))
	}
	return reasoning
}
