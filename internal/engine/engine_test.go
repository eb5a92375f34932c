package engine

import (
	"encoding/json"
	"testing"

	"polynba/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

// fullInput returns an input with real data for every factor
func fullInput() *Input {
	return &Input{
		TeamA: "BOS",
		TeamB: "LAL",
		StatsA: &models.TeamRecentStats{
			Team: "BOS", Wins: 7, Losses: 3, WinRate: 0.7,
			Last5Wins: 4, Last5Games: 5, AvgScore: 114.2, Form: "WWWLW",
		},
		StatsB: &models.TeamRecentStats{
			Team: "LAL", Wins: 5, Losses: 5, WinRate: 0.5,
			Last5Wins: 2, Last5Games: 5, AvgScore: 110.8, Form: "LWLWL",
		},
		H2H: &models.H2HStats{
			TeamA: "BOS", TeamB: "LAL", TeamAWins: 2, TeamBWins: 1, TotalGames: 3,
		},
		AdvancedA: &models.AdvancedTeamStats{Team: "BOS", NetRating: 6.5, EffectiveFGPct: 56.2},
		AdvancedB: &models.AdvancedTeamStats{Team: "LAL", NetRating: 1.2, EffectiveFGPct: 53.8},
		InjuriesA: &models.TeamInjuries{Team: "BOS"},
		InjuriesB: &models.TeamInjuries{Team: "LAL"},
		Market:    &MarketPrices{Yes: 0.62, No: 0.38},
		RestDaysA: 2,
		RestDaysB: 2,
		IsTeamAHome: boolPtr(true),
	}
}

// swapped returns the same matchup from team B's perspective
func swapped(in *Input) *Input {
	out := &Input{
		TeamA:     in.TeamB,
		TeamB:     in.TeamA,
		StatsA:    in.StatsB,
		StatsB:    in.StatsA,
		AdvancedA: in.AdvancedB,
		AdvancedB: in.AdvancedA,
		InjuriesA: in.InjuriesB,
		InjuriesB: in.InjuriesA,
		RestDaysA: in.RestDaysB,
		RestDaysB: in.RestDaysA,
	}
	if in.H2H != nil {
		out.H2H = &models.H2HStats{
			TeamA:      in.H2H.TeamB,
			TeamB:      in.H2H.TeamA,
			TeamAWins:  in.H2H.TeamBWins,
			TeamBWins:  in.H2H.TeamAWins,
			TeamAForm:  in.H2H.TeamBForm,
			TeamBForm:  in.H2H.TeamAForm,
			TotalGames: in.H2H.TotalGames,
		}
	}
	if in.Market != nil {
		out.Market = &MarketPrices{Yes: in.Market.No, No: in.Market.Yes}
	}
	if in.IsTeamAHome != nil {
		out.IsTeamAHome = boolPtr(!*in.IsTeamAHome)
	}
	return out
}

func TestPredict_ProbabilitiesSumToOne(t *testing.T) {
	res, err := Predict(fullInput())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.TeamAProbability+res.TeamBProbability, 1e-12)
	assert.GreaterOrEqual(t, res.TeamAProbability, 0.01)
	assert.LessOrEqual(t, res.TeamAProbability, 0.99)
}

func TestPredict_FactorScoresBounded(t *testing.T) {
	// Exaggerated inputs to force clamping
	in := fullInput()
	in.AdvancedA.NetRating = 80
	in.AdvancedB.NetRating = -80
	in.AdvancedA.EffectiveFGPct = 70
	in.AdvancedB.EffectiveFGPct = 40
	in.InjuriesB = &models.TeamInjuries{
		Team: "LAL",
		Injuries: []models.InjuryRecord{
			{Player: "P1", Status: models.InjuryOut},
			{Player: "P2", Status: models.InjuryOut},
			{Player: "P3", Status: models.InjuryOut},
			{Player: "P4", Status: models.InjuryOut},
			{Player: "P5", Status: models.InjuryOut},
		},
	}

	res, err := Predict(in)
	require.NoError(t, err)

	for _, f := range res.Factors {
		assert.GreaterOrEqual(t, f.Score, -100.0, "factor %s below bound", f.Name)
		assert.LessOrEqual(t, f.Score, 100.0, "factor %s above bound", f.Name)
	}
}

func TestPredict_SwapSymmetry(t *testing.T) {
	in := fullInput()
	res, err := Predict(in)
	require.NoError(t, err)

	resSwapped, err := Predict(swapped(in))
	require.NoError(t, err)

	assert.InDelta(t, res.TeamAProbability, resSwapped.TeamBProbability, 1e-9)
	assert.InDelta(t, res.TeamBProbability, resSwapped.TeamAProbability, 1e-9)
	assert.InDelta(t, res.Confidence, resSwapped.Confidence, 1e-9)
}

func TestPredict_Deterministic(t *testing.T) {
	in := fullInput()

	first, err := Predict(in)
	require.NoError(t, err)
	second, err := Predict(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPredict_ConfidenceDropsWithMissingData(t *testing.T) {
	full, err := Predict(fullInput())
	require.NoError(t, err)

	sparse := fullInput()
	sparse.AdvancedA = nil
	sparse.AdvancedB = nil
	sparse.H2H = nil
	sparseRes, err := Predict(sparse)
	require.NoError(t, err)

	assert.Less(t, sparseRes.Confidence, full.Confidence,
		"dropping advanced and head-to-head data should strictly reduce confidence")
}

func TestPredict_NilInjuryReportsKeepConfidence(t *testing.T) {
	// A missing injury report means a healthy roster, not missing data,
	// so it must not pull confidence down.
	full, err := Predict(fullInput())
	require.NoError(t, err)

	noReports := fullInput()
	noReports.InjuriesA = nil
	noReports.InjuriesB = nil
	res, err := Predict(noReports)
	require.NoError(t, err)

	assert.Equal(t, full.Confidence, res.Confidence)
	assert.Equal(t, full.TeamAProbability, res.TeamAProbability)
}

func TestPredict_StrengthOutweighsFatigue(t *testing.T) {
	// Team A: 0.70 win rate on a back-to-back. Team B: 0.50 with three
	// days rest. No injuries, even market, home unknown.
	in := &Input{
		TeamA: "DEN",
		TeamB: "UTA",
		StatsA: &models.TeamRecentStats{
			Team: "DEN", Wins: 7, Losses: 3, WinRate: 0.7,
			Last5Wins: 4, Last5Games: 5,
		},
		StatsB: &models.TeamRecentStats{
			Team: "UTA", Wins: 5, Losses: 5, WinRate: 0.5,
			Last5Wins: 2, Last5Games: 5,
		},
		Market:    &MarketPrices{Yes: 0.5, No: 0.5},
		RestDaysA: 1,
		RestDaysB: 3,
	}

	res, err := Predict(in)
	require.NoError(t, err)

	assert.Greater(t, res.TeamAProbability, 0.5, "strength should outweigh the fatigue penalty")
	assert.Less(t, res.TeamAProbability, 0.65, "edge should be modest")

	full, err := Predict(fullInput())
	require.NoError(t, err)
	assert.Less(t, res.Confidence, full.Confidence)
}

func TestPredict_SymmetricInputsAreCoinFlip(t *testing.T) {
	stats := func(team string) *models.TeamRecentStats {
		return &models.TeamRecentStats{
			Team: team, Wins: 5, Losses: 5, WinRate: 0.5,
			Last5Wins: 3, Last5Games: 5,
		}
	}
	in := &Input{
		TeamA:     "NYK",
		TeamB:     "PHI",
		StatsA:    stats("NYK"),
		StatsB:    stats("PHI"),
		AdvancedA: &models.AdvancedTeamStats{Team: "NYK", NetRating: 2.0, EffectiveFGPct: 54.0},
		AdvancedB: &models.AdvancedTeamStats{Team: "PHI", NetRating: 2.0, EffectiveFGPct: 54.0},
		InjuriesA: &models.TeamInjuries{Team: "NYK"},
		InjuriesB: &models.TeamInjuries{Team: "PHI"},
		Market:    &MarketPrices{Yes: 0.5, No: 0.5},
		RestDaysA: 2,
		RestDaysB: 2,
	}

	res, err := Predict(in)
	require.NoError(t, err)

	assert.Equal(t, 0.5, res.TeamAProbability)
	assert.Equal(t, 0.5, res.TeamBProbability)
	for _, f := range res.Factors {
		assert.InDelta(t, 0, f.Score, 1e-12, "factor %s should be neutral", f.Name)
	}
}

func TestPredict_InjuryDropsFavorite(t *testing.T) {
	baseline, err := Predict(fullInput())
	require.NoError(t, err)
	require.Greater(t, baseline.TeamAProbability, 0.5, "team A should be favored before the injury")

	injured := fullInput()
	injured.InjuriesA = &models.TeamInjuries{
		Team: "BOS",
		Injuries: []models.InjuryRecord{
			{Player: "Star Forward", Status: models.InjuryOut, Detail: "ankle"},
		},
	}

	res, err := Predict(injured)
	require.NoError(t, err)

	var injuryFactor *Factor
	for i := range res.Factors {
		if res.Factors[i].Name == "Injury Impact" {
			injuryFactor = &res.Factors[i]
		}
	}
	require.NotNil(t, injuryFactor)
	assert.Negative(t, injuryFactor.Score)
	assert.Less(t, res.TeamAProbability, baseline.TeamAProbability)
}

func TestPredict_RetainsUnblendedModelProbability(t *testing.T) {
	res, err := Predict(fullInput())
	require.NoError(t, err)

	assert.NotZero(t, res.ModelProbability)
	assert.InDelta(t, 0.62, res.MarketProbability, 1e-12)

	expected := 0.7*res.ModelProbability + 0.3*res.MarketProbability
	assert.InDelta(t, expected, res.TeamAProbability, 1e-12)
}

func TestPredict_NoMarketSkipsBlend(t *testing.T) {
	in := fullInput()
	in.Market = nil

	res, err := Predict(in)
	require.NoError(t, err)

	assert.Equal(t, res.ModelProbability, res.TeamAProbability)
	assert.Zero(t, res.MarketProbability)
}

func TestPredict_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"negative rest days", func(in *Input) { in.RestDaysA = -1 }},
		{"market price above one", func(in *Input) { in.Market.Yes = 1.5 }},
		{"negative market price", func(in *Input) { in.Market.No = -0.2 }},
		{"zero-sum market", func(in *Input) { in.Market.Yes = 0; in.Market.No = 0 }},
		{"nan net rating", func(in *Input) { in.AdvancedA.NetRating = nan() }},
		{"nan recent win rate", func(in *Input) {
			in.StatsA.WinRate = nan()
			in.AdvancedA = nil // the win-rate fallback path must still reject NaN
		}},
		{"nan recent avg score", func(in *Input) { in.StatsB.AvgScore = nan() }},
		{"negative last-5 games", func(in *Input) { in.StatsB.Last5Games = -1 }},
		{"last-5 wins exceed games", func(in *Input) { in.StatsA.Last5Wins = 6 }},
		{"head-to-head wins exceed games", func(in *Input) { in.H2H.TeamAWins = 4 }},
		{"negative head-to-head total", func(in *Input) {
			in.H2H.TeamAWins = 0
			in.H2H.TeamBWins = 0
			in.H2H.TotalGames = -2
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := fullInput()
			tt.mutate(in)

			_, err := Predict(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPredict_NilInput(t *testing.T) {
	_, err := Predict(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResult_JSONRoundTrip(t *testing.T) {
	res, err := Predict(fullInput())
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, res.TeamAProbability, decoded.TeamAProbability)
	assert.Equal(t, res.TeamBProbability, decoded.TeamBProbability)
	assert.Equal(t, res.ModelProbability, decoded.ModelProbability)
	assert.Equal(t, res.MarketProbability, decoded.MarketProbability)
	assert.Equal(t, res.Confidence, decoded.Confidence)
	assert.Equal(t, res.Reasoning, decoded.Reasoning)

	require.Len(t, decoded.Factors, len(res.Factors))
	for i := range res.Factors {
		assert.Equal(t, res.Factors[i].Name, decoded.Factors[i].Name)
		assert.Equal(t, res.Factors[i].Score, decoded.Factors[i].Score)
		assert.Equal(t, res.Factors[i].Description, decoded.Factors[i].Description)
	}
}

func TestPredict_ReasoningOrderedByMagnitude(t *testing.T) {
	res, err := Predict(fullInput())
	require.NoError(t, err)

	require.NotEmpty(t, res.Reasoning)
	assert.LessOrEqual(t, len(res.Reasoning), 4)
	for _, line := range res.Reasoning {
		assert.Regexp(t, `^.+: (BOS|LAL) favored \(.+\)$`, line)
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}
