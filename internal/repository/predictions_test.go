package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"polynba/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upsertTestGame(t *testing.T, db *Database, ctx context.Context, gameID string) *models.Game {
	home, away := upsertTestTeams(t, db, ctx)

	game := &models.Game{
		GameID: gameID, Season: 2026,
		HomeTeamID: home.ID, AwayTeamID: away.ID,
		HomeTeamAbbr: home.Abbreviation, AwayTeamAbbr: away.Abbreviation,
		Status: "Scheduled", GameDate: time.Now().Add(12 * time.Hour).UTC(),
	}
	require.NoError(t, db.Games.Upsert(ctx, game))
	return game
}

func samplePredictionInput(gameID int) *models.PredictionInput {
	yes, no := 0.62, 0.38
	edge := 450.0
	return &models.PredictionInput{
		GameID:           gameID,
		ModelName:        "heuristic",
		ModelVersion:     "heuristic-v3",
		HomeProbability:  0.58,
		AwayProbability:  0.42,
		ModelProbability: 0.56,
		Confidence:       0.74,
		Factors:          []map[string]any{{"name": "Team Strength", "score": 15.9}},
		Reasoning:        []string{"Team Strength: HME favored (net rating 6.5 vs 1.2)"},
		MarketID:         "512329",
		MarketYesPrice:   &yes,
		MarketNoPrice:    &no,
		EdgeBps:          &edge,
		PredictedAt:      time.Now().UTC(),
	}
}

func TestPredictionRepository_CreateAndGet(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := upsertTestGame(t, db, ctx, "401900401")
	rec := samplePredictionInput(game.ID).ToRecord()

	require.NoError(t, db.Predictions.CreatePrediction(ctx, rec))

	latest, err := db.Predictions.GetLatestByGameID(ctx, game.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, rec.ID, latest.ID)
	assert.InDelta(t, 0.58, latest.HomeProbability, 1e-9)
	assert.InDelta(t, 0.56, latest.ModelProbability, 1e-9)
	assert.Equal(t, "heuristic-v3", latest.ModelVersion.String)
	assert.Equal(t, "512329", latest.MarketID.String)
	assert.JSONEq(t, `["Team Strength: HME favored (net rating 6.5 vs 1.2)"]`, string(latest.Reasoning))
	assert.False(t, latest.HomeWon.Valid, "Outcome is unknown before settlement")
}

func TestPredictionRepository_GetLatest_PicksNewest(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := upsertTestGame(t, db, ctx, "401900402")

	older := samplePredictionInput(game.ID)
	older.PredictedAt = time.Now().Add(-2 * time.Hour).UTC()
	older.HomeProbability = 0.51
	older.AwayProbability = 0.49
	require.NoError(t, db.Predictions.CreatePrediction(ctx, older.ToRecord()))

	newer := samplePredictionInput(game.ID)
	require.NoError(t, db.Predictions.CreatePrediction(ctx, newer.ToRecord()))

	latest, err := db.Predictions.GetLatestByGameID(ctx, game.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, 0.58, latest.HomeProbability, 1e-9)
}

func TestPredictionRepository_GetLatest_Missing(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	latest, err := db.Predictions.GetLatestByGameID(ctx, 999999)
	require.NoError(t, err)
	assert.Nil(t, latest, "Missing prediction returns nil without error")
}

func TestPredictionRepository_Validation(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	tests := []struct {
		name   string
		mutate func(*models.PredictionRecord)
	}{
		{"missing model name", func(p *models.PredictionRecord) { p.ModelName = "" }},
		{"probability above one", func(p *models.PredictionRecord) { p.HomeProbability = 1.2 }},
		{"negative confidence", func(p *models.PredictionRecord) { p.Confidence = -0.1 }},
		{"zero game id", func(p *models.PredictionRecord) { p.GameID = 0 }},
		{"zero predicted_at", func(p *models.PredictionRecord) { p.PredictedAt = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := samplePredictionInput(1).ToRecord()
			tt.mutate(rec)
			err := db.Predictions.CreatePrediction(ctx, rec)
			assert.Error(t, err)
		})
	}
}

func TestPredictionRepository_SettleFlow(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := upsertTestGame(t, db, ctx, "401900403")
	rec := samplePredictionInput(game.ID).ToRecord()
	require.NoError(t, db.Predictions.CreatePrediction(ctx, rec))

	// Nothing to settle while the game is still scheduled
	unsettled, err := db.Predictions.ListUnsettled(ctx)
	require.NoError(t, err)
	for _, p := range unsettled {
		assert.NotEqual(t, rec.ID, p.ID)
	}

	// Game goes final
	game.Status = "Final"
	game.HomeScore = sql.NullInt32{Int32: 112, Valid: true}
	game.AwayScore = sql.NullInt32{Int32: 105, Valid: true}
	require.NoError(t, db.Games.Upsert(ctx, game))

	unsettled, err = db.Predictions.ListUnsettled(ctx)
	require.NoError(t, err)
	found := false
	for _, p := range unsettled {
		if p.ID == rec.ID {
			found = true
		}
	}
	require.True(t, found, "Final game with unsettled prediction should be listed")

	require.NoError(t, db.Predictions.RecordOutcome(ctx, rec.ID.String(), true))

	settled, err := db.Predictions.GetLatestByGameID(ctx, game.ID)
	require.NoError(t, err)
	require.True(t, settled.HomeWon.Valid)
	assert.True(t, settled.HomeWon.Bool)
	assert.True(t, settled.SettledAt.Valid)

	// Second settle attempt is rejected
	err = db.Predictions.RecordOutcome(ctx, rec.ID.String(), true)
	assert.Error(t, err)
}
