package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"polynba/internal/config"
	"polynba/internal/models"
	"polynba/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests for the HTTP API
// Run with: go test -v ./internal/server/...

func setupTestServer(t *testing.T) (*httptest.Server, *repository.Database, context.Context) {
	ctx := context.Background()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     "localhost",
		Port:     "5432",
		Database: "polynba_test",
		User:     "polynba_user",
		Password: "polynba_password",
		SSLMode:  "disable",
	})
	require.NoError(t, err, "Failed to connect to test database")

	cfg := &config.Config{
		APIPort:     0,
		CORSOrigins: []string{"*"},
	}

	srv := NewServer(cfg, db, nil)
	ts := httptest.NewServer(srv.Router())

	return ts, db, ctx
}

func teardownTestServer(t *testing.T, ts *httptest.Server, db *repository.Database, ctx context.Context) {
	_, err := db.Pool.Exec(ctx, `DELETE FROM predictions WHERE game_id IN (SELECT id FROM games WHERE game_id LIKE 'apitest-%')`)
	assert.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `DELETE FROM games WHERE game_id LIKE 'apitest-%'`)
	assert.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `DELETE FROM teams WHERE team_id IN (9101, 9102)`)
	assert.NoError(t, err)

	ts.Close()
	db.Close()
}

func seedTeams(t *testing.T, db *repository.Database, ctx context.Context) (*models.Team, *models.Team) {
	home := &models.Team{TeamID: 9101, Abbreviation: "HME", Name: "Homers", Location: "Home City"}
	away := &models.Team{TeamID: 9102, Abbreviation: "AWY", Name: "Aways", Location: "Away City"}

	require.NoError(t, db.Teams.Upsert(ctx, home))
	require.NoError(t, db.Teams.Upsert(ctx, away))

	return home, away
}

func seedGame(t *testing.T, db *repository.Database, ctx context.Context, gameID string, date time.Time) *models.Game {
	home, away := seedTeams(t, db, ctx)

	game := &models.Game{
		GameID:       gameID,
		Season:       2026,
		HomeTeamID:   home.ID,
		AwayTeamID:   away.ID,
		HomeTeamAbbr: home.Abbreviation,
		AwayTeamAbbr: away.Abbreviation,
		GameDate:     date,
		Status:       "Scheduled",
	}
	require.NoError(t, db.Games.Upsert(ctx, game))

	return game
}

func getJSON(t *testing.T, url string, dest any) int {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	return resp.StatusCode
}

func TestHealthCheck(t *testing.T) {
	ts, db, ctx := setupTestServer(t)
	defer teardownTestServer(t, ts, db, ctx)

	var body map[string]any
	status := getJSON(t, ts.URL+"/health", &body)

	assert.Equal(t, http.StatusOK, status)
	components := body["components"].(map[string]any)
	assert.Equal(t, "up", components["database"])
	assert.Equal(t, "disabled", components["cache"])
}

func TestGetTeams(t *testing.T) {
	ts, db, ctx := setupTestServer(t)
	defer teardownTestServer(t, ts, db, ctx)

	seedTeams(t, db, ctx)

	var body struct {
		Teams []teamResponse `json:"teams"`
		Count int            `json:"count"`
	}
	status := getJSON(t, ts.URL+"/api/v1/teams", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, body.Count, 2)

	var found *teamResponse
	for i := range body.Teams {
		if body.Teams[i].Abbreviation == "HME" {
			found = &body.Teams[i]
		}
	}
	require.NotNil(t, found, "Seeded team should be listed")
	assert.Equal(t, "Home City Homers", found.DisplayName)
}

func TestGetGamesByDate(t *testing.T) {
	ts, db, ctx := setupTestServer(t)
	defer teardownTestServer(t, ts, db, ctx)

	gameDate := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	seedGame(t, db, ctx, "apitest-games-1", gameDate)

	var body struct {
		Games []gameResponse `json:"games"`
		Count int            `json:"count"`
	}
	status := getJSON(t, ts.URL+"/api/v1/games?date=2026-03-14", &body)

	assert.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "apitest-games-1", body.Games[0].GameID)
	assert.Equal(t, "HME", body.Games[0].HomeTeam)
	assert.Nil(t, body.Games[0].HomeScore)
}

func TestGetGamesInvalidDate(t *testing.T) {
	ts, db, ctx := setupTestServer(t)
	defer teardownTestServer(t, ts, db, ctx)

	var body map[string]any
	status := getJSON(t, ts.URL+"/api/v1/games?date=03-14-2026", &body)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid date, expected YYYY-MM-DD", body["message"])
}

func TestGetGameByID(t *testing.T) {
	ts, db, ctx := setupTestServer(t)
	defer teardownTestServer(t, ts, db, ctx)

	seedGame(t, db, ctx, "apitest-game-1", time.Now().UTC().Add(12*time.Hour))

	var body gameResponse
	status := getJSON(t, ts.URL+"/api/v1/games/apitest-game-1", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "apitest-game-1", body.GameID)
	assert.Equal(t, "AWY", body.AwayTeam)
}

func TestGetPrediction(t *testing.T) {
	ts, db, ctx := setupTestServer(t)
	defer teardownTestServer(t, ts, db, ctx)

	game := seedGame(t, db, ctx, "apitest-pred-1", time.Now().UTC().Add(12*time.Hour))

	yes := 0.58
	no := 0.42
	pi := &models.PredictionInput{
		GameID:           game.ID,
		ModelName:        "heuristic",
		ModelVersion:     "heuristic-v3",
		HomeProbability:  0.61,
		AwayProbability:  0.39,
		ModelProbability: 0.62,
		Confidence:       0.74,
		Factors:          map[string]float64{"Team Strength": 12.5},
		Reasoning:        []string{"Team Strength: HME favored (net rating edge)"},
		MarketYesPrice:   &yes,
		MarketNoPrice:    &no,
		PredictedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.Predictions.CreatePrediction(ctx, pi.ToRecord()))

	var view models.PredictionView
	status := getJSON(t, ts.URL+"/api/v1/predictions/apitest-pred-1", &view)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "apitest-pred-1", view.GameID)
	assert.Equal(t, "HME", view.HomeTeam)
	assert.Equal(t, "heuristic", view.ModelName)
	assert.Equal(t, "heuristic-v3", view.ModelVersion)
	assert.InDelta(t, 0.61, view.HomeProbability, 1e-9)
	assert.InDelta(t, 0.74, view.Confidence, 1e-9)
	require.NotNil(t, view.MarketYesPrice)
	assert.InDelta(t, 0.58, *view.MarketYesPrice, 1e-9)
	assert.Nil(t, view.HomeWon, "Unsettled prediction has no outcome")
}

func TestGetPredictionNotFound(t *testing.T) {
	ts, db, ctx := setupTestServer(t)
	defer teardownTestServer(t, ts, db, ctx)

	var body map[string]any
	status := getJSON(t, ts.URL+"/api/v1/predictions/apitest-missing", &body)

	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetPredictionGameWithoutPrediction(t *testing.T) {
	ts, db, ctx := setupTestServer(t)
	defer teardownTestServer(t, ts, db, ctx)

	seedGame(t, db, ctx, "apitest-nopred-1", time.Now().UTC().Add(12*time.Hour))

	var body map[string]any
	status := getJSON(t, ts.URL+"/api/v1/predictions/apitest-nopred-1", &body)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "no prediction for game", body["message"])
}

func TestGetPredictionsByDate(t *testing.T) {
	ts, db, ctx := setupTestServer(t)
	defer teardownTestServer(t, ts, db, ctx)

	gameDate := time.Date(2026, 4, 2, 0, 30, 0, 0, time.UTC)
	game := seedGame(t, db, ctx, "apitest-slate-1", gameDate)

	// Two predictions for the same game; only the latest should be served
	older := &models.PredictionInput{
		GameID:          game.ID,
		ModelName:       "heuristic",
		HomeProbability: 0.55,
		AwayProbability: 0.45,
		Confidence:      0.6,
		PredictedAt:     time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, db.Predictions.CreatePrediction(ctx, older.ToRecord()))

	newer := &models.PredictionInput{
		GameID:          game.ID,
		ModelName:       "heuristic",
		HomeProbability: 0.59,
		AwayProbability: 0.41,
		Confidence:      0.65,
		PredictedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.Predictions.CreatePrediction(ctx, newer.ToRecord()))

	var body struct {
		Date        string                  `json:"date"`
		Predictions []models.PredictionView `json:"predictions"`
		Count       int                     `json:"count"`
	}
	status := getJSON(t, ts.URL+"/api/v1/predictions?date=2026-04-02", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2026-04-02", body.Date)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "apitest-slate-1", body.Predictions[0].GameID)
	assert.InDelta(t, 0.59, body.Predictions[0].HomeProbability, 1e-9)
}

func TestParseDateParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/games?date=2026-01-15", nil)
	date, err := parseDateParam(r, "date")
	require.NoError(t, err)
	assert.Equal(t, 2026, date.Year())
	assert.Equal(t, time.January, date.Month())
	assert.Equal(t, 15, date.Day())

	r = httptest.NewRequest(http.MethodGet, "/api/v1/games", nil)
	date, err = parseDateParam(r, "date")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), date, time.Minute)

	r = httptest.NewRequest(http.MethodGet, "/api/v1/games?date=tomorrow", nil)
	_, err = parseDateParam(r, "date")
	assert.Error(t, err)
}

func TestNewGameResponse(t *testing.T) {
	game := &models.Game{
		ID:           7,
		GameID:       "401700001",
		Season:       2026,
		HomeTeamAbbr: "BOS",
		AwayTeamAbbr: "LAL",
		Status:       "Scheduled",
	}

	resp := newGameResponse(game)
	assert.Equal(t, "401700001", resp.GameID)
	assert.Nil(t, resp.HomeScore)
	assert.Nil(t, resp.AwayScore)
	assert.Empty(t, resp.MarketID)
}
