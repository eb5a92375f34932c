package server

import (
	"encoding/json"
	"net/http"
	"time"

	"polynba/internal/cache"
	"polynba/internal/models"
	"polynba/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db    *repository.Database
	cache *cache.RedisCache // nil when Redis is unavailable
}

// NewHandler creates a new handler with dependencies
func NewHandler(db *repository.Database, redisCache *cache.RedisCache) *Handler {
	return &Handler{
		db:    db,
		cache: redisCache,
	}
}

// HealthCheck returns the health status of the API and its backends
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	components := map[string]string{
		"database": "up",
		"cache":    "disabled",
	}
	status := http.StatusOK

	if err := h.db.Health(ctx); err != nil {
		components["database"] = "down"
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		components["cache"] = "up"
		if err := h.cache.Health(ctx); err != nil {
			// A dead cache degrades but does not fail the service
			components["cache"] = "down"
		}
	}

	respondJSON(w, status, map[string]interface{}{
		"status":     http.StatusText(status),
		"timestamp":  time.Now().UTC(),
		"service":    "polynba",
		"components": components,
		"pool":       h.db.PoolStats(),
	})
}

// GetPrediction returns the latest prediction for a game
// GET /api/v1/predictions/{gameID}
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	gameID := chi.URLParam(r, "gameID")
	if gameID == "" {
		respondError(w, http.StatusBadRequest, "game_id is required", nil)
		return
	}

	if h.cache != nil {
		var view models.PredictionView
		if err := h.cache.GetPrediction(ctx, gameID, &view); err == nil {
			respondJSON(w, http.StatusOK, &view)
			return
		}
	}

	game, err := h.db.Games.GetByGameID(ctx, gameID)
	if err != nil {
		respondError(w, http.StatusNotFound, "game not found", err)
		return
	}

	pred, err := h.db.Predictions.GetLatestByGameID(ctx, game.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve prediction", err)
		return
	}
	if pred == nil {
		respondError(w, http.StatusNotFound, "no prediction for game", nil)
		return
	}

	view := models.NewPredictionView(game, pred)

	if h.cache != nil {
		if err := h.cache.SetPrediction(ctx, gameID, view); err != nil {
			log.Warn().Err(err).Str("game_id", gameID).Msg("Failed to cache prediction")
		}
	}

	respondJSON(w, http.StatusOK, view)
}

// GetPredictions returns the latest prediction per game for a date
// GET /api/v1/predictions?date=YYYY-MM-DD (defaults to today, UTC)
func (h *Handler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDateParam(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD", err)
		return
	}

	preds, err := h.db.Predictions.ListByDate(ctx, date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve predictions", err)
		return
	}

	views := make([]*models.PredictionView, 0, len(preds))
	for _, pred := range preds {
		game, err := h.db.Games.GetByID(ctx, pred.GameID)
		if err != nil {
			log.Warn().Err(err).Int("game_id", pred.GameID).Msg("Prediction references unknown game")
			continue
		}
		views = append(views, models.NewPredictionView(game, pred))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":        date.Format("2006-01-02"),
		"predictions": views,
		"count":       len(views),
	})
}

// GetGames returns games on a date
// GET /api/v1/games?date=YYYY-MM-DD (defaults to today, UTC)
func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDateParam(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD", err)
		return
	}

	games, err := h.db.Games.ListByDate(ctx, date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve games", err)
		return
	}

	resp := make([]*gameResponse, 0, len(games))
	for _, game := range games {
		resp = append(resp, newGameResponse(game))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":  date.Format("2006-01-02"),
		"games": resp,
		"count": len(resp),
	})
}

// GetGame returns a single game by its provider event ID
// GET /api/v1/games/{gameID}
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	gameID := chi.URLParam(r, "gameID")
	if gameID == "" {
		respondError(w, http.StatusBadRequest, "game_id is required", nil)
		return
	}

	game, err := h.db.Games.GetByGameID(ctx, gameID)
	if err != nil {
		respondError(w, http.StatusNotFound, "game not found", err)
		return
	}

	respondJSON(w, http.StatusOK, newGameResponse(game))
}

// GetTeams returns all teams
// GET /api/v1/teams
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	teams, err := h.db.Teams.List(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve teams", err)
		return
	}

	resp := make([]*teamResponse, 0, len(teams))
	for _, team := range teams {
		resp = append(resp, newTeamResponse(team))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"teams": resp,
		"count": len(resp),
	})
}

// teamResponse is the API shape for a team
type teamResponse struct {
	ID           int    `json:"id"`
	TeamID       int    `json:"team_id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	DisplayName  string `json:"display_name"`
	Conference   string `json:"conference,omitempty"`
	Division     string `json:"division,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
}

func newTeamResponse(t *models.Team) *teamResponse {
	resp := &teamResponse{
		ID:           t.ID,
		TeamID:       t.TeamID,
		Abbreviation: t.Abbreviation,
		Name:         t.Name,
		Location:     t.Location,
		DisplayName:  t.DisplayName(),
	}
	if t.Conference.Valid {
		resp.Conference = t.Conference.String
	}
	if t.Division.Valid {
		resp.Division = t.Division.String
	}
	if t.LogoURL.Valid {
		resp.LogoURL = t.LogoURL.String
	}
	return resp
}

// gameResponse is the API shape for a game
type gameResponse struct {
	ID        int       `json:"id"`
	GameID    string    `json:"game_id"`
	Season    int       `json:"season"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	GameDate  time.Time `json:"game_date"`
	Status    string    `json:"status"`
	HomeScore *int      `json:"home_score,omitempty"`
	AwayScore *int      `json:"away_score,omitempty"`
	MarketID  string    `json:"market_id,omitempty"`
}

func newGameResponse(g *models.Game) *gameResponse {
	resp := &gameResponse{
		ID:       g.ID,
		GameID:   g.GameID,
		Season:   g.Season,
		HomeTeam: g.HomeTeamAbbr,
		AwayTeam: g.AwayTeamAbbr,
		GameDate: g.GameDate,
		Status:   g.Status,
	}
	if g.HomeScore.Valid {
		score := int(g.HomeScore.Int32)
		resp.HomeScore = &score
	}
	if g.AwayScore.Valid {
		score := int(g.AwayScore.Int32)
		resp.AwayScore = &score
	}
	if g.MarketID.Valid {
		resp.MarketID = g.MarketID.String
	}
	return resp
}

// parseDateParam parses a YYYY-MM-DD query parameter, defaulting to
// today's date in UTC when the parameter is absent.
func parseDateParam(r *http.Request, param string) (time.Time, error) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", value)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		log.Warn().Err(err).Int("status", status).Msg(message)
	}

	respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
		"code":    status,
	})
}
