package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PredictionRecord is a persisted snapshot of an engine result plus market
// context. The realized outcome columns are filled in post-hoc by the
// settle pass and drive offline calibration tracking.
type PredictionRecord struct {
	ID     uuid.UUID `db:"id"`
	GameID int       `db:"game_id"`

	ModelName    string         `db:"model_name"`
	ModelVersion sql.NullString `db:"model_version"`

	// Engine output
	HomeProbability  float64         `db:"home_probability"`
	AwayProbability  float64         `db:"away_probability"`
	ModelProbability float64         `db:"model_probability"` // pre-blend
	Confidence       float64         `db:"confidence"`
	Factors          json.RawMessage `db:"factors"`
	Reasoning        json.RawMessage `db:"reasoning"`

	// Market context at prediction time
	MarketID       sql.NullString  `db:"market_id"`
	MarketYesPrice sql.NullFloat64 `db:"market_yes_price"`
	MarketNoPrice  sql.NullFloat64 `db:"market_no_price"`
	EdgeBps        sql.NullFloat64 `db:"edge_bps"`

	// Realized outcome (post-hoc)
	HomeWon   sql.NullBool `db:"home_won"`
	SettledAt sql.NullTime `db:"settled_at"`

	PredictedAt time.Time `db:"predicted_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// PredictionView is the API-facing shape for a prediction, combining the
// stored record with game context. The same shape is written to the cache
// so cached and database reads serve identical JSON.
type PredictionView struct {
	GameID   string    `json:"game_id"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	GameDate time.Time `json:"game_date"`
	Status   string    `json:"status"`

	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version,omitempty"`

	HomeProbability  float64         `json:"home_probability"`
	AwayProbability  float64         `json:"away_probability"`
	ModelProbability float64         `json:"model_probability"`
	Confidence       float64         `json:"confidence"`
	Factors          json.RawMessage `json:"factors,omitempty"`
	Reasoning        json.RawMessage `json:"reasoning,omitempty"`

	MarketID       string   `json:"market_id,omitempty"`
	MarketYesPrice *float64 `json:"market_yes_price,omitempty"`
	MarketNoPrice  *float64 `json:"market_no_price,omitempty"`
	EdgeBps        *float64 `json:"edge_bps,omitempty"`

	HomeWon *bool `json:"home_won,omitempty"`

	PredictedAt time.Time `json:"predicted_at"`
}

// NewPredictionView assembles the API view from a game and its prediction
func NewPredictionView(game *Game, rec *PredictionRecord) *PredictionView {
	v := &PredictionView{
		GameID:           game.GameID,
		HomeTeam:         game.HomeTeamAbbr,
		AwayTeam:         game.AwayTeamAbbr,
		GameDate:         game.GameDate,
		Status:           game.Status,
		ModelName:        rec.ModelName,
		HomeProbability:  rec.HomeProbability,
		AwayProbability:  rec.AwayProbability,
		ModelProbability: rec.ModelProbability,
		Confidence:       rec.Confidence,
		Factors:          rec.Factors,
		Reasoning:        rec.Reasoning,
		PredictedAt:      rec.PredictedAt,
	}

	if rec.ModelVersion.Valid {
		v.ModelVersion = rec.ModelVersion.String
	}
	if rec.MarketID.Valid {
		v.MarketID = rec.MarketID.String
	}
	if rec.MarketYesPrice.Valid {
		v.MarketYesPrice = &rec.MarketYesPrice.Float64
	}
	if rec.MarketNoPrice.Valid {
		v.MarketNoPrice = &rec.MarketNoPrice.Float64
	}
	if rec.EdgeBps.Valid {
		v.EdgeBps = &rec.EdgeBps.Float64
	}
	if rec.HomeWon.Valid {
		v.HomeWon = &rec.HomeWon.Bool
	}

	return v
}

// PredictionInput is used for creating prediction records from engine output
type PredictionInput struct {
	GameID           int       `json:"game_id"`
	ModelName        string    `json:"model_name"`
	ModelVersion     string    `json:"model_version,omitempty"`
	HomeProbability  float64   `json:"home_probability"`
	AwayProbability  float64   `json:"away_probability"`
	ModelProbability float64   `json:"model_probability"`
	Confidence       float64   `json:"confidence"`
	Factors          any       `json:"factors,omitempty"`
	Reasoning        []string  `json:"reasoning,omitempty"`
	MarketID         string    `json:"market_id,omitempty"`
	MarketYesPrice   *float64  `json:"market_yes_price,omitempty"`
	MarketNoPrice    *float64  `json:"market_no_price,omitempty"`
	EdgeBps          *float64  `json:"edge_bps,omitempty"`
	PredictedAt      time.Time `json:"predicted_at"`
}

// ToRecord converts PredictionInput to a PredictionRecord
func (pi *PredictionInput) ToRecord() *PredictionRecord {
	rec := &PredictionRecord{
		ID:               uuid.New(),
		GameID:           pi.GameID,
		ModelName:        pi.ModelName,
		HomeProbability:  pi.HomeProbability,
		AwayProbability:  pi.AwayProbability,
		ModelProbability: pi.ModelProbability,
		Confidence:       pi.Confidence,
		PredictedAt:      pi.PredictedAt,
	}

	if rec.PredictedAt.IsZero() {
		rec.PredictedAt = time.Now()
	}

	if pi.ModelVersion != "" {
		rec.ModelVersion = sql.NullString{String: pi.ModelVersion, Valid: true}
	}
	if pi.MarketID != "" {
		rec.MarketID = sql.NullString{String: pi.MarketID, Valid: true}
	}
	if pi.MarketYesPrice != nil {
		rec.MarketYesPrice = sql.NullFloat64{Float64: *pi.MarketYesPrice, Valid: true}
	}
	if pi.MarketNoPrice != nil {
		rec.MarketNoPrice = sql.NullFloat64{Float64: *pi.MarketNoPrice, Valid: true}
	}
	if pi.EdgeBps != nil {
		rec.EdgeBps = sql.NullFloat64{Float64: *pi.EdgeBps, Valid: true}
	}

	if pi.Factors != nil {
		if data, err := json.Marshal(pi.Factors); err == nil {
			rec.Factors = data
		}
	}
	if pi.Reasoning != nil {
		if data, err := json.Marshal(pi.Reasoning); err == nil {
			rec.Reasoning = data
		}
	}

	return rec
}
