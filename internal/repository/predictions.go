package repository

import (
	"context"
	"fmt"
	"time"

	"polynba/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PredictionRepository handles prediction database operations
type PredictionRepository struct {
	db *Database
}

const predictionColumns = `
	id, game_id, model_name, model_version,
	home_probability, away_probability, model_probability, confidence,
	factors, reasoning,
	market_id, market_yes_price, market_no_price, edge_bps,
	home_won, settled_at,
	predicted_at, created_at
`

const predictionColumnsJoined = `
	p.id, p.game_id, p.model_name, p.model_version,
	p.home_probability, p.away_probability, p.model_probability, p.confidence,
	p.factors, p.reasoning,
	p.market_id, p.market_yes_price, p.market_no_price, p.edge_bps,
	p.home_won, p.settled_at,
	p.predicted_at, p.created_at
`

func scanPrediction(row pgx.Row) (*models.PredictionRecord, error) {
	var p models.PredictionRecord
	err := row.Scan(
		&p.ID, &p.GameID, &p.ModelName, &p.ModelVersion,
		&p.HomeProbability, &p.AwayProbability, &p.ModelProbability, &p.Confidence,
		&p.Factors, &p.Reasoning,
		&p.MarketID, &p.MarketYesPrice, &p.MarketNoPrice, &p.EdgeBps,
		&p.HomeWon, &p.SettledAt,
		&p.PredictedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePrediction inserts a new prediction atomically with validation
func (r *PredictionRepository) CreatePrediction(ctx context.Context, pred *models.PredictionRecord) error {
	if pred == nil {
		return fmt.Errorf("prediction cannot be nil")
	}

	if err := validatePredictionData(pred); err != nil {
		return fmt.Errorf("prediction validation failed: %w", err)
	}

	query := `
		INSERT INTO predictions (
			id, game_id, model_name, model_version,
			home_probability, away_probability, model_probability, confidence,
			factors, reasoning,
			market_id, market_yes_price, market_no_price, edge_bps,
			predicted_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10,
			$11, $12, $13, $14,
			$15
		)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		pred.ID, pred.GameID, pred.ModelName, pred.ModelVersion,
		pred.HomeProbability, pred.AwayProbability, pred.ModelProbability, pred.Confidence,
		pred.Factors, pred.Reasoning,
		pred.MarketID, pred.MarketYesPrice, pred.MarketNoPrice, pred.EdgeBps,
		pred.PredictedAt,
	).Scan(&pred.CreatedAt)

	if err != nil {
		log.Error().Err(err).Int("game_id", pred.GameID).Msg("Failed to insert prediction")
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	log.Info().
		Str("id", pred.ID.String()).
		Int("game_id", pred.GameID).
		Float64("home_probability", pred.HomeProbability).
		Float64("confidence", pred.Confidence).
		Msg("Prediction created")

	return nil
}

// GetLatestByGameID retrieves the most recent prediction for a game.
// Returns nil without error when no prediction exists.
func (r *PredictionRepository) GetLatestByGameID(ctx context.Context, gameID int) (*models.PredictionRecord, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE game_id = $1
		ORDER BY predicted_at DESC
		LIMIT 1
	`

	pred, err := scanPrediction(r.db.Pool.QueryRow(ctx, query, gameID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return pred, nil
}

// ListByDate retrieves the latest prediction per game for games on a
// calendar date (UTC).
func (r *PredictionRepository) ListByDate(ctx context.Context, date time.Time) ([]*models.PredictionRecord, error) {
	query := `
		SELECT DISTINCT ON (p.game_id) ` + predictionColumnsJoined + `
		FROM predictions p
		JOIN games g ON g.id = p.game_id
		WHERE g.game_date >= $1 AND g.game_date < $2
		ORDER BY p.game_id, p.predicted_at DESC
	`

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.db.Pool.Query(ctx, query, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions by date: %w", err)
	}
	defer rows.Close()

	var preds []*models.PredictionRecord
	for rows.Next() {
		pred, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, pred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return preds, nil
}

// ListUnsettled retrieves predictions for games that have gone final but
// whose outcome has not been recorded yet.
func (r *PredictionRepository) ListUnsettled(ctx context.Context) ([]*models.PredictionRecord, error) {
	query := `
		SELECT ` + predictionColumnsJoined + `
		FROM predictions p
		JOIN games g ON g.id = p.game_id
		WHERE p.settled_at IS NULL
		  AND g.status = 'Final'
		  AND g.home_score IS NOT NULL AND g.away_score IS NOT NULL
		ORDER BY p.predicted_at
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled predictions: %w", err)
	}
	defer rows.Close()

	var preds []*models.PredictionRecord
	for rows.Next() {
		pred, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, pred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return preds, nil
}

// RecordOutcome marks a prediction settled with the realized result
func (r *PredictionRepository) RecordOutcome(ctx context.Context, id string, homeWon bool) error {
	query := `
		UPDATE predictions
		SET home_won = $1, settled_at = NOW()
		WHERE id = $2 AND settled_at IS NULL
	`

	result, err := r.db.Pool.Exec(ctx, query, homeWon, id)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("prediction not found or already settled: id=%s", id)
	}

	log.Debug().Str("id", id).Bool("home_won", homeWon).Msg("Prediction settled")
	return nil
}

// validatePredictionData ensures prediction data is valid before insertion
func validatePredictionData(pred *models.PredictionRecord) error {
	if pred.GameID <= 0 {
		return fmt.Errorf("game_id must be positive")
	}
	if pred.ModelName == "" {
		return fmt.Errorf("model_name is required")
	}
	if pred.HomeProbability < 0 || pred.HomeProbability > 1 {
		return fmt.Errorf("home_probability must be between 0 and 1")
	}
	if pred.AwayProbability < 0 || pred.AwayProbability > 1 {
		return fmt.Errorf("away_probability must be between 0 and 1")
	}
	if pred.Confidence < 0 || pred.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	if pred.PredictedAt.IsZero() {
		return fmt.Errorf("predicted_at is required")
	}
	return nil
}
