package repository

import (
	"context"
	"fmt"
	"time"

	"polynba/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

const gameColumns = `
	id, game_id, season, home_team_id, away_team_id, home_team_abbr,
	away_team_abbr, game_date, status, home_score, away_score, market_id,
	created_at, updated_at
`

func scanGame(row pgx.Row) (*models.Game, error) {
	var g models.Game
	err := row.Scan(
		&g.ID, &g.GameID, &g.Season, &g.HomeTeamID, &g.AwayTeamID,
		&g.HomeTeamAbbr, &g.AwayTeamAbbr, &g.GameDate, &g.Status,
		&g.HomeScore, &g.AwayScore, &g.MarketID,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Upsert inserts or updates a game keyed on the provider event ID
func (r *GameRepository) Upsert(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (
			game_id, season, home_team_id, away_team_id, home_team_abbr,
			away_team_abbr, game_date, status, home_score, away_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id) DO UPDATE SET
			status = EXCLUDED.status,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			game_date = EXCLUDED.game_date,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		game.GameID, game.Season, game.HomeTeamID, game.AwayTeamID,
		game.HomeTeamAbbr, game.AwayTeamAbbr, game.GameDate, game.Status,
		game.HomeScore, game.AwayScore,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}

	log.Debug().
		Int("id", game.ID).
		Str("game_id", game.GameID).
		Str("matchup", game.AwayTeamAbbr+" @ "+game.HomeTeamAbbr).
		Str("status", game.Status).
		Msg("Game upserted")

	return nil
}

// GetByID retrieves a game by its database ID
func (r *GameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("game not found: id=%d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// GetByGameID retrieves a game by its provider event ID
func (r *GameRepository) GetByGameID(ctx context.Context, gameID string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE game_id = $1`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, gameID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("game not found: game_id=%s", gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// ListByDate retrieves games on a calendar date (UTC)
func (r *GameRepository) ListByDate(ctx context.Context, date time.Time) ([]*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE game_date >= $1 AND game_date < $2
		ORDER BY game_date
	`

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.db.Pool.Query(ctx, query, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list games by date: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// ListUpcoming retrieves scheduled games starting within the window
func (r *GameRepository) ListUpcoming(ctx context.Context, window time.Duration) ([]*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE status = 'Scheduled' AND game_date >= NOW() AND game_date < NOW() + $1
		ORDER BY game_date
	`

	rows, err := r.db.Pool.Query(ctx, query, window)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// ListRecentCompleted retrieves a team's completed games as RecentGame
// rows from the team's perspective, most recent first.
func (r *GameRepository) ListRecentCompleted(ctx context.Context, teamAbbr string, limit int) ([]models.RecentGame, error) {
	query := `
		SELECT game_id, game_date, home_team_abbr, away_team_abbr, home_score, away_score
		FROM games
		WHERE status = 'Final'
		  AND (home_team_abbr = $1 OR away_team_abbr = $1)
		  AND home_score IS NOT NULL AND away_score IS NOT NULL
		ORDER BY game_date DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, teamAbbr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent games: %w", err)
	}
	defer rows.Close()

	var games []models.RecentGame
	for rows.Next() {
		var (
			gameID               string
			gameDate             time.Time
			homeAbbr, awayAbbr   string
			homeScore, awayScore int
		)
		if err := rows.Scan(&gameID, &gameDate, &homeAbbr, &awayAbbr, &homeScore, &awayScore); err != nil {
			return nil, fmt.Errorf("failed to scan recent game: %w", err)
		}

		rg := models.RecentGame{GameID: gameID, Date: gameDate}
		if homeAbbr == teamAbbr {
			rg.Home = true
			rg.Opponent = awayAbbr
			rg.TeamScore = homeScore
			rg.OppScore = awayScore
		} else {
			rg.Opponent = homeAbbr
			rg.TeamScore = awayScore
			rg.OppScore = homeScore
		}
		rg.Won = rg.TeamScore > rg.OppScore
		games = append(games, rg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent games: %w", err)
	}

	return games, nil
}

// SetMarketID links a game to its resolved prediction market
func (r *GameRepository) SetMarketID(ctx context.Context, gameID, marketID string) error {
	query := `UPDATE games SET market_id = $1, updated_at = NOW() WHERE game_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, marketID, gameID)
	if err != nil {
		return fmt.Errorf("failed to set market id: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("game not found: game_id=%s", gameID)
	}

	log.Debug().
		Str("game_id", gameID).
		Str("market_id", marketID).
		Msg("Game linked to market")

	return nil
}

// Count returns the total number of games
func (r *GameRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM games`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return count, nil
}

func collectGames(rows pgx.Rows) ([]*models.Game, error) {
	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}
