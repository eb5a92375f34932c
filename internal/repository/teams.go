package repository

import (
	"context"
	"fmt"

	"polynba/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// TeamRepository handles team database operations
type TeamRepository struct {
	db *Database
}

// Upsert inserts or updates a team (for nightly refresh)
func (r *TeamRepository) Upsert(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (
			team_id, abbreviation, name, location, conference, division, logo_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (team_id) DO UPDATE SET
			abbreviation = EXCLUDED.abbreviation,
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			conference = EXCLUDED.conference,
			division = EXCLUDED.division,
			logo_url = EXCLUDED.logo_url,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		team.TeamID, team.Abbreviation, team.Name, team.Location,
		team.Conference, team.Division, team.LogoURL,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert team: %w", err)
	}

	log.Debug().
		Int("id", team.ID).
		Int("team_id", team.TeamID).
		Str("abbreviation", team.Abbreviation).
		Msg("Team upserted")

	return nil
}

// GetByID retrieves a team by its database ID
func (r *TeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `
		SELECT id, team_id, abbreviation, name, location, conference, division,
		       logo_url, created_at, updated_at
		FROM teams
		WHERE id = $1
	`

	var team models.Team
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&team.ID, &team.TeamID, &team.Abbreviation, &team.Name,
		&team.Location, &team.Conference, &team.Division,
		&team.LogoURL, &team.CreatedAt, &team.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("team not found: id=%d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &team, nil
}

// GetByAbbreviation retrieves a team by its abbreviation
func (r *TeamRepository) GetByAbbreviation(ctx context.Context, abbr string) (*models.Team, error) {
	query := `
		SELECT id, team_id, abbreviation, name, location, conference, division,
		       logo_url, created_at, updated_at
		FROM teams
		WHERE abbreviation = $1
	`

	var team models.Team
	err := r.db.Pool.QueryRow(ctx, query, abbr).Scan(
		&team.ID, &team.TeamID, &team.Abbreviation, &team.Name,
		&team.Location, &team.Conference, &team.Division,
		&team.LogoURL, &team.CreatedAt, &team.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("team not found: abbreviation=%s", abbr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &team, nil
}

// List retrieves all teams ordered by name
func (r *TeamRepository) List(ctx context.Context) ([]*models.Team, error) {
	query := `
		SELECT id, team_id, abbreviation, name, location, conference, division,
		       logo_url, created_at, updated_at
		FROM teams
		ORDER BY name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		var team models.Team
		err := rows.Scan(
			&team.ID, &team.TeamID, &team.Abbreviation, &team.Name,
			&team.Location, &team.Conference, &team.Division,
			&team.LogoURL, &team.CreatedAt, &team.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, &team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// Count returns the total number of teams
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM teams`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}

	return count, nil
}
