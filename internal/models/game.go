package models

import (
	"database/sql"
	"time"
)

// Game represents an NBA game
type Game struct {
	ID           int       `db:"id"`
	GameID       string    `db:"game_id"` // ESPN event ID
	Season       int       `db:"season"`
	HomeTeamID   int       `db:"home_team_id"`
	AwayTeamID   int       `db:"away_team_id"`
	HomeTeamAbbr string    `db:"home_team_abbr"`
	AwayTeamAbbr string    `db:"away_team_abbr"`
	GameDate     time.Time `db:"game_date"`
	Status       string    `db:"status"`

	// Scores
	HomeScore sql.NullInt32 `db:"home_score"`
	AwayScore sql.NullInt32 `db:"away_score"`

	// Polymarket linkage (resolved by slug/date matching, nullable)
	MarketID sql.NullString `db:"market_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// GameInput is used for creating/updating games from the ESPN scoreboard
type GameInput struct {
	GameID       string `json:"id"`
	Season       int    `json:"season"`
	HomeTeamID   int    `json:"homeTeamId"`
	AwayTeamID   int    `json:"awayTeamId"`
	HomeTeamAbbr string `json:"homeTeam"`
	AwayTeamAbbr string `json:"awayTeam"`
	DateTime     string `json:"date"` // ISO 8601 format
	Status       string `json:"status"`

	HomeScore *int `json:"homeScore,omitempty"`
	AwayScore *int `json:"awayScore,omitempty"`
}

// ToGame converts GameInput (from API) to Game model
// Note: HomeTeamID and AwayTeamID need to be resolved from database
func (gi *GameInput) ToGame(homeTeamDBID, awayTeamDBID int) *Game {
	game := &Game{
		GameID:       gi.GameID,
		Season:       gi.Season,
		HomeTeamID:   homeTeamDBID,
		AwayTeamID:   awayTeamDBID,
		HomeTeamAbbr: gi.HomeTeamAbbr,
		AwayTeamAbbr: gi.AwayTeamAbbr,
		Status:       gi.Status,
	}

	// Parse game date
	if gameTime, err := time.Parse(time.RFC3339, gi.DateTime); err == nil {
		game.GameDate = gameTime
	}

	// Scores
	if gi.HomeScore != nil {
		game.HomeScore = sql.NullInt32{Int32: int32(*gi.HomeScore), Valid: true}
	}
	if gi.AwayScore != nil {
		game.AwayScore = sql.NullInt32{Int32: int32(*gi.AwayScore), Valid: true}
	}

	return game
}

// IsActive returns true if the game is currently in progress
func (g *Game) IsActive() bool {
	return g.Status == "InProgress"
}

// IsScheduled returns true if the game is scheduled but not started
func (g *Game) IsScheduled() bool {
	return g.Status == "Scheduled"
}

// IsFinal returns true if the game is completed
func (g *Game) IsFinal() bool {
	return g.Status == "Final"
}

// RecentGame is a single completed game from a team's perspective,
// used to build recent-form and head-to-head inputs for the engine.
type RecentGame struct {
	GameID    string    `json:"gameId"`
	Date      time.Time `json:"date"`
	Home      bool      `json:"home"`
	Opponent  string    `json:"opponent"` // abbreviation
	TeamScore int       `json:"teamScore"`
	OppScore  int       `json:"oppScore"`
	Won       bool      `json:"won"`
}
