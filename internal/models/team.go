package models

import (
	"database/sql"
	"time"
)

// Team represents an NBA team
type Team struct {
	ID           int            `db:"id"`
	TeamID       int            `db:"team_id"` // ESPN team ID
	Abbreviation string         `db:"abbreviation"`
	Name         string         `db:"name"`
	Location     string         `db:"location"`
	Conference   sql.NullString `db:"conference"`
	Division     sql.NullString `db:"division"`
	LogoURL      sql.NullString `db:"logo_url"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TeamInput is used for creating/updating teams from the ESPN API
type TeamInput struct {
	TeamID       int    `json:"id,string"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Conference   string `json:"conference,omitempty"`
	Division     string `json:"division,omitempty"`
	LogoURL      string `json:"logo,omitempty"`
}

// ToTeam converts TeamInput (from API) to Team model
func (ti *TeamInput) ToTeam() *Team {
	team := &Team{
		TeamID:       ti.TeamID,
		Abbreviation: ti.Abbreviation,
		Name:         ti.Name,
		Location:     ti.Location,
	}

	if ti.Conference != "" {
		team.Conference = sql.NullString{String: ti.Conference, Valid: true}
	}
	if ti.Division != "" {
		team.Division = sql.NullString{String: ti.Division, Valid: true}
	}
	if ti.LogoURL != "" {
		team.LogoURL = sql.NullString{String: ti.LogoURL, Valid: true}
	}

	return team
}

// DisplayName returns the full team name (location + name)
func (t *Team) DisplayName() string {
	if t.Location == "" {
		return t.Name
	}
	return t.Location + " " + t.Name
}
