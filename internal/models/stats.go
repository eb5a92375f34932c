package models

// TeamRecentStats summarizes a team's recent results.
// Built from completed games by the stats package; immutable once computed.
type TeamRecentStats struct {
	Team       string       `json:"team"` // abbreviation
	Games      []RecentGame `json:"games"`
	Wins       int          `json:"wins"`
	Losses     int          `json:"losses"`
	WinRate    float64      `json:"winRate"`
	AvgScore   float64      `json:"avgScore"`
	Form       string       `json:"form"`        // e.g. "WWLWL", most recent first
	Last5Wins  int          `json:"last5Wins"`
	Last5Games int          `json:"last5Games"`
}

// Last5WinRate returns the win rate over the last five games, or the
// neutral midpoint 0.5 when no recent games are available.
func (s *TeamRecentStats) Last5WinRate() float64 {
	if s == nil || s.Last5Games == 0 {
		return 0.5
	}
	return float64(s.Last5Wins) / float64(s.Last5Games)
}

// H2HStats summarizes head-to-head results between two specific teams.
type H2HStats struct {
	TeamA      string `json:"teamA"`
	TeamB      string `json:"teamB"`
	TeamAWins  int    `json:"teamAWins"`
	TeamBWins  int    `json:"teamBWins"`
	TeamAForm  string `json:"teamAForm"`
	TeamBForm  string `json:"teamBForm"`
	TotalGames int    `json:"totalGames"`
}

// TeamAWinRate returns team A's historical win proportion against team B,
// or 0.5 when no mutual games exist.
func (h *H2HStats) TeamAWinRate() float64 {
	if h == nil || h.TotalGames == 0 {
		return 0.5
	}
	return float64(h.TeamAWins) / float64(h.TotalGames)
}

// AdvancedTeamStats holds per-team efficiency metrics sourced from the
// statistics provider. Percentages are in percent points (e.g. 54.3).
type AdvancedTeamStats struct {
	Team             string  `json:"team"`
	FieldGoalPct     float64 `json:"fieldGoalPct"`
	ThreePointPct    float64 `json:"threePointPct"`
	EffectiveFGPct   float64 `json:"effectiveFgPct"`
	AssistsPerGame   float64 `json:"assistsPerGame"`
	TurnoversPerGame float64 `json:"turnoversPerGame"`
	StealsPerGame    float64 `json:"stealsPerGame"`
	BlocksPerGame    float64 `json:"blocksPerGame"`
	ReboundRate      float64 `json:"reboundRate"`
	NetRating        float64 `json:"netRating"`
}
