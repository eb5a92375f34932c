package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"polynba/internal/metrics"
	"polynba/internal/models"
)

// ESPNClient fetches NBA schedules, team statistics and injury reports
// from the public ESPN site API.
type ESPNClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

// NewESPNClient creates a new ESPN API client
func NewESPNClient(baseURL string, timeout time.Duration) *ESPNClient {
	// Create rate limiter (max 10 concurrent requests)
	rateLimiter := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		rateLimiter <- struct{}{}
	}

	return &ESPNClient{
		baseURL:     baseURL,
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get performs a GET request and records call metrics
func (c *ESPNClient) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	start := time.Now()
	body, err := c.doGet(ctx, path, params)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordAPICall("espn", endpointLabel(path), status, time.Since(start).Seconds())

	return body, err
}

// endpointLabel reduces a request path to its first segment so metric
// labels stay low-cardinality.
func endpointLabel(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

// doGet performs a GET request with retry logic and rate limiting
func (c *ESPNClient) doGet(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		// Rate limiting: acquire semaphore
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.rateLimiter:
			defer func() { c.rateLimiter <- struct{}{} }()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "polynba/1.0")

		if len(params) > 0 {
			q := req.URL.Query()
			for key, value := range params {
				q.Add(key, value)
			}
			req.URL.RawQuery = q.Encode()
		}

		log.Debug().
			Str("url", url).
			Int("attempt", attempt+1).
			Msg("Making API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("API request failed: %w", err)
			// Retry on network errors
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			log.Debug().
				Str("url", url).
				Int("status", resp.StatusCode).
				Int("size", len(body)).
				Msg("API request successful")
			return body, nil

		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, string(body))
			if attempt < c.maxRetries {
				log.Warn().
					Str("url", url).
					Int("status", resp.StatusCode).
					Int("attempt", attempt+1).
					Msg("Received retryable error, will retry")
				continue
			}
			return nil, lastErr

		default:
			// Other errors - don't retry
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
	}

	return nil, lastErr
}

// scoreboardResponse mirrors the subset of the ESPN scoreboard payload the
// ingestion pipeline reads.
type scoreboardResponse struct {
	Events []struct {
		ID     string `json:"id"`
		Date   string `json:"date"`
		Season struct {
			Year int `json:"year"`
		} `json:"season"`
		Competitions []struct {
			Competitors []struct {
				HomeAway string `json:"homeAway"`
				Score    string `json:"score"`
				Team     struct {
					ID           string `json:"id"`
					Abbreviation string `json:"abbreviation"`
				} `json:"team"`
			} `json:"competitors"`
			Status struct {
				Type struct {
					Name      string `json:"name"`
					Completed bool   `json:"completed"`
				} `json:"type"`
			} `json:"status"`
		} `json:"competitions"`
	} `json:"events"`
}

// FetchScoreboard fetches the NBA scoreboard for a date (YYYYMMDD)
func (c *ESPNClient) FetchScoreboard(ctx context.Context, date string) ([]models.GameInput, error) {
	body, err := c.get(ctx, "scoreboard", map[string]string{"dates": date})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scoreboard: %w", err)
	}

	var sb scoreboardResponse
	if err := json.Unmarshal(body, &sb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoreboard: %w", err)
	}

	games := make([]models.GameInput, 0, len(sb.Events))
	for _, ev := range sb.Events {
		if len(ev.Competitions) == 0 {
			continue
		}
		comp := ev.Competitions[0]

		gi := models.GameInput{
			GameID:   ev.ID,
			Season:   ev.Season.Year,
			DateTime: ev.Date,
			Status:   normalizeStatus(comp.Status.Type.Name, comp.Status.Type.Completed),
		}
		for _, competitor := range comp.Competitors {
			score := parseScore(competitor.Score)
			if competitor.HomeAway == "home" {
				gi.HomeTeamAbbr = competitor.Team.Abbreviation
				gi.HomeScore = score
			} else {
				gi.AwayTeamAbbr = competitor.Team.Abbreviation
				gi.AwayScore = score
			}
		}
		if gi.HomeTeamAbbr == "" || gi.AwayTeamAbbr == "" {
			log.Warn().Str("event", ev.ID).Msg("Skipping event with incomplete competitors")
			continue
		}
		games = append(games, gi)
	}

	return games, nil
}

// FetchTeams fetches the NBA team list
func (c *ESPNClient) FetchTeams(ctx context.Context) ([]models.TeamInput, error) {
	body, err := c.get(ctx, "teams", map[string]string{"limit": "50"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}

	var payload struct {
		Sports []struct {
			Leagues []struct {
				Teams []struct {
					Team models.TeamInput `json:"team"`
				} `json:"teams"`
			} `json:"leagues"`
		} `json:"sports"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal teams: %w", err)
	}

	var teams []models.TeamInput
	for _, sport := range payload.Sports {
		for _, league := range sport.Leagues {
			for _, entry := range league.Teams {
				teams = append(teams, entry.Team)
			}
		}
	}

	return teams, nil
}

// FetchInjuries fetches the injury report for a team by ESPN team ID
func (c *ESPNClient) FetchInjuries(ctx context.Context, teamID, teamAbbr string) (*models.TeamInjuries, error) {
	path := fmt.Sprintf("teams/%s/injuries", teamID)
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch injuries for %s: %w", teamAbbr, err)
	}

	var payload struct {
		Injuries []models.InjuryRecordInput `json:"injuries"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal injuries for %s: %w", teamAbbr, err)
	}

	report := &models.TeamInjuries{Team: teamAbbr}
	for i := range payload.Injuries {
		report.Injuries = append(report.Injuries, payload.Injuries[i].ToRecord())
	}

	return report, nil
}

// FetchTeamStats fetches season statistics for a team by ESPN team ID.
// The statistics payload is a flat name/value list; only the metrics the
// prediction engine consumes are picked out.
func (c *ESPNClient) FetchTeamStats(ctx context.Context, teamID, teamAbbr string) (*models.AdvancedTeamStats, error) {
	path := fmt.Sprintf("teams/%s/statistics", teamID)
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch team stats for %s: %w", teamAbbr, err)
	}

	var payload struct {
		Results struct {
			Stats struct {
				Categories []struct {
					Stats []struct {
						Name  string  `json:"name"`
						Value float64 `json:"value"`
					} `json:"stats"`
				} `json:"categories"`
			} `json:"stats"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal team stats for %s: %w", teamAbbr, err)
	}

	stats := &models.AdvancedTeamStats{Team: teamAbbr}
	for _, cat := range payload.Results.Stats.Categories {
		for _, s := range cat.Stats {
			switch s.Name {
			case "fieldGoalPct":
				stats.FieldGoalPct = s.Value
			case "threePointFieldGoalPct":
				stats.ThreePointPct = s.Value
			case "effectiveFGPct":
				stats.EffectiveFGPct = s.Value
			case "assists":
				stats.AssistsPerGame = s.Value
			case "turnovers":
				stats.TurnoversPerGame = s.Value
			case "steals":
				stats.StealsPerGame = s.Value
			case "blocks":
				stats.BlocksPerGame = s.Value
			case "reboundRate":
				stats.ReboundRate = s.Value
			case "netRating":
				stats.NetRating = s.Value
			}
		}
	}

	return stats, nil
}

func normalizeStatus(name string, completed bool) string {
	if completed {
		return "Final"
	}
	switch name {
	case "STATUS_SCHEDULED":
		return "Scheduled"
	case "STATUS_IN_PROGRESS", "STATUS_HALFTIME", "STATUS_END_PERIOD":
		return "InProgress"
	case "STATUS_POSTPONED":
		return "Postponed"
	case "STATUS_CANCELED":
		return "Canceled"
	default:
		return "Scheduled"
	}
}

func parseScore(s string) *int {
	if s == "" {
		return nil
	}
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return nil
	}
	return &v
}
