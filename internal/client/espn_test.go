package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"polynba/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoreboardFixture = `{
	"events": [
		{
			"id": "401810001",
			"date": "2026-01-15T00:30Z",
			"season": {"year": 2026},
			"competitions": [
				{
					"competitors": [
						{"homeAway": "home", "score": "112", "team": {"id": "2", "abbreviation": "BOS"}},
						{"homeAway": "away", "score": "105", "team": {"id": "13", "abbreviation": "LAL"}}
					],
					"status": {"type": {"name": "STATUS_FINAL", "completed": true}}
				}
			]
		},
		{
			"id": "401810002",
			"date": "2026-01-15T03:00Z",
			"season": {"year": 2026},
			"competitions": [
				{
					"competitors": [
						{"homeAway": "home", "score": "", "team": {"id": "9", "abbreviation": "GSW"}},
						{"homeAway": "away", "score": "", "team": {"id": "7", "abbreviation": "DEN"}}
					],
					"status": {"type": {"name": "STATUS_SCHEDULED", "completed": false}}
				}
			]
		}
	]
}`

func TestESPNClient_FetchScoreboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scoreboard", r.URL.Path)
		assert.Equal(t, "20260115", r.URL.Query().Get("dates"))
		w.Write([]byte(scoreboardFixture))
	}))
	defer srv.Close()

	c := NewESPNClient(srv.URL, 5*time.Second)
	games, err := c.FetchScoreboard(context.Background(), "20260115")
	require.NoError(t, err)
	require.Len(t, games, 2)

	final := games[0]
	assert.Equal(t, "401810001", final.GameID)
	assert.Equal(t, "BOS", final.HomeTeamAbbr)
	assert.Equal(t, "LAL", final.AwayTeamAbbr)
	assert.Equal(t, "Final", final.Status)
	require.NotNil(t, final.HomeScore)
	assert.Equal(t, 112, *final.HomeScore)
	require.NotNil(t, final.AwayScore)
	assert.Equal(t, 105, *final.AwayScore)

	scheduled := games[1]
	assert.Equal(t, "Scheduled", scheduled.Status)
	assert.Nil(t, scheduled.HomeScore)
}

func TestESPNClient_FetchInjuries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teams/2/injuries", r.URL.Path)
		w.Write([]byte(`{"injuries": [
			{"athlete": "J. Tatum", "position": "SF", "status": "Out", "details": "ankle"},
			{"athlete": "D. White", "position": "PG", "status": {"type": {"description": "Questionable"}}}
		]}`))
	}))
	defer srv.Close()

	c := NewESPNClient(srv.URL, 5*time.Second)
	report, err := c.FetchInjuries(context.Background(), "2", "BOS")
	require.NoError(t, err)

	assert.Equal(t, "BOS", report.Team)
	require.Len(t, report.Injuries, 2)
	assert.Equal(t, models.InjuryOut, report.Injuries[0].Status)
	assert.Equal(t, models.InjuryQuestionable, report.Injuries[1].Status)
}

func TestESPNClient_RetriesOnServerBusy(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"events": []}`))
	}))
	defer srv.Close()

	c := NewESPNClient(srv.URL, 5*time.Second)
	games, err := c.FetchScoreboard(context.Background(), "20260115")
	require.NoError(t, err)
	assert.Empty(t, games)
	assert.Equal(t, 2, calls)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, "Final", normalizeStatus("STATUS_FINAL", true))
	assert.Equal(t, "Scheduled", normalizeStatus("STATUS_SCHEDULED", false))
	assert.Equal(t, "InProgress", normalizeStatus("STATUS_IN_PROGRESS", false))
	assert.Equal(t, "Postponed", normalizeStatus("STATUS_POSTPONED", false))
	assert.Equal(t, "Scheduled", normalizeStatus("STATUS_SOMETHING_NEW", false))
}
