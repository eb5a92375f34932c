// Package scheduler drives the background pipeline: nightly data refresh,
// periodic prediction runs for upcoming games, and settlement of
// predictions once games go final.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"polynba/internal/cache"
	"polynba/internal/client"
	"polynba/internal/config"
	"polynba/internal/engine"
	"polynba/internal/metrics"
	"polynba/internal/models"
	"polynba/internal/repository"
	"polynba/internal/signal"
	"polynba/internal/stats"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// upcomingWindow bounds how far ahead prediction runs look
const upcomingWindow = 24 * time.Hour

// Scheduler manages background tasks for the prediction service
type Scheduler struct {
	cfg        *config.Config
	espn       *client.ESPNClient
	polymarket *client.PolymarketClient
	db         *repository.Database
	redis      *cache.RedisCache // nil when Redis is unavailable
	evaluator  *signal.Evaluator
	cron       *cron.Cron
	ticker     *time.Ticker
	stopChan   chan struct{}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	cfg *config.Config,
	espn *client.ESPNClient,
	polymarket *client.PolymarketClient,
	db *repository.Database,
	redis *cache.RedisCache,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		espn:       espn,
		polymarket: polymarket,
		db:         db,
		redis:      redis,
		evaluator: signal.NewEvaluator(signal.Config{
			MinEdgeBps:      cfg.MinEdgeBps,
			MinConfidence:   cfg.MinConfidence,
			MaxHolderShare:  0.5,
			ConcentrationOK: cfg.DataAPIBaseURL != "",
		}),
		cron:     cron.New(),
		stopChan: make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if s.cfg.InitialSyncEnabled {
		if err := s.refreshStaticData(ctx); err != nil {
			log.Error().Err(err).Msg("Initial sync failed")
		}
	}

	if _, err := s.cron.AddFunc(s.cfg.NightlyRefreshCron, func() {
		log.Info().Msg("Running nightly refresh...")
		if err := s.refreshStaticData(ctx); err != nil {
			log.Error().Err(err).Msg("Nightly refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule nightly refresh: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.NightlyRefreshCron).
		Msg("Nightly refresh scheduled")

	interval := time.Duration(s.cfg.PredictionInterval) * time.Second
	s.ticker = time.NewTicker(interval)
	log.Info().
		Dur("interval", interval).
		Msg("Prediction polling started")

	go s.pollPredictions(ctx)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

// pollPredictions runs prediction and settlement passes on the ticker
func (s *Scheduler) pollPredictions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping prediction polling")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping prediction polling")
			return
		case <-s.ticker.C:
			if err := s.runPredictions(ctx); err != nil {
				log.Error().Err(err).Msg("Prediction run failed")
				metrics.RecordError("scheduler", "prediction_run")
			}
			if err := s.settlePredictions(ctx); err != nil {
				log.Error().Err(err).Msg("Settlement pass failed")
				metrics.RecordError("scheduler", "settlement")
			}
		}
	}
}

// refreshStaticData refreshes teams and the game schedule, then links
// games to their prediction markets
func (s *Scheduler) refreshStaticData(ctx context.Context) error {
	start := time.Now()
	log.Info().Msg("Refreshing static data...")

	teams, err := s.espn.FetchTeams(ctx)
	if err != nil {
		metrics.RecordSync("static", "error", time.Since(start).Seconds())
		return fmt.Errorf("failed to fetch teams: %w", err)
	}

	savedTeams := 0
	for i := range teams {
		team := teams[i].ToTeam()
		if err := s.db.Teams.Upsert(ctx, team); err != nil {
			log.Error().Err(err).Int("team_id", teams[i].TeamID).Msg("Failed to save team")
			continue
		}
		savedTeams++
	}
	log.Info().Int("count", savedTeams).Msg("Teams saved to database")

	// Scoreboards for the recent-form window plus the next two days
	savedGames := 0
	for offset := -s.cfg.RecentWindow; offset <= 2; offset++ {
		date := time.Now().UTC().AddDate(0, 0, offset).Format("20060102")
		if err := s.syncScoreboard(ctx, date); err != nil {
			log.Error().Err(err).Str("date", date).Msg("Failed to sync scoreboard")
			continue
		}
		savedGames++
	}
	log.Info().Int("days", savedGames).Msg("Scoreboards synced")

	if err := s.linkMarkets(ctx); err != nil {
		log.Error().Err(err).Msg("Market linking failed")
	}

	teamCount, _ := s.db.Teams.Count(ctx)
	gameCount, _ := s.db.Games.Count(ctx)
	metrics.UpdateIngestionStats(int64(teamCount), int64(gameCount))
	metrics.RecordSync("static", "success", time.Since(start).Seconds())

	log.Info().Dur("duration", time.Since(start)).Msg("Static data refresh complete")
	return nil
}

// syncScoreboard upserts all games on one scoreboard date
func (s *Scheduler) syncScoreboard(ctx context.Context, date string) error {
	games, err := s.espn.FetchScoreboard(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to fetch scoreboard: %w", err)
	}

	for i := range games {
		gi := &games[i]

		home, err := s.db.Teams.GetByAbbreviation(ctx, gi.HomeTeamAbbr)
		if err != nil {
			log.Warn().Str("team", gi.HomeTeamAbbr).Msg("Unknown home team, skipping game")
			continue
		}
		away, err := s.db.Teams.GetByAbbreviation(ctx, gi.AwayTeamAbbr)
		if err != nil {
			log.Warn().Str("team", gi.AwayTeamAbbr).Msg("Unknown away team, skipping game")
			continue
		}

		game := gi.ToGame(home.ID, away.ID)
		if err := s.db.Games.Upsert(ctx, game); err != nil {
			log.Error().Err(err).Str("game_id", gi.GameID).Msg("Failed to save game")
		}
	}

	return nil
}

// linkMarkets resolves Polymarket markets for upcoming games by slug
func (s *Scheduler) linkMarkets(ctx context.Context) error {
	games, err := s.db.Games.ListUpcoming(ctx, 48*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to list upcoming games: %w", err)
	}

	linked := 0
	for _, game := range games {
		if game.MarketID.Valid {
			continue
		}

		slug := marketSlug(game)
		market, err := s.polymarket.GetMarketBySlug(ctx, slug)
		if err != nil {
			log.Debug().Str("game_id", game.GameID).Str("slug", slug).Msg("No market found for game")
			continue
		}

		if err := s.db.Games.SetMarketID(ctx, game.GameID, market.ID); err != nil {
			log.Error().Err(err).Str("game_id", game.GameID).Msg("Failed to link market")
			continue
		}
		linked++
	}

	log.Info().Int("count", linked).Msg("Markets linked")
	return nil
}

// marketSlug builds the conventional Polymarket slug for an NBA game
func marketSlug(game *models.Game) string {
	return fmt.Sprintf("nba-%s-%s-%s",
		strings.ToLower(game.AwayTeamAbbr),
		strings.ToLower(game.HomeTeamAbbr),
		game.GameDate.UTC().Format("2006-01-02"),
	)
}

// RunOnce runs a single prediction and settlement pass immediately,
// outside the ticker. Used by the predict CLI.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := s.runPredictions(ctx); err != nil {
		return err
	}
	return s.settlePredictions(ctx)
}

// PredictGame runs the engine for one game by provider event ID without
// persisting the result. Used by the predict CLI for dry runs.
func (s *Scheduler) PredictGame(ctx context.Context, gameID string) (*engine.Result, error) {
	game, err := s.db.Games.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	in, _, _, err := s.buildInput(ctx, game)
	if err != nil {
		return nil, fmt.Errorf("failed to build input: %w", err)
	}

	return engine.Predict(in)
}

// runPredictions predicts every upcoming game in the window in parallel
func (s *Scheduler) runPredictions(ctx context.Context) error {
	start := time.Now()

	games, err := s.db.Games.ListUpcoming(ctx, upcomingWindow)
	if err != nil {
		return fmt.Errorf("failed to list upcoming games: %w", err)
	}

	if len(games) == 0 {
		log.Debug().Msg("No upcoming games to predict")
		return nil
	}

	log.Info().Int("count", len(games)).Msg("Running predictions")

	var wg sync.WaitGroup
	for _, game := range games {
		wg.Add(1)
		go func(g *models.Game) {
			defer wg.Done()
			if err := s.predictGame(ctx, g); err != nil {
				log.Error().Err(err).Str("game_id", g.GameID).Msg("Failed to predict game")
				metrics.RecordPrediction("error", 0, 0, 0)
			}
		}(game)
	}
	wg.Wait()

	log.Info().
		Int("games", len(games)).
		Dur("duration", time.Since(start)).
		Msg("Prediction run complete")

	return nil
}

// predictGame assembles engine input for one game, runs the engine and
// persists the result. Low-confidence predictions are stored for
// calibration but never cached or turned into signals.
func (s *Scheduler) predictGame(ctx context.Context, game *models.Game) error {
	start := time.Now()

	in, marketID, holderShare, err := s.buildInput(ctx, game)
	if err != nil {
		return fmt.Errorf("failed to build input: %w", err)
	}

	result, err := engine.Predict(in)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	pi := &models.PredictionInput{
		GameID:           game.ID,
		ModelName:        "heuristic",
		ModelVersion:     engine.ModelVersion,
		HomeProbability:  result.TeamAProbability,
		AwayProbability:  result.TeamBProbability,
		ModelProbability: result.ModelProbability,
		Confidence:       result.Confidence,
		Factors:          result.Factors,
		Reasoning:        result.Reasoning,
		PredictedAt:      time.Now().UTC(),
	}

	if in.Market != nil {
		pi.MarketID = marketID
		yes, no := in.Market.Yes, in.Market.No
		pi.MarketYesPrice = &yes
		pi.MarketNoPrice = &no
		edge := signal.EdgeBps(result.TeamAProbability, yes)
		pi.EdgeBps = &edge
	}

	rec := pi.ToRecord()
	if err := s.db.Predictions.CreatePrediction(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist prediction: %w", err)
	}

	divergence := 0.0
	if in.Market != nil {
		divergence = math.Abs(result.ModelProbability - result.MarketProbability)
	}
	metrics.RecordPrediction("success", time.Since(start).Seconds(), result.Confidence, divergence)

	if result.Confidence < s.cfg.MinConfidence {
		log.Debug().
			Str("game_id", game.GameID).
			Float64("confidence", result.Confidence).
			Msg("Prediction below confidence threshold, not surfacing")
		return nil
	}

	if s.redis != nil {
		view := models.NewPredictionView(game, rec)
		if err := s.redis.SetPrediction(ctx, game.GameID, view); err != nil {
			log.Warn().Err(err).Str("game_id", game.GameID).Msg("Failed to cache prediction")
		}
	}

	if in.Market != nil {
		sig := s.evaluator.Evaluate(signal.Input{
			HomeProbability: result.TeamAProbability,
			Confidence:      result.Confidence,
			YesPrice:        in.Market.Yes,
			NoPrice:         in.Market.No,
			TopHolderShare:  holderShare,
		})
		if sig.Side != signal.SideNone {
			metrics.RecordValueSignal(string(sig.Side))
			log.Info().
				Str("game_id", game.GameID).
				Str("side", string(sig.Side)).
				Str("edge_bps", sig.EdgeBps.StringFixed(0)).
				Msg("Value signal")
		}
	}

	return nil
}

// buildInput gathers everything the engine needs for one game
func (s *Scheduler) buildInput(ctx context.Context, game *models.Game) (*engine.Input, string, float64, error) {
	homeGames, err := s.db.Games.ListRecentCompleted(ctx, game.HomeTeamAbbr, s.cfg.RecentWindow)
	if err != nil {
		return nil, "", 0, err
	}
	awayGames, err := s.db.Games.ListRecentCompleted(ctx, game.AwayTeamAbbr, s.cfg.RecentWindow)
	if err != nil {
		return nil, "", 0, err
	}

	isHome := true
	in := &engine.Input{
		TeamA:       game.HomeTeamAbbr,
		TeamB:       game.AwayTeamAbbr,
		StatsA:      stats.BuildRecentStats(game.HomeTeamAbbr, homeGames),
		StatsB:      stats.BuildRecentStats(game.AwayTeamAbbr, awayGames),
		H2H:         stats.BuildH2H(game.HomeTeamAbbr, game.AwayTeamAbbr, homeGames),
		RestDaysA:   stats.RestDays(homeGames, game.GameDate),
		RestDaysB:   stats.RestDays(awayGames, game.GameDate),
		IsTeamAHome: &isHome,
	}

	// Advanced stats and injuries come from the live provider; failures
	// degrade the input rather than abort the prediction.
	home, err := s.db.Teams.GetByID(ctx, game.HomeTeamID)
	if err == nil {
		espnID := strconv.Itoa(home.TeamID)
		if adv, err := s.espn.FetchTeamStats(ctx, espnID, home.Abbreviation); err == nil {
			in.AdvancedA = adv
		} else {
			log.Warn().Err(err).Str("team", home.Abbreviation).Msg("Failed to fetch team stats")
		}
		if inj, err := s.espn.FetchInjuries(ctx, espnID, home.Abbreviation); err == nil {
			in.InjuriesA = inj
		} else {
			log.Warn().Err(err).Str("team", home.Abbreviation).Msg("Failed to fetch injuries")
		}
	}
	away, err := s.db.Teams.GetByID(ctx, game.AwayTeamID)
	if err == nil {
		espnID := strconv.Itoa(away.TeamID)
		if adv, err := s.espn.FetchTeamStats(ctx, espnID, away.Abbreviation); err == nil {
			in.AdvancedB = adv
		} else {
			log.Warn().Err(err).Str("team", away.Abbreviation).Msg("Failed to fetch team stats")
		}
		if inj, err := s.espn.FetchInjuries(ctx, espnID, away.Abbreviation); err == nil {
			in.InjuriesB = inj
		} else {
			log.Warn().Err(err).Str("team", away.Abbreviation).Msg("Failed to fetch injuries")
		}
	}

	var marketID string
	var holderShare float64
	if game.MarketID.Valid {
		marketID = game.MarketID.String
		homeLabels := []string{game.HomeTeamAbbr}
		if home != nil {
			homeLabels = append(homeLabels, home.Name, home.DisplayName())
		}
		if prices, conditionID, err := s.marketPrices(ctx, marketID, homeLabels); err == nil {
			in.Market = prices
			if conditionID != "" {
				if share, err := s.polymarket.TopHolderShare(ctx, conditionID); err == nil {
					holderShare = share
				}
			}
		} else {
			log.Warn().Err(err).Str("market_id", marketID).Msg("Failed to fetch market prices")
		}
	}

	return in, marketID, holderShare, nil
}

// marketPrices reads prices from the cache, falling back to the Gamma API.
// Cached snapshots are already home-oriented; fresh market payloads list
// outcomes in market-defined order, so the home team's outcome is aligned
// to Yes by label before the pair is used or cached.
func (s *Scheduler) marketPrices(ctx context.Context, marketID string, homeLabels []string) (*engine.MarketPrices, string, error) {
	if s.redis != nil {
		if snap, err := s.redis.GetMarketPrices(ctx, marketID); err == nil {
			metrics.RecordCacheHit()
			return &engine.MarketPrices{Yes: snap.Yes, No: snap.No}, "", nil
		}
		metrics.RecordCacheMiss()
	}

	market, err := s.polymarket.GetMarket(ctx, marketID)
	if err != nil {
		return nil, "", err
	}

	yes, no, ok := market.PricesFor(homeLabels...)
	if !ok {
		return nil, "", fmt.Errorf("market %s has no binary price pair", marketID)
	}

	if s.redis != nil {
		snap := cache.MarketSnapshot{Yes: yes, No: no, FetchedAt: time.Now().UTC()}
		if err := s.redis.SetMarketPrices(ctx, marketID, snap); err != nil {
			log.Warn().Err(err).Str("market_id", marketID).Msg("Failed to cache market prices")
		}
	}

	return &engine.MarketPrices{Yes: yes, No: no}, market.ConditionID, nil
}

// settlePredictions records outcomes for predictions whose games went final
func (s *Scheduler) settlePredictions(ctx context.Context) error {
	unsettled, err := s.db.Predictions.ListUnsettled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unsettled predictions: %w", err)
	}

	settled := 0
	for _, pred := range unsettled {
		game, err := s.db.Games.GetByID(ctx, pred.GameID)
		if err != nil {
			log.Error().Err(err).Int("game_id", pred.GameID).Msg("Failed to load game for settlement")
			continue
		}
		if !game.HomeScore.Valid || !game.AwayScore.Valid {
			continue
		}

		homeWon := game.HomeScore.Int32 > game.AwayScore.Int32
		if err := s.db.Predictions.RecordOutcome(ctx, pred.ID.String(), homeWon); err != nil {
			log.Error().Err(err).Str("id", pred.ID.String()).Msg("Failed to settle prediction")
			continue
		}

		predictedHome := pred.HomeProbability >= 0.5
		metrics.RecordSettlement(predictedHome == homeWon)

		if s.redis != nil {
			if err := s.redis.InvalidatePrediction(ctx, game.GameID); err != nil {
				log.Warn().Err(err).Str("game_id", game.GameID).Msg("Failed to invalidate cached prediction")
			}
		}
		settled++
	}

	if settled > 0 {
		log.Info().Int("count", settled).Msg("Predictions settled")
	}
	return nil
}
