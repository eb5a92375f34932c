// Command predict runs the prediction pipeline once from the command line.
// With -game it predicts a single game and prints the result as JSON
// without persisting anything; without flags it runs one full prediction
// and settlement pass over all upcoming games.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"polynba/internal/cache"
	"polynba/internal/client"
	"polynba/internal/config"
	"polynba/internal/repository"
	"polynba/internal/scheduler"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	gameID := flag.String("game", "", "predict a single game by provider event ID (dry run, prints JSON)")
	flag.Parse()

	// CLI output goes to stdout; keep logs readable on stderr
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})

	ctx := context.Background()
	cfg := config.MustLoad()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	espnClient := client.NewESPNClient(cfg.ESPNBaseURL, cfg.ESPNTimeout)
	polymarketClient := client.NewPolymarketClient(
		cfg.GammaBaseURL,
		cfg.DataAPIBaseURL,
		cfg.GammaTimeout,
		cfg.GammaRateLimit,
		cfg.GammaBurst,
	)

	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	},
		time.Duration(cfg.CacheTTLPredictions)*time.Second,
		time.Duration(cfg.CacheTTLMarkets)*time.Second,
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	sched := scheduler.NewScheduler(cfg, espnClient, polymarketClient, db, redisCache)

	if *gameID != "" {
		result, err := sched.PredictGame(ctx, *gameID)
		if err != nil {
			log.Fatal().Err(err).Str("game_id", *gameID).Msg("Prediction failed")
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode result")
		}
		fmt.Println(string(out))
		return
	}

	log.Info().Msg("Running one prediction and settlement pass...")
	if err := sched.RunOnce(ctx); err != nil {
		log.Fatal().Err(err).Msg("Prediction pass failed")
	}
	log.Info().Msg("Prediction pass complete")
}
