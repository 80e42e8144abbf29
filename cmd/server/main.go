package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"emipredict/internal/config"
	"emipredict/internal/history"
	"emipredict/internal/llm"
	"emipredict/internal/oracle"
	"emipredict/internal/predict"
	"emipredict/internal/server"
	"emipredict/models"
)

func main() {
	cfg := config.Load()

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	store, err := history.NewPostgres(history.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	oracleClient := oracle.NewClient(cfg.OracleURL, time.Duration(cfg.RequestTimeout)*time.Second)

	var explainer models.Explainer
	if cfg.OpenAIAPIKey != "" {
		explainer = llm.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, time.Duration(cfg.ExplainTimeout)*time.Second)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, explanations disabled")
	}

	engine := predict.New(store, oracleClient, explainer, predict.Options{
		DefaultCycleDays: cfg.DefaultCycleDays,
		BatchWorkers:     cfg.BatchWorkers,
	})

	srv := server.New(engine, store)
	if err := srv.Listen(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("HTTP server stopped")
	}
}
