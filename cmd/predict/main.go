package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"emipredict/internal/config"
	"emipredict/internal/history"
	"emipredict/internal/llm"
	"emipredict/internal/oracle"
	"emipredict/internal/predict"
	"emipredict/models"
)

func main() {
	customerID := flag.String("customer", "", "predict a single customer id")
	all := flag.Bool("all", false, "predict every known customer")
	ids := flag.String("ids", "", "comma-separated customer ids for a batch")
	explain := flag.Bool("explain", false, "include LLM explanations")
	flag.Parse()

	cfg := config.Load()

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	if *customerID == "" && !*all && *ids == "" {
		fmt.Fprintln(os.Stderr, "usage: predict -customer CUST_0001 | -ids CUST_0001,CUST_0002 | -all")
		os.Exit(2)
	}

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
	if *explain && cfg.OpenAIAPIKey != "" {
		explainer = llm.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, time.Duration(cfg.ExplainTimeout)*time.Second)
	} else if *explain {
		log.Warn().Msg("OPENAI_API_KEY not set, explanations disabled")
	}

	engine := predict.New(store, oracleClient, explainer, predict.Options{
		DefaultCycleDays: cfg.DefaultCycleDays,
		BatchWorkers:     cfg.BatchWorkers,
	})

	ctx := context.Background()
	now := time.Now()

	if *customerID != "" {
		p, err := engine.PredictOne(ctx, *customerID, now, *explain)
		if err != nil {
			log.Fatal().Err(err).Str("customer_id", *customerID).Msg("Prediction failed")
		}
		printPrediction(*p)
		return
	}

	var batchIDs []string
	if *ids != "" {
		for _, id := range strings.Split(*ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				batchIDs = append(batchIDs, id)
			}
		}
	}

	result, err := engine.PredictBatch(ctx, batchIDs, now, *explain)
	if err != nil {
		log.Fatal().Err(err).Msg("Batch prediction failed")
	}

	fmt.Printf("===== BATCH PREDICTIONS =====\n")
	fmt.Printf("Predicted: %d, failed: %d\n\n", len(result.Predictions), len(result.Failed))
	for _, p := range result.Predictions {
		printPrediction(p)
		fmt.Println()
	}

	if len(result.Failed) > 0 {
		fmt.Println("Failures:")
		failedIDs := make([]string, 0, len(result.Failed))
		for id := range result.Failed {
			failedIDs = append(failedIDs, id)
		}
		sort.Strings(failedIDs)
		for _, id := range failedIDs {
			fmt.Printf("- %s: %s\n", id, result.Failed[id])
		}
	}

	if result.Insights != "" {
		fmt.Printf("\nInsights:\n%s\n", result.Insights)
	}
}

func printPrediction(p models.Prediction) {
	fmt.Printf("Customer: %s\n", p.CustomerID)
	fmt.Printf("Last demand: %s, last payment: %s\n",
		p.LastDemandDate.Format("2006-01-02"), p.LastPaymentDate.Format("2006-01-02"))
	fmt.Printf("Next demand: %s\n", p.NextDemandDate.Format("2006-01-02"))
	fmt.Printf("Predicted payment: %s\n", p.PredictedPaymentDate.Format("2006-01-02"))
	fmt.Printf("Average delay: %.1f days\n", p.AverageDelayDays)
	fmt.Printf("Confidence: %.2f (%s)\n", p.ConfidenceScore, predict.ConfidenceBand(p.ConfidenceScore))
	if p.Explanation != "" {
		fmt.Printf("Explanation: %s\n", p.Explanation)
	}
}
