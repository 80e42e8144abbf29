package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"emipredict/internal/config"
	"emipredict/internal/history"
	"emipredict/models"
)

// Generates synthetic installment payment histories for local testing.
// Customers get a roughly monthly demand cycle and a stable tendency
// to pay early, on time or late.
func main() {
	customers := flag.Int("customers", 50, "number of customers")
	payments := flag.Int("payments", 12, "payments per customer")
	flag.Parse()

	cfg := config.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

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

	ctx := context.Background()
	now := time.Now()
	total := 0

	for c := 1; c <= *customers; c++ {
		customerID := fmt.Sprintf("CUST_%04d", c)

		baseCycle := []int{28, 30, 31, 32}[rand.Intn(4)]
		minDelay, maxDelay := delayRange()
		amount := 5000 + rand.Float64()*45000

		demand := now.AddDate(0, 0, -180)
		for p := 0; p < *payments; p++ {
			demand = demand.AddDate(0, 0, baseCycle+rand.Intn(7)-3)

			rec := models.PaymentRecord{
				DemandDate: demand,
				Amount:     float64(int(amount*100)) / 100,
			}

			delay := minDelay + rand.Intn(maxDelay-minDelay+1)
			paid := demand.AddDate(0, 0, delay)
			if paid.Before(now) {
				rec.PaymentDate = &paid
			}
			// Demands whose payment would land in the future are kept
			// as outstanding rows.

			if err := store.Insert(ctx, customerID, rec); err != nil {
				log.Fatal().Err(err).Str("customer_id", customerID).Msg("Insert failed")
			}
			total++

			if rec.PaymentDate == nil {
				break
			}
		}
	}

	log.Info().Int("customers", *customers).Int("records", total).Msg("Sample data generated")
}

// delayRange picks a payment tendency: on time, early or late.
func delayRange() (int, int) {
	switch rand.Intn(3) {
	case 0:
		return -2, 2 // on time
	case 1:
		return -5, 0 // early
	default:
		return 0, 10 // late
	}
}
