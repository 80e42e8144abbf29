package features

import (
	"fmt"
	"time"

	"emipredict/models"
)

// recentWindow is the number of trailing resolved records the
// recent-delay feature looks at.
const recentWindow = 3

// Extract derives the model feature vector from a customer's payment
// history. referenceDate anchors days_since_last_payment so the
// function stays deterministic for a fixed input.
//
// Fails with models.ErrInsufficientHistory when the history has no
// resolved payment records.
func Extract(history *models.CustomerHistory, referenceDate time.Time) (models.FeatureVector, error) {
	delays := resolvedDelays(history.Records)
	if len(delays) == 0 {
		return models.FeatureVector{}, fmt.Errorf("customer %s: %w", history.CustomerID, models.ErrInsufficientHistory)
	}

	var lastPayment time.Time
	for _, r := range history.Records {
		if r.Resolved() && r.PaymentDate.After(lastPayment) {
			lastPayment = *r.PaymentDate
		}
	}

	return models.FeatureVector{
		AverageDelay:         mean(delays),
		RecentDelay:          mean(tail(delays, recentWindow)),
		DelayTrend:           slope(delays),
		DaysSinceLastPayment: referenceDate.Sub(lastPayment).Hours() / 24,
		RecordCount:          len(history.Records),
	}, nil
}

func resolvedDelays(records []models.PaymentRecord) []float64 {
	var delays []float64
	for _, r := range records {
		if r.Resolved() {
			delays = append(delays, r.DelayDays())
		}
	}
	return delays
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// slope is the least-squares slope of delay against record index.
// Returns 0 when fewer than 2 points exist.
func slope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := float64(n)*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (float64(n)*sumXY - sumX*sumY) / denom
}
