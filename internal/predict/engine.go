package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"emipredict/internal/features"
	"emipredict/models"
)

// Options tunes the prediction engine
type Options struct {
	// DefaultCycleDays is the demand cycle assumed when a history has
	// fewer than 2 demand records to infer one from.
	DefaultCycleDays int
	// BatchWorkers bounds concurrent predictions in a batch.
	BatchWorkers int
}

// Engine predicts the next installment payment date per customer. The
// history store, the regression model and the text enricher are all
// injected; the engine holds no mutable state across calls.
type Engine struct {
	store     models.HistoryStore
	oracle    models.RegressionOracle
	explainer models.Explainer
	opts      Options
	logger    zerolog.Logger
}

// New creates a prediction engine. explainer may be nil, in which case
// explanation requests are silently skipped.
func New(store models.HistoryStore, oracle models.RegressionOracle, explainer models.Explainer, opts Options) *Engine {
	if opts.DefaultCycleDays <= 0 {
		opts.DefaultCycleDays = 30
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 4
	}
	return &Engine{
		store:     store,
		oracle:    oracle,
		explainer: explainer,
		opts:      opts,
		logger:    log.With().Str("component", "prediction_engine").Logger(),
	}
}

// Ready reports whether the regression model is available.
func (e *Engine) Ready(ctx context.Context) bool {
	return e.oracle.Ready(ctx)
}

// PredictOne predicts the next payment date for a single customer.
// referenceDate anchors the time-dependent features; callers normally
// pass the current date.
//
// Fails with ErrCustomerNotFound, ErrInsufficientHistory or
// ErrOracleUnavailable. An enricher failure never fails the call; the
// explanation is simply left empty.
func (e *Engine) PredictOne(ctx context.Context, customerID string, referenceDate time.Time, includeExplanation bool) (*models.Prediction, error) {
	history, err := e.store.History(ctx, customerID)
	if err != nil {
		return nil, err
	}

	fv, err := features.Extract(history, referenceDate)
	if err != nil {
		return nil, err
	}

	nextDemand := e.nextDemandDate(history)

	delayDays, uncertainty, err := e.oracle.Predict(ctx, fv)
	if err != nil {
		return nil, fmt.Errorf("customer %s: %w", customerID, err)
	}

	// A payment cannot precede the demand that triggers it, even when
	// the model forecasts an early payment.
	predicted := nextDemand.AddDate(0, 0, int(math.Round(delayDays)))
	if predicted.Before(nextDemand) {
		predicted = nextDemand
	}

	last := history.Records[len(history.Records)-1]
	p := &models.Prediction{
		CustomerID:           customerID,
		LastDemandDate:       last.DemandDate,
		LastPaymentDate:      lastPaymentDate(history.Records),
		NextDemandDate:       nextDemand,
		PredictedPaymentDate: predicted,
		AverageDelayDays:     fv.AverageDelay,
		ConfidenceScore:      confidenceFromUncertainty(uncertainty),
	}

	if includeExplanation && e.explainer != nil {
		text, err := e.explainer.Explain(ctx, *p)
		if err != nil {
			// Best effort only. The numeric result stands on its own.
			e.logger.Warn().Err(err).Str("customer_id", customerID).Msg("Explanation skipped")
		} else {
			p.Explanation = text
		}
	}

	e.logger.Debug().
		Str("customer_id", customerID).
		Time("predicted_payment_date", p.PredictedPaymentDate).
		Float64("confidence", p.ConfidenceScore).
		Msg("Prediction assembled")

	return p, nil
}

// nextDemandDate picks the first outstanding demand when one exists,
// otherwise projects the last demand forward by the customer's median
// demand cycle.
func (e *Engine) nextDemandDate(history *models.CustomerHistory) time.Time {
	for _, r := range history.Records {
		if !r.Resolved() {
			return r.DemandDate
		}
	}

	last := history.Records[len(history.Records)-1].DemandDate
	cycle := medianDemandGapDays(history.Records)
	if cycle <= 0 {
		cycle = e.opts.DefaultCycleDays
	}
	return last.AddDate(0, 0, cycle)
}

// medianDemandGapDays returns the median gap in days between
// consecutive demand dates, or 0 when fewer than 2 demands exist.
func medianDemandGapDays(records []models.PaymentRecord) int {
	if len(records) < 2 {
		return 0
	}

	gaps := make([]int, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		gap := int(math.Round(records[i].DemandDate.Sub(records[i-1].DemandDate).Hours() / 24))
		gaps = append(gaps, gap)
	}
	sort.Ints(gaps)

	mid := len(gaps) / 2
	if len(gaps)%2 == 0 {
		return (gaps[mid-1] + gaps[mid]) / 2
	}
	return gaps[mid]
}

func lastPaymentDate(records []models.PaymentRecord) time.Time {
	var last time.Time
	for _, r := range records {
		if r.Resolved() && r.PaymentDate.After(last) {
			last = *r.PaymentDate
		}
	}
	return last
}

// confidenceFromUncertainty maps model uncertainty to a [0,1] score.
// Monotonically decreasing: a tighter model yields higher confidence.
func confidenceFromUncertainty(uncertainty float64) float64 {
	if uncertainty < 0 {
		uncertainty = 0
	}
	score := 1 / (1 + uncertainty)
	return math.Min(1, math.Max(0, score))
}

// ConfidenceBand classifies a confidence score for display. Pure so
// any consumer reproduces the banding identically.
func ConfidenceBand(score float64) string {
	switch {
	case score > 0.8:
		return "high"
	case score < 0.6:
		return "low"
	default:
		return "medium"
	}
}

// FailureReason renders a prediction error for the batch failure map.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrCustomerNotFound):
		return "customer not found"
	case errors.Is(err, models.ErrInsufficientHistory):
		return "insufficient payment history"
	case errors.Is(err, models.ErrOracleUnavailable):
		return "regression oracle unavailable"
	default:
		return err.Error()
	}
}
