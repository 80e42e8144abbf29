package predict

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"emipredict/models"
)

// PredictBatch predicts over a set of customer ids. An empty ids slice
// means every customer known to the store. Each id is predicted
// independently: per-id failures land in Failed and never abort the
// rest. The Predictions order matches the input order regardless of
// completion order.
func (e *Engine) PredictBatch(ctx context.Context, ids []string, referenceDate time.Time, includeExplanation bool) (*models.BatchResult, error) {
	if len(ids) == 0 {
		summaries, err := e.store.ListCustomers(ctx)
		if err != nil {
			return nil, err
		}
		ids = make([]string, 0, len(summaries))
		for _, s := range summaries {
			ids = append(ids, s.CustomerID)
		}
	}

	results := make([]*models.Prediction, len(ids))
	failed := make(map[string]string)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.BatchWorkers)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			p, err := e.PredictOne(gctx, id, referenceDate, includeExplanation)
			if err != nil {
				e.logger.Warn().Err(err).Str("customer_id", id).Msg("Batch prediction failed for customer")
				mu.Lock()
				failed[id] = FailureReason(err)
				mu.Unlock()
				return nil
			}
			results[i] = p
			return nil
		})
	}
	// Workers never return errors; Wait only orders the summarize call
	// after every per-id prediction has resolved.
	_ = g.Wait()

	out := &models.BatchResult{Failed: failed}
	for _, p := range results {
		if p != nil {
			out.Predictions = append(out.Predictions, *p)
		}
	}

	if includeExplanation && e.explainer != nil && len(out.Predictions) > 0 {
		insights, err := e.explainer.Summarize(ctx, out.Predictions, out.Failed)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Batch insights skipped")
		} else {
			out.Insights = insights
		}
	}

	e.logger.Info().
		Int("requested", len(ids)).
		Int("predicted", len(out.Predictions)).
		Int("failed", len(out.Failed)).
		Msg("Batch prediction complete")

	return out, nil
}
