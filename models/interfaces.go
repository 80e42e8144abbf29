package models

import "context"

// HistoryStore supplies ordered payment histories.
type HistoryStore interface {
	History(ctx context.Context, customerID string) (*CustomerHistory, error)
	ListCustomers(ctx context.Context) ([]CustomerSummary, error)
}

// RegressionOracle maps a feature vector to a predicted payment delay
// in days and an uncertainty estimate. How the model computes this is
// opaque to the engine.
type RegressionOracle interface {
	Predict(ctx context.Context, features FeatureVector) (delayDays, uncertainty float64, err error)
	Ready(ctx context.Context) bool
}

// Explainer generates natural-language text for predictions. Both
// methods return ErrExplanationUnavailable on any transport failure;
// callers must treat that as non-fatal.
type Explainer interface {
	Explain(ctx context.Context, prediction Prediction) (string, error)
	Summarize(ctx context.Context, predictions []Prediction, failed map[string]string) (string, error)
}
