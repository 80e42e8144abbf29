package models

import "errors"

// Sentinel errors for the prediction engine. Wrap with fmt.Errorf and
// match with errors.Is at boundaries.
var (
	// ErrCustomerNotFound means the store has no history for the id.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrInsufficientHistory means history exists but has no resolved
	// payment records to learn from.
	ErrInsufficientHistory = errors.New("insufficient payment history")

	// ErrOracleUnavailable means the regression model call failed or
	// timed out. Fatal for the prediction it belongs to.
	ErrOracleUnavailable = errors.New("regression oracle unavailable")

	// ErrExplanationUnavailable means the text-generation call failed.
	// Always recovered by callers; only the explanation is omitted.
	ErrExplanationUnavailable = errors.New("explanation unavailable")
)
