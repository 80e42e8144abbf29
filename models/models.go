package models

import "time"

// PaymentRecord is a single installment demand and, when resolved, the
// payment that settled it. PaymentDate is nil while the demand is
// outstanding. Records are immutable once loaded.
type PaymentRecord struct {
	DemandDate  time.Time  `json:"demand_date"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	Amount      float64    `json:"amount"`
}

// Resolved reports whether the demand has been paid.
func (r PaymentRecord) Resolved() bool {
	return r.PaymentDate != nil
}

// DelayDays is payment_date - demand_date in days. Negative means the
// customer paid early. Only meaningful for resolved records.
func (r PaymentRecord) DelayDays() float64 {
	if r.PaymentDate == nil {
		return 0
	}
	return r.PaymentDate.Sub(r.DemandDate).Hours() / 24
}

// CustomerHistory is the ordered payment history for one customer,
// sorted ascending by demand date.
type CustomerHistory struct {
	CustomerID string          `json:"customer_id"`
	Records    []PaymentRecord `json:"records"`
}

// FeatureVector holds the numeric features derived from a customer's
// resolved payment history. It is built once per prediction and never
// persisted.
type FeatureVector struct {
	AverageDelay         float64 `json:"average_delay"`
	RecentDelay          float64 `json:"recent_delay"`
	DelayTrend           float64 `json:"delay_trend"`
	DaysSinceLastPayment float64 `json:"days_since_last_payment"`
	RecordCount          int     `json:"record_count"`
}

// Prediction is the result of a single next-payment-date prediction.
// Numeric fields are fixed at assembly time; only Explanation may be
// filled in afterwards by the enricher.
type Prediction struct {
	CustomerID           string    `json:"customer_id"`
	LastDemandDate       time.Time `json:"last_demand_date"`
	LastPaymentDate      time.Time `json:"last_payment_date"`
	NextDemandDate       time.Time `json:"next_demand_date"`
	PredictedPaymentDate time.Time `json:"predicted_payment_date"`
	AverageDelayDays     float64   `json:"average_delay_days"`
	ConfidenceScore      float64   `json:"confidence_score"`
	Explanation          string    `json:"explanation,omitempty"`
}

// BatchResult aggregates the outcome of predicting over multiple
// customers. Predictions keeps the caller's input order; Failed maps
// each failed customer id to the reason.
type BatchResult struct {
	Predictions []Prediction      `json:"predictions"`
	Failed      map[string]string `json:"failed,omitempty"`
	Insights    string            `json:"insights,omitempty"`
}

// CustomerSummary is one row of the customer listing.
type CustomerSummary struct {
	CustomerID       string    `json:"customer_id"`
	TotalPayments    int       `json:"total_payments"`
	FirstPaymentDate time.Time `json:"first_payment_date"`
	LastPaymentDate  time.Time `json:"last_payment_date"`
}
