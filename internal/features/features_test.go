package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"emipredict/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func resolved(demand, payment time.Time) models.PaymentRecord {
	return models.PaymentRecord{DemandDate: demand, PaymentDate: &payment, Amount: 10000}
}

func outstanding(demand time.Time) models.PaymentRecord {
	return models.PaymentRecord{DemandDate: demand, Amount: 10000}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		records []models.PaymentRecord
		ref     time.Time
		want    models.FeatureVector
	}{
		{
			name: "two resolved records",
			records: []models.PaymentRecord{
				resolved(date(2024, 1, 1), date(2024, 1, 5)),
				resolved(date(2024, 2, 1), date(2024, 2, 10)),
			},
			ref: date(2024, 2, 15),
			want: models.FeatureVector{
				AverageDelay:         6.5,
				RecentDelay:          6.5,
				DelayTrend:           5,
				DaysSinceLastPayment: 5,
				RecordCount:          2,
			},
		},
		{
			name: "single resolved record has zero trend",
			records: []models.PaymentRecord{
				resolved(date(2024, 1, 10), date(2024, 1, 13)),
			},
			ref: date(2024, 1, 20),
			want: models.FeatureVector{
				AverageDelay:         3,
				RecentDelay:          3,
				DelayTrend:           0,
				DaysSinceLastPayment: 7,
				RecordCount:          1,
			},
		},
		{
			name: "recent delay uses last three resolved records",
			records: []models.PaymentRecord{
				resolved(date(2024, 1, 1), date(2024, 1, 1)),
				resolved(date(2024, 2, 1), date(2024, 2, 1)),
				resolved(date(2024, 3, 1), date(2024, 3, 7)),
				resolved(date(2024, 4, 1), date(2024, 4, 7)),
				resolved(date(2024, 5, 1), date(2024, 5, 7)),
			},
			ref: date(2024, 5, 10),
			want: models.FeatureVector{
				AverageDelay:         3.6,
				RecentDelay:          6,
				DelayTrend:           1.8,
				DaysSinceLastPayment: 3,
				RecordCount:          5,
			},
		},
		{
			name: "outstanding records counted but not averaged",
			records: []models.PaymentRecord{
				resolved(date(2024, 1, 1), date(2024, 1, 3)),
				resolved(date(2024, 2, 1), date(2024, 2, 3)),
				outstanding(date(2024, 3, 1)),
			},
			ref: date(2024, 3, 5),
			want: models.FeatureVector{
				AverageDelay:         2,
				RecentDelay:          2,
				DelayTrend:           0,
				DaysSinceLastPayment: 31,
				RecordCount:          3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &models.CustomerHistory{CustomerID: "CUST_0001", Records: tt.records}
			got, err := Extract(history, tt.ref)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			assertClose(t, "AverageDelay", got.AverageDelay, tt.want.AverageDelay)
			assertClose(t, "RecentDelay", got.RecentDelay, tt.want.RecentDelay)
			assertClose(t, "DelayTrend", got.DelayTrend, tt.want.DelayTrend)
			assertClose(t, "DaysSinceLastPayment", got.DaysSinceLastPayment, tt.want.DaysSinceLastPayment)
			if got.RecordCount != tt.want.RecordCount {
				t.Errorf("RecordCount = %d, want %d", got.RecordCount, tt.want.RecordCount)
			}
		})
	}
}

func TestExtractInsufficientHistory(t *testing.T) {
	history := &models.CustomerHistory{
		CustomerID: "CUST_0002",
		Records: []models.PaymentRecord{
			outstanding(date(2024, 1, 1)),
			outstanding(date(2024, 2, 1)),
		},
	}

	_, err := Extract(history, date(2024, 2, 15))
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("Extract() error = %v, want ErrInsufficientHistory", err)
	}
}

func TestExtractDeterministic(t *testing.T) {
	history := &models.CustomerHistory{
		CustomerID: "CUST_0003",
		Records: []models.PaymentRecord{
			resolved(date(2024, 1, 1), date(2024, 1, 5)),
			resolved(date(2024, 2, 1), date(2024, 2, 10)),
			outstanding(date(2024, 3, 1)),
		},
	}
	ref := date(2024, 2, 15)

	first, err := Extract(history, ref)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	second, err := Extract(history, ref)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if first != second {
		t.Errorf("Extract() not deterministic: %+v vs %+v", first, second)
	}
}

func assertClose(t *testing.T, field string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}
