package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"emipredict/models"
)

// Memory is an in-memory HistoryStore used by tests and local demos.
type Memory struct {
	mu         sync.RWMutex
	byCustomer map[string][]models.PaymentRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byCustomer: make(map[string][]models.PaymentRecord)}
}

// Add appends records for a customer, keeping demand-date order.
func (m *Memory) Add(customerID string, records ...models.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append(m.byCustomer[customerID], records...)
	sort.Slice(all, func(i, j int) bool {
		return all[i].DemandDate.Before(all[j].DemandDate)
	})
	m.byCustomer[customerID] = all
}

// History returns a copy of the customer's records.
func (m *Memory) History(_ context.Context, customerID string) (*models.CustomerHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.byCustomer[customerID]
	if !ok || len(records) == 0 {
		return nil, fmt.Errorf("customer %s: %w", customerID, models.ErrCustomerNotFound)
	}

	out := make([]models.PaymentRecord, len(records))
	copy(out, records)
	return &models.CustomerHistory{CustomerID: customerID, Records: out}, nil
}

// ListCustomers returns summaries ordered by customer id.
func (m *Memory) ListCustomers(_ context.Context) ([]models.CustomerSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]models.CustomerSummary, 0, len(m.byCustomer))
	for id, records := range m.byCustomer {
		s := models.CustomerSummary{CustomerID: id}
		for _, r := range records {
			if !r.Resolved() {
				continue
			}
			s.TotalPayments++
			if s.FirstPaymentDate.IsZero() || r.PaymentDate.Before(s.FirstPaymentDate) {
				s.FirstPaymentDate = *r.PaymentDate
			}
			if r.PaymentDate.After(s.LastPaymentDate) {
				s.LastPaymentDate = *r.PaymentDate
			}
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CustomerID < summaries[j].CustomerID
	})
	return summaries, nil
}
