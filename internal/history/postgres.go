package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"emipredict/models"
)

// Postgres is a HistoryStore backed by a payment_history table.
type Postgres struct {
	db     *sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewPostgres opens a connection and bootstraps the schema.
func NewPostgres(params ConnectionParams) (*Postgres, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &Postgres{
		db:     db,
		logger: log.With().Str("component", "history_store").Logger(),
	}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payment_history (
			id BIGSERIAL PRIMARY KEY,
			customer_id TEXT NOT NULL,
			demand_date DATE NOT NULL,
			payment_date DATE,
			amount NUMERIC(12, 2) NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_payment_history_customer
		ON payment_history (customer_id, demand_date)
	`)
	return err
}

// History returns the ordered payment history for a customer.
// Fails with ErrCustomerNotFound when no rows exist for the id.
func (s *Postgres) History(ctx context.Context, customerID string) (*models.CustomerHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT demand_date, payment_date, amount
		FROM payment_history
		WHERE customer_id = $1
		ORDER BY demand_date
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []models.PaymentRecord
	for rows.Next() {
		var rec models.PaymentRecord
		var paymentDate sql.NullTime
		if err := rows.Scan(&rec.DemandDate, &paymentDate, &rec.Amount); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if paymentDate.Valid {
			t := paymentDate.Time
			rec.PaymentDate = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("customer %s: %w", customerID, models.ErrCustomerNotFound)
	}

	return &models.CustomerHistory{CustomerID: customerID, Records: records}, nil
}

// ListCustomers returns a summary row per known customer, ordered by
// customer id.
func (s *Postgres) ListCustomers(ctx context.Context) ([]models.CustomerSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, COUNT(payment_date), MIN(payment_date), MAX(payment_date)
		FROM payment_history
		GROUP BY customer_id
		ORDER BY customer_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying customers: %w", err)
	}
	defer rows.Close()

	var summaries []models.CustomerSummary
	for rows.Next() {
		var sum models.CustomerSummary
		var first, last sql.NullTime
		if err := rows.Scan(&sum.CustomerID, &sum.TotalPayments, &first, &last); err != nil {
			return nil, fmt.Errorf("scanning customer row: %w", err)
		}
		if first.Valid {
			sum.FirstPaymentDate = first.Time
		}
		if last.Valid {
			sum.LastPaymentDate = last.Time
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading customer rows: %w", err)
	}

	return summaries, nil
}

// Insert stores one payment record. Used by the sample data seeder.
func (s *Postgres) Insert(ctx context.Context, customerID string, rec models.PaymentRecord) error {
	var paymentDate sql.NullTime
	if rec.PaymentDate != nil {
		paymentDate = sql.NullTime{Time: *rec.PaymentDate, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_history (customer_id, demand_date, payment_date, amount)
		VALUES ($1, $2, $3, $4)
	`, customerID, rec.DemandDate, paymentDate, rec.Amount)
	return err
}

// Close closes the underlying connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}
