// Package ledger records captured payments whose verification failed, so
// support can reconcile them out of band.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"go-chat-commerce/chat-commerce/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS unverified_payments (
	payment_id       TEXT PRIMARY KEY,
	gateway_order_id TEXT NOT NULL,
	order_id         TEXT NOT NULL,
	session_token    TEXT NOT NULL,
	phone            TEXT NOT NULL,
	amount           NUMERIC(12,2) NOT NULL,
	reason           TEXT NOT NULL,
	resolved         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL
)`

// ErrUnknownPayment is returned when resolving a payment the ledger never recorded
var ErrUnknownPayment = errors.New("payment not in ledger")

// PostgresLedger implements the reconciliation ledger on PostgreSQL
type PostgresLedger struct {
	db  *sql.DB
	now func() time.Time
}

// Connect opens and pings a Postgres database
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db, now: time.Now}
}

// EnsureSchema creates the ledger table when missing
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

// RecordUnverified stores p once; recording the same payment id again is a no-op.
func (l *PostgresLedger) RecordUnverified(ctx context.Context, p types.UnverifiedPayment) error {
	query := `
		INSERT INTO unverified_payments (payment_id, gateway_order_id, order_id, session_token, phone, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payment_id) DO NOTHING
	`
	_, err := l.db.ExecContext(ctx, query, p.PaymentID, p.GatewayOrderID, p.OrderID, p.SessionToken, p.Phone, p.Amount, p.Reason, l.now())
	if err != nil {
		return fmt.Errorf("failed to record unverified payment: %w", err)
	}
	return nil
}

// Pending lists unresolved payments, oldest first
func (l *PostgresLedger) Pending(ctx context.Context) ([]types.UnverifiedPayment, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT payment_id, gateway_order_id, order_id, session_token, phone, amount, reason FROM unverified_payments WHERE resolved = FALSE ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list unverified payments: %w", err)
	}
	defer rows.Close()

	var out []types.UnverifiedPayment
	for rows.Next() {
		var p types.UnverifiedPayment
		if err := rows.Scan(&p.PaymentID, &p.GatewayOrderID, &p.OrderID, &p.SessionToken, &p.Phone, &p.Amount, &p.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan unverified payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Resolve marks a payment as reconciled
func (l *PostgresLedger) Resolve(ctx context.Context, paymentID string) error {
	res, err := l.db.ExecContext(ctx, "UPDATE unverified_payments SET resolved = TRUE WHERE payment_id = $1", paymentID)
	if err != nil {
		return fmt.Errorf("failed to resolve payment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", paymentID, ErrUnknownPayment)
	}
	return nil
}
