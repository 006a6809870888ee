package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"makemodel/internal/model"
	"makemodel/internal/store"
)

const paymentColumns = `id, order_id, payment_provider, payment_method, amount, status, transaction_id, paid_at, created_at`

func scanPayment(row rowScanner) (*model.Payment, error) {
	var (
		p      model.Payment
		paidAt sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.Method, &p.Amount, &p.Status,
		&p.TransactionID, &paidAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.PaidAt = timePtr(paidAt)
	return &p, nil
}

func paymentByOrder(ctx context.Context, q querier, orderID string) (*model.Payment, error) {
	p, err := scanPayment(q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, fmt.Errorf("get payment by order: %w", classify(err))
	}
	return p, nil
}

func (s *Store) PaymentByOrder(ctx context.Context, orderID string) (*model.Payment, error) {
	return paymentByOrder(ctx, s.db, orderID)
}

func (s *Store) PaymentByTransaction(ctx context.Context, transactionID string) (*model.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, transactionID))
	if err != nil {
		return nil, fmt.Errorf("get payment by transaction: %w", classify(err))
	}
	return p, nil
}

func (t *tx) PaymentByOrder(ctx context.Context, orderID string) (*model.Payment, error) {
	return paymentByOrder(ctx, t.q, orderID)
}

func (t *tx) LockPaymentByTransaction(ctx context.Context, transactionID string) (*model.Payment, error) {
	p, err := scanPayment(t.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1 FOR UPDATE`, transactionID))
	if err != nil {
		return nil, fmt.Errorf("lock payment: %w", classify(err))
	}
	return p, nil
}

func (t *tx) InsertPayment(ctx context.Context, p *model.Payment) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.OrderID, p.Provider, string(p.Method), p.Amount, string(p.Status),
		p.TransactionID, nullTime(p.PaidAt), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", classify(err))
	}
	return nil
}

func (t *tx) UpdatePayment(ctx context.Context, p *model.Payment) error {
	res, err := t.q.ExecContext(ctx, `UPDATE payments SET status = $1, paid_at = $2 WHERE id = $3`,
		string(p.Status), nullTime(p.PaidAt), p.ID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update payment: %w", store.ErrNotFound)
	}
	return nil
}
