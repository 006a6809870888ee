package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"makemodel/internal/model"
	"makemodel/internal/store"
)

const settlementColumns = `id, creator_id, order_id, total_amount, platform_fee, settlement_amount,
	status, requested_at, completed_at, created_at`

func scanSettlement(row rowScanner) (*model.Settlement, error) {
	var (
		st          model.Settlement
		requestedAt sql.NullTime
		completedAt sql.NullTime
	)
	if err := row.Scan(&st.ID, &st.CreatorID, &st.OrderID, &st.TotalAmount, &st.PlatformFee,
		&st.SettlementAmount, &st.Status, &requestedAt, &completedAt, &st.CreatedAt); err != nil {
		return nil, err
	}
	st.RequestedAt = timePtr(requestedAt)
	st.CompletedAt = timePtr(completedAt)
	return &st, nil
}

func (s *Store) SettlementByID(ctx context.Context, id string) (*model.Settlement, error) {
	st, err := scanSettlement(s.db.QueryRowContext(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", classify(err))
	}
	return st, nil
}

func (s *Store) SettlementByOrder(ctx context.Context, orderID string) (*model.Settlement, error) {
	st, err := scanSettlement(s.db.QueryRowContext(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, fmt.Errorf("get settlement by order: %w", classify(err))
	}
	return st, nil
}

func (s *Store) ListSettlements(ctx context.Context, creatorID string, page store.Page) ([]model.Settlement, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settlements WHERE creator_id = $1`, creatorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count settlements: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+settlementColumns+`
		FROM settlements
		WHERE creator_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, creatorID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()

	settlements := make([]model.Settlement, 0, page.Limit)
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan settlement: %w", err)
		}
		settlements = append(settlements, *st)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration failed: %w", err)
	}

	return settlements, total, nil
}

func (s *Store) SettlementSummary(ctx context.Context, creatorID string) (*model.SettlementSummary, error) {
	var sum model.SettlementSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(settlement_amount) FILTER (WHERE status = 'pending'), 0),
			COALESCE(SUM(settlement_amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(platform_fee), 0)
		FROM settlements
		WHERE creator_id = $1
	`, creatorID).Scan(&sum.TotalCount, &sum.PendingAmount, &sum.CompletedAmount, &sum.TotalPlatformFee)
	if err != nil {
		return nil, fmt.Errorf("settlement summary: %w", err)
	}
	return &sum, nil
}

func (t *tx) InsertSettlement(ctx context.Context, st *model.Settlement) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO settlements (`+settlementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		st.ID, st.CreatorID, st.OrderID, st.TotalAmount, st.PlatformFee, st.SettlementAmount,
		string(st.Status), nullTime(st.RequestedAt), nullTime(st.CompletedAt), st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", classify(err))
	}
	return nil
}
