package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"makemodel/internal/model"
	"makemodel/internal/store"
)

const orderColumns = `id, brand_id, creator_id, model_id, order_number, concept_description,
	package_type, image_count, is_exclusive, exclusive_months, total_price, status,
	accepted_at, completed_at, created_at, updated_at`

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o           model.Order
		months      sql.NullInt32
		acceptedAt  sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.BrandID, &o.CreatorID, &o.ModelID, &o.OrderNumber, &o.ConceptDescription,
		&o.PackageType, &o.ImageCount, &o.IsExclusive, &months, &o.TotalPrice, &o.Status,
		&acceptedAt, &completedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if months.Valid {
		m := int(months.Int32)
		o.ExclusiveMonths = &m
	}
	o.AcceptedAt = timePtr(acceptedAt)
	o.CompletedAt = timePtr(completedAt)
	return &o, nil
}

func (s *Store) OrderByID(ctx context.Context, id string) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", classify(err))
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter, page store.Page) ([]model.Order, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.BrandID != "" {
		args = append(args, filter.BrandID)
		conds = append(conds, fmt.Sprintf("brand_id = $%d", len(args)))
	}
	if filter.CreatorID != "" {
		args = append(args, filter.CreatorID)
		conds = append(conds, fmt.Sprintf("creator_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0, page.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, total, nil
}

func (t *tx) CountOrdersWithNumberPrefix(ctx context.Context, prefix string) (int, error) {
	var count int
	err := t.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE order_number LIKE $1`, prefix+"%").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders by prefix: %w", err)
	}
	return count, nil
}

func (t *tx) InsertOrder(ctx context.Context, o *model.Order) error {
	var months sql.NullInt32
	if o.ExclusiveMonths != nil {
		months = sql.NullInt32{Int32: int32(*o.ExclusiveMonths), Valid: true}
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, o.BrandID, o.CreatorID, o.ModelID, o.OrderNumber, o.ConceptDescription,
		string(o.PackageType), o.ImageCount, o.IsExclusive, months, o.TotalPrice, string(o.Status),
		nullTime(o.AcceptedAt), nullTime(o.CompletedAt), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", classify(err))
	}
	return nil
}

func (t *tx) LockOrder(ctx context.Context, id string) (*model.Order, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", classify(err))
	}
	return o, nil
}

func (t *tx) UpdateOrderStatus(ctx context.Context, o *model.Order) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE orders SET status = $1, accepted_at = $2, completed_at = $3, updated_at = $4
		WHERE id = $5`,
		string(o.Status), nullTime(o.AcceptedAt), nullTime(o.CompletedAt), o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update order: %w", store.ErrNotFound)
	}
	return nil
}
