package service

import (
	"context"
	"fmt"
	"time"

	"makemodel/internal/store"
)

const orderNumberDateLayout = "20060102"

// OrderNumberGenerator assigns ORD-YYYYMMDD-NNN numbers, where NNN is one more
// than the number of orders already carrying today's prefix.
//
// The count and the insert run in the same transaction, but two concurrent
// creations can still read the same count. The unique index on order_number
// rejects the loser, and OrderService retries with a fresh count.
type OrderNumberGenerator struct {
	now func() time.Time
}

func NewOrderNumberGenerator(now func() time.Time) *OrderNumberGenerator {
	if now == nil {
		now = time.Now
	}
	return &OrderNumberGenerator{now: now}
}

// Prefix returns the date-scoped prefix for t, in UTC.
func (g *OrderNumberGenerator) Prefix(t time.Time) string {
	return "ORD-" + t.UTC().Format(orderNumberDateLayout) + "-"
}

func (g *OrderNumberGenerator) Next(ctx context.Context, tx store.Tx) (string, error) {
	prefix := g.Prefix(g.now())
	count, err := tx.CountOrdersWithNumberPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("count today's orders: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}
