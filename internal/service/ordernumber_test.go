package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makemodel/internal/apperr"
	"makemodel/internal/model"
	"makemodel/internal/store"
	"makemodel/internal/store/memstore"
)

func TestOrderNumberPrefixUsesUTCDate(t *testing.T) {
	g := NewOrderNumberGenerator(nil)
	seoul := time.FixedZone("KST", 9*60*60)

	assert.Equal(t, "ORD-20261016-", g.Prefix(time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "ORD-20261015-", g.Prefix(time.Date(2026, 10, 16, 8, 0, 0, 0, seoul)))
}

func TestOrderNumberSequencePerDay(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := &clock{t: fixedNow}
	g := NewOrderNumberGenerator(c.Now)

	next := func() string {
		var n string
		require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
			var err error
			n, err = g.Next(ctx, tx)
			if err != nil {
				return err
			}
			return tx.InsertOrder(ctx, &model.Order{ID: n, OrderNumber: n})
		}))
		return n
	}

	assert.Equal(t, "ORD-20261016-001", next())
	assert.Equal(t, "ORD-20261016-002", next())
	assert.Equal(t, "ORD-20261016-003", next())

	c.Advance(24 * time.Hour)
	assert.Equal(t, "ORD-20261017-001", next())
}

func TestCreateRetriesOnNumberCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// With only 002 taken, the count is always 1 and every attempt computes
	// the same taken number.
	require.NoError(t, f.store.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertOrder(ctx, &model.Order{ID: "legacy", OrderNumber: "ORD-20261016-002"})
	}))

	o, err := f.orders.Create(ctx, f.brand, f.orderInput(5000))
	assert.Nil(t, o)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
}
