package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makemodel/internal/model"
	"makemodel/internal/store"
)

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.InsertOrder(ctx, &model.Order{ID: "o1", OrderNumber: "ORD-20261016-001"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.OrderByID(ctx, "o1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsertPaymentUniquePerOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertPayment(ctx, &model.Payment{ID: "p1", OrderID: "o1", TransactionID: "imp_1"}); err != nil {
			return err
		}
		return tx.InsertPayment(ctx, &model.Payment{ID: "p2", OrderID: "o1", TransactionID: "imp_2"})
	})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.PaymentByOrder(ctx, "o1")
	assert.ErrorIs(t, err, store.ErrNotFound, "whole transaction rolled back")
}

func TestListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		for i, id := range []string{"a", "b", "c"} {
			o := &model.Order{ID: id, BrandID: "brand", OrderNumber: "ORD-" + id, Status: model.OrderStatusPending,
				CreatedAt: base.Add(time.Duration(i) * time.Minute)}
			if err := tx.InsertOrder(ctx, o); err != nil {
				return err
			}
		}
		return nil
	}))

	orders, total, err := s.ListOrders(ctx, store.OrderFilter{BrandID: "brand"}, store.NewPage(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "c", orders[0].ID)
	assert.Equal(t, "b", orders[1].ID)

	orders, _, err = s.ListOrders(ctx, store.OrderFilter{BrandID: "brand"}, store.NewPage(3, 2))
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertOrder(ctx, &model.Order{ID: "o1", Status: model.OrderStatusPending})
	}))

	o, err := s.OrderByID(ctx, "o1")
	require.NoError(t, err)
	o.Status = model.OrderStatusCompleted

	again, err := s.OrderByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, again.Status)
}
