package memstore

import (
	"context"
	"strings"
	"time"

	"makemodel/internal/model"
	"makemodel/internal/store"
)

type tx struct {
	st *state
}

func (t *tx) CountOrdersWithNumberPrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, o := range t.st.orders {
		if strings.HasPrefix(o.OrderNumber, prefix) {
			n++
		}
	}
	return n, nil
}

func (t *tx) InsertOrder(_ context.Context, o *model.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return store.ErrDuplicate
	}
	for _, existing := range t.st.orders {
		if existing.OrderNumber == o.OrderNumber {
			return store.ErrDuplicate
		}
	}
	t.st.orders[o.ID] = copyOrder(*o)
	return nil
}

func (t *tx) LockOrder(_ context.Context, id string) (*model.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := copyOrder(o)
	return &c, nil
}

func (t *tx) UpdateOrderStatus(_ context.Context, o *model.Order) error {
	existing, ok := t.st.orders[o.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Status = o.Status
	existing.AcceptedAt = copyTime(o.AcceptedAt)
	existing.CompletedAt = copyTime(o.CompletedAt)
	existing.UpdatedAt = o.UpdatedAt
	t.st.orders[o.ID] = existing
	return nil
}

func (t *tx) PaymentByOrder(_ context.Context, orderID string) (*model.Payment, error) {
	return paymentByOrder(t.st, orderID)
}

func (t *tx) LockPaymentByTransaction(_ context.Context, transactionID string) (*model.Payment, error) {
	return paymentByTransaction(t.st, transactionID)
}

func (t *tx) InsertPayment(_ context.Context, p *model.Payment) error {
	for _, existing := range t.st.payments {
		if existing.ID == p.ID || existing.OrderID == p.OrderID || existing.TransactionID == p.TransactionID {
			return store.ErrDuplicate
		}
	}
	t.st.payments[p.ID] = copyPayment(*p)
	return nil
}

func (t *tx) UpdatePayment(_ context.Context, p *model.Payment) error {
	existing, ok := t.st.payments[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Status = p.Status
	existing.PaidAt = copyTime(p.PaidAt)
	t.st.payments[p.ID] = existing
	return nil
}

func (t *tx) InsertSettlement(_ context.Context, st *model.Settlement) error {
	for _, existing := range t.st.settlements {
		if existing.ID == st.ID || existing.OrderID == st.OrderID {
			return store.ErrDuplicate
		}
	}
	t.st.settlements[st.ID] = copySettlement(*st)
	return nil
}

func paymentByOrder(st *state, orderID string) (*model.Payment, error) {
	for _, p := range st.payments {
		if p.OrderID == orderID {
			c := copyPayment(p)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func paymentByTransaction(st *state, transactionID string) (*model.Payment, error) {
	for _, p := range st.payments {
		if p.TransactionID == transactionID {
			c := copyPayment(p)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyOrder(o model.Order) model.Order {
	o.AcceptedAt = copyTime(o.AcceptedAt)
	o.CompletedAt = copyTime(o.CompletedAt)
	if o.ExclusiveMonths != nil {
		m := *o.ExclusiveMonths
		o.ExclusiveMonths = &m
	}
	return o
}

func copyPayment(p model.Payment) model.Payment {
	p.PaidAt = copyTime(p.PaidAt)
	return p
}

func copySettlement(s model.Settlement) model.Settlement {
	s.RequestedAt = copyTime(s.RequestedAt)
	s.CompletedAt = copyTime(s.CompletedAt)
	return s
}
