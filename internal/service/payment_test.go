package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makemodel/internal/apperr"
	"makemodel/internal/model"
)

func TestCreatePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.acceptedOrder(t, 300_000)

	p, err := f.payments.CreatePayment(ctx, f.brand, CreatePaymentInput{OrderID: o.ID, Method: model.PaymentMethodTransfer, Amount: 300_000})
	require.NoError(t, err)
	assert.Equal(t, o.ID, p.OrderID)
	assert.Equal(t, DefaultPaymentProvider, p.Provider)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.Regexp(t, regexp.MustCompile(`^imp_[0-9a-f]{16}$`), p.TransactionID)
	assert.Nil(t, p.PaidAt)

	got, err := f.store.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, got.Status, "payment starts production")
}

func TestCreatePaymentTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, first := f.paidOrder(t, 300_000)

	_, err := f.payments.CreatePayment(ctx, f.brand, CreatePaymentInput{OrderID: o.ID, Method: model.PaymentMethodCard, Amount: 300_000})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)

	p, err := f.store.PaymentByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, p.ID)
}

func TestCreatePaymentOnPendingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.createOrder(t, 300_000)

	_, err := f.payments.CreatePayment(ctx, f.brand, CreatePaymentInput{OrderID: o.ID, Method: model.PaymentMethodCard, Amount: 300_000})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), "got %v", err)

	_, err = f.store.PaymentByOrder(ctx, o.ID)
	assert.Error(t, err, "no payment created")
}

func TestCreatePaymentRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.acceptedOrder(t, 300_000)

	tests := []struct {
		name  string
		actor model.Actor
		in    CreatePaymentInput
		kind  apperr.Kind
	}{
		{"creator", f.creator, CreatePaymentInput{OrderID: o.ID, Method: model.PaymentMethodCard, Amount: 300_000}, apperr.KindForbidden},
		{"other brand", f.other, CreatePaymentInput{OrderID: o.ID, Method: model.PaymentMethodCard, Amount: 300_000}, apperr.KindForbidden},
		{"missing order", f.brand, CreatePaymentInput{OrderID: "nope", Method: model.PaymentMethodCard, Amount: 300_000}, apperr.KindNotFound},
		{"bad method", f.brand, CreatePaymentInput{OrderID: o.ID, Method: "cash", Amount: 300_000}, apperr.KindValidation},
		{"zero amount", f.brand, CreatePaymentInput{OrderID: o.ID, Method: model.PaymentMethodCard}, apperr.KindValidation},
		{"amount mismatch", f.brand, CreatePaymentInput{OrderID: o.ID, Method: model.PaymentMethodCard, Amount: 299_999}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.CreatePayment(ctx, tt.actor, tt.in)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "got %v", err)
		})
	}

	got, err := f.store.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusAccepted, got.Status)
}

func TestConfirmPaymentPaidIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, p := f.paidOrder(t, 300_000)
	in := ConfirmPaymentInput{TransactionID: p.TransactionID, ExternalOrderRef: o.ID, Status: ExternalStatusPaid, Amount: 300_000}

	first, err := f.payments.ConfirmPayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, first.Status)
	require.NotNil(t, first.PaidAt)
	assert.Equal(t, fixedNow, *first.PaidAt)

	f.clock.Advance(time.Minute)
	second, err := f.payments.ConfirmPayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	require.NotNil(t, second.PaidAt)
	assert.Equal(t, *first.PaidAt, *second.PaidAt, "paid_at not moved by re-delivery")
}

func TestConfirmPaymentFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, p := f.paidOrder(t, 300_000)

	got, err := f.payments.ConfirmPayment(ctx, ConfirmPaymentInput{TransactionID: p.TransactionID, Status: ExternalStatusFailed, Amount: 300_000})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, got.Status)
	assert.Nil(t, got.PaidAt)

	_, err = f.payments.ConfirmPayment(ctx, ConfirmPaymentInput{TransactionID: p.TransactionID, Status: ExternalStatusPaid, Amount: 300_000})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), "got %v", err)
}

func TestConfirmPaymentRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, p := f.paidOrder(t, 300_000)

	tests := []struct {
		name string
		in   ConfirmPaymentInput
		kind apperr.Kind
	}{
		{"unknown status", ConfirmPaymentInput{TransactionID: p.TransactionID, Status: "refunded", Amount: 300_000}, apperr.KindValidation},
		{"missing transaction", ConfirmPaymentInput{Status: ExternalStatusPaid, Amount: 300_000}, apperr.KindValidation},
		{"unknown transaction", ConfirmPaymentInput{TransactionID: "imp_0000000000000000", Status: ExternalStatusPaid, Amount: 300_000}, apperr.KindNotFound},
		{"wrong order ref", ConfirmPaymentInput{TransactionID: p.TransactionID, ExternalOrderRef: "other", Status: ExternalStatusPaid, Amount: 300_000}, apperr.KindValidation},
		{"wrong amount", ConfirmPaymentInput{TransactionID: p.TransactionID, ExternalOrderRef: o.ID, Status: ExternalStatusPaid, Amount: 1}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.ConfirmPayment(ctx, tt.in)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "got %v", err)
		})
	}

	got, err := f.store.PaymentByTransaction(ctx, p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, got.Status)
}

type fakeGuard struct {
	seen      map[string]bool
	forgotten []string
	err       error
}

func (g *fakeGuard) CheckAndMark(_ context.Context, id string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.seen[id] {
		return true, nil
	}
	g.seen[id] = true
	return false, nil
}

func (g *fakeGuard) Forget(_ context.Context, id string) error {
	delete(g.seen, id)
	g.forgotten = append(g.forgotten, id)
	return nil
}

func TestConfirmPaymentWithGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guard := &fakeGuard{seen: map[string]bool{}}
	ledger := NewPaymentLedger(f.store, f.machine, "", WithPaymentClock(f.clock.Now), WithDeliveryGuard(guard))
	_, p := f.paidOrder(t, 300_000)

	// A rejected delivery releases its marker so a corrected retry is processed.
	_, err := ledger.ConfirmPayment(ctx, ConfirmPaymentInput{TransactionID: p.TransactionID, Status: ExternalStatusPaid, Amount: 1})
	require.Error(t, err)
	assert.Equal(t, []string{p.TransactionID + ":completed"}, guard.forgotten)

	in := ConfirmPaymentInput{TransactionID: p.TransactionID, Status: ExternalStatusPaid, Amount: 300_000}
	first, err := ledger.ConfirmPayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, first.Status)

	again, err := ledger.ConfirmPayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.PaidAt, again.PaidAt)
}

func TestConfirmPaymentGuardUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guard := &fakeGuard{seen: map[string]bool{}, err: errors.New("redis down")}
	ledger := NewPaymentLedger(f.store, f.machine, "", WithPaymentClock(f.clock.Now), WithDeliveryGuard(guard))
	_, p := f.paidOrder(t, 300_000)

	got, err := ledger.ConfirmPayment(ctx, ConfirmPaymentInput{TransactionID: p.TransactionID, Status: ExternalStatusPaid, Amount: 300_000})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, got.Status)
}

func TestGetPaymentForOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.acceptedOrder(t, 300_000)

	p, err := f.payments.GetPaymentForOrder(ctx, o.ID, f.creator)
	require.NoError(t, err)
	assert.Nil(t, p, "no payment yet is not an error")

	created, err := f.payments.CreatePayment(ctx, f.brand, CreatePaymentInput{OrderID: o.ID, Method: model.PaymentMethodCard, Amount: 300_000})
	require.NoError(t, err)

	p, err = f.payments.GetPaymentForOrder(ctx, o.ID, f.brand)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, created.ID, p.ID)

	_, err = f.payments.GetPaymentForOrder(ctx, o.ID, f.other)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)

	_, err = f.payments.GetPaymentForOrder(ctx, "missing", f.brand)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}
