package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"makemodel/internal/apperr"
	"makemodel/internal/metrics"
	"makemodel/internal/model"
	"makemodel/internal/store"
)

const DefaultPaymentProvider = "portone"

// External statuses reported by the provider callback.
const (
	ExternalStatusPaid   = "paid"
	ExternalStatusFailed = "failed"
)

var externalStatusMap = map[string]model.PaymentStatus{
	ExternalStatusPaid:   model.PaymentStatusCompleted,
	ExternalStatusFailed: model.PaymentStatusFailed,
}

// DeliveryGuard recognises provider callbacks that were already handled.
type DeliveryGuard interface {
	CheckAndMark(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type PaymentLedger struct {
	store    store.Store
	machine  *OrderStateMachine
	provider string
	guard    DeliveryGuard
	now      func() time.Time
	newTxnID func() string
	metrics  *metrics.Recorder
}

type PaymentLedgerOption func(*PaymentLedger)

func WithDeliveryGuard(g DeliveryGuard) PaymentLedgerOption {
	return func(l *PaymentLedger) { l.guard = g }
}

func WithPaymentClock(now func() time.Time) PaymentLedgerOption {
	return func(l *PaymentLedger) { l.now = now }
}

func WithPaymentMetrics(rec *metrics.Recorder) PaymentLedgerOption {
	return func(l *PaymentLedger) { l.metrics = rec }
}

func NewPaymentLedger(st store.Store, machine *OrderStateMachine, provider string, opts ...PaymentLedgerOption) *PaymentLedger {
	if provider == "" {
		provider = DefaultPaymentProvider
	}
	l := &PaymentLedger{
		store:    st,
		machine:  machine,
		provider: provider,
		now:      time.Now,
		newTxnID: newTransactionID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// newTransactionID mimics the provider's imp_uid format.
func newTransactionID() string {
	return "imp_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

type CreatePaymentInput struct {
	OrderID string
	Method  model.PaymentMethod
	Amount  int64
}

// CreatePayment opens the single payment of an accepted order and moves the
// order to in_progress in the same transaction.
func (l *PaymentLedger) CreatePayment(ctx context.Context, actor model.Actor, in CreatePaymentInput) (*model.Payment, error) {
	if actor.Role != model.RoleBrand {
		return nil, apperr.New(apperr.KindForbidden, "only brand users can create payments")
	}
	if !in.Method.Valid() {
		return nil, apperr.New(apperr.KindValidation, "payment_method must be one of card, transfer")
	}
	if in.Amount <= 0 {
		return nil, apperr.New(apperr.KindValidation, "amount must be positive")
	}

	var (
		payment *model.Payment
		tr      *Transition
	)
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		order, err := tx.LockOrder(ctx, in.OrderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.New(apperr.KindNotFound, "order not found")
			}
			return fmt.Errorf("load order: %w", err)
		}
		if order.BrandID != actor.ID {
			return apperr.New(apperr.KindForbidden, "you do not have access to this order")
		}

		// The existing payment is checked before the status, since creating it
		// is what moved the order out of accepted.
		if _, err := tx.PaymentByOrder(ctx, order.ID); err == nil {
			return apperr.New(apperr.KindConflict, "payment already exists for this order")
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("check existing payment: %w", err)
		}

		if order.Status != model.OrderStatusAccepted {
			return apperr.Newf(apperr.KindInvalidState,
				"order status must be %q to create payment, current status is %q", model.OrderStatusAccepted, order.Status)
		}
		if in.Amount != order.TotalPrice {
			return apperr.Newf(apperr.KindValidation, "amount %d does not match order total %d", in.Amount, order.TotalPrice)
		}

		payment = &model.Payment{
			ID:            uuid.NewString(),
			OrderID:       order.ID,
			Provider:      l.provider,
			Method:        in.Method,
			Amount:        in.Amount,
			Status:        model.PaymentStatusPending,
			TransactionID: l.newTxnID(),
			CreatedAt:     l.now().UTC(),
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Wrap(apperr.KindConflict, err, "payment already exists for this order")
			}
			return fmt.Errorf("create payment: %w", err)
		}

		tr, err = l.machine.Advance(ctx, tx, order, model.ActionStart)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.machine.Committed(tr)
	l.metrics.PaymentCreated(string(payment.Method))
	slog.Info("payment created", "payment_id", payment.ID, "order_id", payment.OrderID,
		"transaction_id", payment.TransactionID, "amount", payment.Amount)
	return payment, nil
}

type ConfirmPaymentInput struct {
	TransactionID    string
	ExternalOrderRef string
	Status           string
	Amount           int64
}

// ConfirmPayment applies a provider callback. Delivering the same terminal
// status again returns the stored payment unchanged.
func (l *PaymentLedger) ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) (*model.Payment, error) {
	target, ok := externalStatusMap[in.Status]
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, "unknown webhook status: %q", in.Status)
	}
	if in.TransactionID == "" {
		return nil, apperr.New(apperr.KindValidation, "transaction_id is required")
	}

	deliveryID := in.TransactionID + ":" + string(target)
	marked := false
	if l.guard != nil {
		seen, err := l.guard.CheckAndMark(ctx, deliveryID)
		switch {
		case err != nil:
			slog.Warn("webhook dedupe unavailable", "transaction_id", in.TransactionID, "error", err)
		case seen:
			if p, err := l.store.PaymentByTransaction(ctx, in.TransactionID); err == nil && p.Status == target {
				l.metrics.PaymentConfirmation(string(target), "duplicate")
				return p, nil
			}
		default:
			marked = true
		}
	}

	payment, applied, err := l.confirm(ctx, in, target)
	if err != nil {
		if marked {
			if ferr := l.guard.Forget(ctx, deliveryID); ferr != nil {
				slog.Warn("failed to clear webhook marker", "transaction_id", in.TransactionID, "error", ferr)
			}
		}
		return nil, err
	}

	outcome := "duplicate"
	if applied {
		outcome = "applied"
		slog.Info("payment confirmed", "payment_id", payment.ID, "transaction_id", payment.TransactionID, "status", payment.Status)
	}
	l.metrics.PaymentConfirmation(string(target), outcome)
	return payment, nil
}

func (l *PaymentLedger) confirm(ctx context.Context, in ConfirmPaymentInput, target model.PaymentStatus) (*model.Payment, bool, error) {
	var (
		payment *model.Payment
		applied bool
	)
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		p, err := tx.LockPaymentByTransaction(ctx, in.TransactionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Newf(apperr.KindNotFound, "payment with transaction_id %q not found", in.TransactionID)
			}
			return fmt.Errorf("load payment: %w", err)
		}
		if in.ExternalOrderRef != "" && in.ExternalOrderRef != p.OrderID {
			return apperr.New(apperr.KindValidation, "external_order_ref does not match payment order")
		}
		if in.Amount != p.Amount {
			return apperr.Newf(apperr.KindValidation, "amount %d does not match payment amount %d", in.Amount, p.Amount)
		}

		payment = p
		if p.Status == target {
			return nil
		}
		if p.Status != model.PaymentStatusPending {
			return apperr.Newf(apperr.KindInvalidState, "payment is already %q", p.Status)
		}

		p.Status = target
		if target == model.PaymentStatusCompleted {
			now := l.now().UTC()
			p.PaidAt = &now
		}
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return payment, applied, nil
}

// GetPaymentForOrder returns the order's payment, or nil when none has been
// created yet.
func (l *PaymentLedger) GetPaymentForOrder(ctx context.Context, orderID string, actor model.Actor) (*model.Payment, error) {
	order, err := l.store.OrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "order not found")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if !order.HasParty(actor.ID) {
		return nil, apperr.New(apperr.KindForbidden, "you do not have access to this order's payment")
	}

	payment, err := l.store.PaymentByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return payment, nil
}
