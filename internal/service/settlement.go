package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"makemodel/internal/apperr"
	"makemodel/internal/metrics"
	"makemodel/internal/model"
	"makemodel/internal/store"
)

// DefaultPlatformFeeRate is the share of a completed order kept by the platform.
var DefaultPlatformFeeRate = decimal.RequireFromString("0.10")

// SettlementCalculator computes creator payouts. Settlements are only created
// by OrderStateMachine when an order completes; the exported methods are
// reads scoped to the calling creator.
type SettlementCalculator struct {
	store   store.Store
	feeRate decimal.Decimal
	now     func() time.Time
	metrics *metrics.Recorder
}

func NewSettlementCalculator(st store.Store, feeRate decimal.Decimal, now func() time.Time, rec *metrics.Recorder) (*SettlementCalculator, error) {
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("platform fee rate must be in [0, 1), got %s", feeRate)
	}
	if now == nil {
		now = time.Now
	}
	return &SettlementCalculator{store: st, feeRate: feeRate, now: now, metrics: rec}, nil
}

func (c *SettlementCalculator) FeeRate() decimal.Decimal {
	return c.feeRate
}

// Split returns floor(total * rate) and the remainder paid to the creator.
func (c *SettlementCalculator) Split(total int64) (fee, payout int64) {
	fee = decimal.NewFromInt(total).Mul(c.feeRate).Floor().IntPart()
	return fee, total - fee
}

// Compute builds the pending settlement for order without persisting it.
func (c *SettlementCalculator) Compute(order *model.Order) *model.Settlement {
	now := c.now().UTC()
	fee, payout := c.Split(order.TotalPrice)
	return &model.Settlement{
		ID:               uuid.NewString(),
		CreatorID:        order.CreatorID,
		OrderID:          order.ID,
		TotalAmount:      order.TotalPrice,
		PlatformFee:      fee,
		SettlementAmount: payout,
		Status:           model.SettlementStatusPending,
		RequestedAt:      &now,
		CreatedAt:        now,
	}
}

func (c *SettlementCalculator) create(ctx context.Context, tx store.Tx, order *model.Order) (*model.Settlement, error) {
	settlement := c.Compute(order)
	if err := tx.InsertSettlement(ctx, settlement); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "settlement already exists for this order")
		}
		return nil, fmt.Errorf("create settlement: %w", err)
	}
	return settlement, nil
}

func (c *SettlementCalculator) committed(settlement *model.Settlement) {
	c.metrics.SettlementCreated(settlement.SettlementAmount)
	slog.Info("settlement created",
		"settlement_id", settlement.ID,
		"order_id", settlement.OrderID,
		"total_amount", settlement.TotalAmount,
		"platform_fee", settlement.PlatformFee,
		"settlement_amount", settlement.SettlementAmount,
	)
}

func requireCreator(actor model.Actor) error {
	if actor.Role != model.RoleCreator {
		return apperr.New(apperr.KindForbidden, "only creators can view settlements")
	}
	return nil
}

type SettlementPage struct {
	Items []model.Settlement `json:"items"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// List returns the caller's settlements, newest first.
func (c *SettlementCalculator) List(ctx context.Context, actor model.Actor, page store.Page) (*SettlementPage, error) {
	if err := requireCreator(actor); err != nil {
		return nil, err
	}
	items, total, err := c.store.ListSettlements(ctx, actor.ID, page)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	return &SettlementPage{Items: items, Total: total, Page: page.Number, Limit: page.Limit}, nil
}

func (c *SettlementCalculator) Get(ctx context.Context, id string, actor model.Actor) (*model.Settlement, error) {
	settlement, err := c.store.SettlementByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "settlement not found")
		}
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	if settlement.CreatorID != actor.ID {
		return nil, apperr.New(apperr.KindForbidden, "you do not have access to this settlement")
	}
	return settlement, nil
}

func (c *SettlementCalculator) Summary(ctx context.Context, actor model.Actor) (*model.SettlementSummary, error) {
	if err := requireCreator(actor); err != nil {
		return nil, err
	}
	sum, err := c.store.SettlementSummary(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("settlement summary: %w", err)
	}
	return sum, nil
}
