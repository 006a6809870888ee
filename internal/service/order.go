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
	"makemodel/internal/model"
	"makemodel/internal/store"
)

// orderNumberAttempts bounds retries when a concurrent creation took the
// same order number.
const orderNumberAttempts = 3

type OrderService struct {
	store   store.Store
	numbers *OrderNumberGenerator
	machine *OrderStateMachine
	now     func() time.Time
}

func NewOrderService(st store.Store, numbers *OrderNumberGenerator, machine *OrderStateMachine, now func() time.Time) *OrderService {
	if now == nil {
		now = time.Now
	}
	return &OrderService{store: st, numbers: numbers, machine: machine, now: now}
}

type CreateOrderInput struct {
	ModelID            string
	CreatorID          string
	ConceptDescription string
	PackageType        model.PackageType
	ImageCount         int
	IsExclusive        bool
	ExclusiveMonths    *int
	TotalPrice         int64
}

func (in CreateOrderInput) validate() error {
	details := map[string]string{}
	if strings.TrimSpace(in.ModelID) == "" {
		details["model_id"] = "is required"
	}
	if strings.TrimSpace(in.CreatorID) == "" {
		details["creator_id"] = "is required"
	}
	if strings.TrimSpace(in.ConceptDescription) == "" {
		details["concept_description"] = "is required"
	}
	if !in.PackageType.Valid() {
		details["package_type"] = "must be one of standard, premium, exclusive"
	}
	if in.ImageCount < 1 {
		details["image_count"] = "must be at least 1"
	}
	if in.TotalPrice < 0 {
		details["total_price"] = "must not be negative"
	}
	if in.ExclusiveMonths != nil && *in.ExclusiveMonths < 1 {
		details["exclusive_months"] = "must be at least 1"
	}
	if len(details) > 0 {
		return apperr.New(apperr.KindValidation, "invalid order").WithDetails(details)
	}
	return nil
}

// Create places a pending order from a brand to a creator.
func (s *OrderService) Create(ctx context.Context, actor model.Actor, in CreateOrderInput) (*model.Order, error) {
	if actor.Role != model.RoleBrand {
		return nil, apperr.New(apperr.KindForbidden, "only brand users can create orders")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	exists, err := s.store.ModelExists(ctx, in.ModelID)
	if err != nil {
		return nil, fmt.Errorf("check model: %w", err)
	}
	if !exists {
		return nil, apperr.New(apperr.KindNotFound, "model not found")
	}

	creator, err := s.store.UserByID(ctx, in.CreatorID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load creator: %w", err)
	}
	if creator == nil || creator.Role != model.RoleCreator {
		return nil, apperr.New(apperr.KindValidation, "creator_id does not reference a creator").
			WithDetails(map[string]string{"creator_id": "must reference a creator account"})
	}

	var order *model.Order
	for attempt := 1; ; attempt++ {
		order, err = s.insert(ctx, actor, in)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		if attempt == orderNumberAttempts {
			return nil, apperr.Wrap(apperr.KindConflict, err, "could not allocate an order number, retry the request")
		}
		slog.Warn("order number taken, retrying", "attempt", attempt, "error", err)
	}

	slog.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber,
		"brand_id", order.BrandID, "creator_id", order.CreatorID)
	return order, nil
}

func (s *OrderService) insert(ctx context.Context, actor model.Actor, in CreateOrderInput) (*model.Order, error) {
	var order *model.Order
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		number, err := s.numbers.Next(ctx, tx)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		order = &model.Order{
			ID:                 uuid.NewString(),
			BrandID:            actor.ID,
			CreatorID:          in.CreatorID,
			ModelID:            in.ModelID,
			OrderNumber:        number,
			ConceptDescription: strings.TrimSpace(in.ConceptDescription),
			PackageType:        in.PackageType,
			ImageCount:         in.ImageCount,
			IsExclusive:        in.IsExclusive,
			ExclusiveMonths:    in.ExclusiveMonths,
			TotalPrice:         in.TotalPrice,
			Status:             model.OrderStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Get returns the order if actor is one of its parties or an admin.
func (s *OrderService) Get(ctx context.Context, id string, actor model.Actor) (*model.Order, error) {
	order, err := s.store.OrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "order not found")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if actor.Role != model.RoleAdmin && !order.HasParty(actor.ID) {
		return nil, apperr.New(apperr.KindForbidden, "you do not have access to this order")
	}
	return order, nil
}

type OrderPage struct {
	Items []model.Order `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// List returns the orders visible to actor: brands see what they placed,
// creators what they received, admins everything.
func (s *OrderService) List(ctx context.Context, actor model.Actor, status model.OrderStatus, page store.Page) (*OrderPage, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown order status %q", status)
	}

	filter := store.OrderFilter{Status: status}
	switch actor.Role {
	case model.RoleBrand:
		filter.BrandID = actor.ID
	case model.RoleCreator:
		filter.CreatorID = actor.ID
	case model.RoleAdmin:
	default:
		return nil, apperr.New(apperr.KindForbidden, "unknown role")
	}

	items, total, err := s.store.ListOrders(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &OrderPage{Items: items, Total: total, Page: page.Number, Limit: page.Limit}, nil
}

// Transition applies action to the order under its row lock.
func (s *OrderService) Transition(ctx context.Context, id string, action model.OrderAction, actor model.Actor) (*model.Order, error) {
	if !action.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown action %q", action)
	}

	var (
		order *model.Order
		tr    *Transition
	)
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.LockOrder(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.New(apperr.KindNotFound, "order not found")
			}
			return fmt.Errorf("load order: %w", err)
		}
		if !order.HasParty(actor.ID) {
			return apperr.New(apperr.KindForbidden, "you do not have access to this order")
		}
		tr, err = s.machine.Apply(ctx, tx, order, action, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.machine.Committed(tr)
	return order, nil
}
