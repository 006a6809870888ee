package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"makemodel/internal/apperr"
	"makemodel/internal/metrics"
	"makemodel/internal/model"
	"makemodel/internal/store"
)

// TransitionRule maps the statuses an action is valid from to the status it
// produces, and lists the roles allowed to invoke it.
type TransitionRule struct {
	From  map[model.OrderStatus]model.OrderStatus
	Roles map[model.Role]bool
}

// TransitionTable is keyed by action. It is the only source of order status
// changes.
type TransitionTable map[model.OrderAction]TransitionRule

func DefaultTransitionTable() TransitionTable {
	return TransitionTable{
		model.ActionAccept: {
			From:  map[model.OrderStatus]model.OrderStatus{model.OrderStatusPending: model.OrderStatusAccepted},
			Roles: map[model.Role]bool{model.RoleCreator: true},
		},
		model.ActionReject: {
			From:  map[model.OrderStatus]model.OrderStatus{model.OrderStatusPending: model.OrderStatusRejected},
			Roles: map[model.Role]bool{model.RoleCreator: true},
		},
		model.ActionStart: {
			From:  map[model.OrderStatus]model.OrderStatus{model.OrderStatusAccepted: model.OrderStatusInProgress},
			Roles: map[model.Role]bool{model.RoleCreator: true},
		},
		model.ActionComplete: {
			From:  map[model.OrderStatus]model.OrderStatus{model.OrderStatusInProgress: model.OrderStatusCompleted},
			Roles: map[model.Role]bool{model.RoleBrand: true, model.RoleCreator: true},
		},
		model.ActionCancel: {
			From: map[model.OrderStatus]model.OrderStatus{
				model.OrderStatusPending:    model.OrderStatusCancelled,
				model.OrderStatusAccepted:   model.OrderStatusCancelled,
				model.OrderStatusInProgress: model.OrderStatusCancelled,
			},
			Roles: map[model.Role]bool{model.RoleBrand: true},
		},
	}
}

type OrderStateMachine struct {
	table       TransitionTable
	settlements *SettlementCalculator
	now         func() time.Time
	metrics     *metrics.Recorder
}

func NewOrderStateMachine(table TransitionTable, settlements *SettlementCalculator, now func() time.Time, rec *metrics.Recorder) *OrderStateMachine {
	if table == nil {
		table = DefaultTransitionTable()
	}
	if now == nil {
		now = time.Now
	}
	return &OrderStateMachine{table: table, settlements: settlements, now: now, metrics: rec}
}

// Authorize checks that role may invoke action at all.
func (m *OrderStateMachine) Authorize(action model.OrderAction, role model.Role) error {
	rule, ok := m.table[action]
	if !ok {
		return apperr.Newf(apperr.KindValidation, "unknown action %q", action)
	}
	if !rule.Roles[role] {
		return apperr.Newf(apperr.KindForbidden, "role %q is not allowed to perform %q", role, action)
	}
	return nil
}

// Target returns the status action leads to from current.
func (m *OrderStateMachine) Target(current model.OrderStatus, action model.OrderAction) (model.OrderStatus, error) {
	rule, ok := m.table[action]
	if !ok {
		return "", apperr.Newf(apperr.KindValidation, "unknown action %q", action)
	}
	next, ok := rule.From[current]
	if !ok {
		return "", apperr.Newf(apperr.KindInvalidTransition, "cannot perform %q on order with status %q", action, current)
	}
	return next, nil
}

// Transition describes one applied status change.
type Transition struct {
	OrderID    string
	Action     model.OrderAction
	From       model.OrderStatus
	To         model.OrderStatus
	Settlement *model.Settlement
}

// Apply authorizes actor for action, then moves order to its next status
// inside tx. The caller must hold the order row lock and must already have
// checked that actor is a party to the order. A completed order gets its
// settlement in the same transaction.
func (m *OrderStateMachine) Apply(ctx context.Context, tx store.Tx, order *model.Order, action model.OrderAction, actor model.Actor) (*Transition, error) {
	if err := m.Authorize(action, actor.Role); err != nil {
		return nil, err
	}
	return m.advance(ctx, tx, order, action)
}

// Advance applies action on behalf of the platform itself, skipping the role
// check but not the transition table.
func (m *OrderStateMachine) Advance(ctx context.Context, tx store.Tx, order *model.Order, action model.OrderAction) (*Transition, error) {
	return m.advance(ctx, tx, order, action)
}

func (m *OrderStateMachine) advance(ctx context.Context, tx store.Tx, order *model.Order, action model.OrderAction) (*Transition, error) {
	next, err := m.Target(order.Status, action)
	if err != nil {
		return nil, err
	}

	tr := &Transition{OrderID: order.ID, Action: action, From: order.Status, To: next}
	now := m.now().UTC()
	order.Status = next
	order.UpdatedAt = now
	switch next {
	case model.OrderStatusAccepted:
		if order.AcceptedAt == nil {
			order.AcceptedAt = &now
		}
	case model.OrderStatusCompleted:
		order.CompletedAt = &now
	}

	if err := tx.UpdateOrderStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order status: %w", err)
	}

	if next == model.OrderStatusCompleted {
		if m.settlements == nil {
			return nil, apperr.New(apperr.KindInternal, "settlement calculator not configured")
		}
		tr.Settlement, err = m.settlements.create(ctx, tx, order)
		if err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// Committed records a transition once its transaction has been committed.
func (m *OrderStateMachine) Committed(tr *Transition) {
	if tr == nil {
		return
	}
	m.metrics.Transition(string(tr.Action), string(tr.To))
	slog.Info("order transitioned", "order_id", tr.OrderID, "action", tr.Action, "from", tr.From, "to", tr.To)
	if tr.Settlement != nil {
		m.settlements.committed(tr.Settlement)
	}
}
