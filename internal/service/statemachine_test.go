package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makemodel/internal/apperr"
	"makemodel/internal/model"
	"makemodel/internal/store"
)

var allStatuses = []model.OrderStatus{
	model.OrderStatusPending,
	model.OrderStatusAccepted,
	model.OrderStatusRejected,
	model.OrderStatusInProgress,
	model.OrderStatusCompleted,
	model.OrderStatusCancelled,
}

func TestTargetFollowsTable(t *testing.T) {
	m := NewOrderStateMachine(nil, nil, nil, nil)

	want := map[model.OrderAction]map[model.OrderStatus]model.OrderStatus{
		model.ActionAccept:   {model.OrderStatusPending: model.OrderStatusAccepted},
		model.ActionReject:   {model.OrderStatusPending: model.OrderStatusRejected},
		model.ActionStart:    {model.OrderStatusAccepted: model.OrderStatusInProgress},
		model.ActionComplete: {model.OrderStatusInProgress: model.OrderStatusCompleted},
		model.ActionCancel: {
			model.OrderStatusPending:    model.OrderStatusCancelled,
			model.OrderStatusAccepted:   model.OrderStatusCancelled,
			model.OrderStatusInProgress: model.OrderStatusCancelled,
		},
	}

	for action, from := range want {
		for _, current := range allStatuses {
			next, err := m.Target(current, action)
			if expected, ok := from[current]; ok {
				require.NoError(t, err, "%s from %s", action, current)
				assert.Equal(t, expected, next, "%s from %s", action, current)
				continue
			}
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition), "%s from %s: %v", action, current, err)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	m := NewOrderStateMachine(nil, nil, nil, nil)
	for _, status := range allStatuses {
		if !status.Terminal() {
			continue
		}
		for action := range DefaultTransitionTable() {
			_, err := m.Target(status, action)
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition), "%s from %s", action, status)
		}
	}
}

func TestAuthorize(t *testing.T) {
	m := NewOrderStateMachine(nil, nil, nil, nil)

	tests := []struct {
		action model.OrderAction
		role   model.Role
		kind   apperr.Kind
	}{
		{model.ActionAccept, model.RoleCreator, ""},
		{model.ActionAccept, model.RoleBrand, apperr.KindForbidden},
		{model.ActionReject, model.RoleBrand, apperr.KindForbidden},
		{model.ActionStart, model.RoleCreator, ""},
		{model.ActionStart, model.RoleBrand, apperr.KindForbidden},
		{model.ActionComplete, model.RoleBrand, ""},
		{model.ActionComplete, model.RoleCreator, ""},
		{model.ActionComplete, model.RoleAdmin, apperr.KindForbidden},
		{model.ActionCancel, model.RoleBrand, ""},
		{model.ActionCancel, model.RoleCreator, apperr.KindForbidden},
		{"archive", model.RoleBrand, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.role), func(t *testing.T) {
			err := m.Authorize(tt.action, tt.role)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func seedOrder(t *testing.T, f *fixture, status model.OrderStatus) *model.Order {
	t.Helper()
	o := &model.Order{
		ID:          "order-" + string(status),
		BrandID:     f.brand.ID,
		CreatorID:   f.creator.ID,
		ModelID:     f.modelID,
		OrderNumber: "ORD-SEED-" + string(status),
		PackageType: model.PackageStandard,
		ImageCount:  1,
		TotalPrice:  1_000_000,
		Status:      status,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
	require.NoError(t, f.store.InTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertOrder(context.Background(), o)
	}))
	return o
}

func applyInTx(f *fixture, id string, action model.OrderAction, actor model.Actor) (*Transition, error) {
	ctx := context.Background()
	var tr *Transition
	err := f.store.InTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		tr, err = f.machine.Apply(ctx, tx, o, action, actor)
		return err
	})
	return tr, err
}

func TestApplyChecksRoleBeforeTransition(t *testing.T) {
	f := newFixture(t)
	o := seedOrder(t, f, model.OrderStatusCompleted)

	// accept from completed is also an invalid transition, but the role
	// failure is reported first.
	_, err := applyInTx(f, o.ID, model.ActionAccept, f.brand)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
}

func TestApplySetsAcceptedAtOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := seedOrder(t, f, model.OrderStatusPending)

	tr, err := applyInTx(f, o.ID, model.ActionAccept, f.creator)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, tr.From)
	assert.Equal(t, model.OrderStatusAccepted, tr.To)
	assert.Nil(t, tr.Settlement)

	got, err := f.store.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AcceptedAt)
	acceptedAt := *got.AcceptedAt
	assert.Equal(t, fixedNow, acceptedAt)
	assert.Nil(t, got.CompletedAt)

	f.clock.Advance(time.Hour)
	_, err = applyInTx(f, o.ID, model.ActionStart, f.creator)
	require.NoError(t, err)

	got, err = f.store.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, got.Status)
	assert.Equal(t, acceptedAt, *got.AcceptedAt)
	assert.Equal(t, fixedNow.Add(time.Hour), got.UpdatedAt)
}

func TestApplyCompleteCreatesSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := seedOrder(t, f, model.OrderStatusInProgress)

	tr, err := applyInTx(f, o.ID, model.ActionComplete, f.brand)
	require.NoError(t, err)
	require.NotNil(t, tr.Settlement)

	got, err := f.store.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	s, err := f.store.SettlementByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.Settlement.ID, s.ID)
	assert.Equal(t, int64(1_000_000), s.TotalAmount)
	assert.Equal(t, int64(100_000), s.PlatformFee)
	assert.Equal(t, int64(900_000), s.SettlementAmount)
	assert.Equal(t, model.SettlementStatusPending, s.Status)
	assert.Equal(t, f.creator.ID, s.CreatorID)
}

func TestCompletionRollsBackWhenSettlementFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := seedOrder(t, f, model.OrderStatusInProgress)

	// A settlement already present for the order makes the insert fail.
	require.NoError(t, f.store.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertSettlement(ctx, &model.Settlement{ID: "stale", OrderID: o.ID, CreatorID: f.creator.ID})
	}))

	_, err := applyInTx(f, o.ID, model.ActionComplete, f.creator)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)

	got, err := f.store.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestAdvanceSkipsRoleCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := seedOrder(t, f, model.OrderStatusAccepted)

	err := f.store.InTx(ctx, func(tx store.Tx) error {
		locked, err := tx.LockOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		_, err = f.machine.Advance(ctx, tx, locked, model.ActionStart)
		return err
	})
	require.NoError(t, err)

	got, err := f.store.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, got.Status)
}

func TestCompleteWithoutCalculatorFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := seedOrder(t, f, model.OrderStatusInProgress)
	m := NewOrderStateMachine(nil, nil, f.clock.Now, nil)

	err := f.store.InTx(ctx, func(tx store.Tx) error {
		locked, err := tx.LockOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		_, err = m.Apply(ctx, tx, locked, model.ActionComplete, f.brand)
		return err
	})
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindInternal, appErr.Kind())
}
