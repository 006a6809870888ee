package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"makemodel/internal/model"
	"makemodel/internal/store/memstore"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store    *memstore.Store
	clock    *clock
	numbers  *OrderNumberGenerator
	settle   *SettlementCalculator
	machine  *OrderStateMachine
	orders   *OrderService
	payments *PaymentLedger

	brand   model.Actor
	creator model.Actor
	other   model.Actor
	admin   model.Actor
	modelID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:   memstore.New(),
		clock:   &clock{t: fixedNow},
		brand:   model.Actor{ID: "brand-1", Role: model.RoleBrand},
		creator: model.Actor{ID: "creator-1", Role: model.RoleCreator},
		other:   model.Actor{ID: "brand-2", Role: model.RoleBrand},
		admin:   model.Actor{ID: "admin-1", Role: model.RoleAdmin},
		modelID: "model-1",
	}
	for _, a := range []model.Actor{f.brand, f.creator, f.other, f.admin} {
		require.NoError(t, f.store.CreateUser(ctx, &model.User{
			ID: a.ID, Email: a.ID + "@example.com", Nickname: a.ID, Role: a.Role, CreatedAt: fixedNow,
		}))
	}
	f.store.AddModel(f.modelID, f.creator.ID)

	var err error
	f.settle, err = NewSettlementCalculator(f.store, DefaultPlatformFeeRate, f.clock.Now, nil)
	require.NoError(t, err)
	f.numbers = NewOrderNumberGenerator(f.clock.Now)
	f.machine = NewOrderStateMachine(DefaultTransitionTable(), f.settle, f.clock.Now, nil)
	f.orders = NewOrderService(f.store, f.numbers, f.machine, f.clock.Now)
	f.payments = NewPaymentLedger(f.store, f.machine, "", WithPaymentClock(f.clock.Now))
	return f
}

func (f *fixture) orderInput(price int64) CreateOrderInput {
	return CreateOrderInput{
		ModelID:            f.modelID,
		CreatorID:          f.creator.ID,
		ConceptDescription: "autumn lookbook",
		PackageType:        model.PackageStandard,
		ImageCount:         10,
		TotalPrice:         price,
	}
}

func (f *fixture) createOrder(t *testing.T, price int64) *model.Order {
	t.Helper()
	o, err := f.orders.Create(context.Background(), f.brand, f.orderInput(price))
	require.NoError(t, err)
	return o
}

func (f *fixture) acceptedOrder(t *testing.T, price int64) *model.Order {
	t.Helper()
	o := f.createOrder(t, price)
	o, err := f.orders.Transition(context.Background(), o.ID, model.ActionAccept, f.creator)
	require.NoError(t, err)
	return o
}

func (f *fixture) paidOrder(t *testing.T, price int64) (*model.Order, *model.Payment) {
	t.Helper()
	ctx := context.Background()
	o := f.acceptedOrder(t, price)
	p, err := f.payments.CreatePayment(ctx, f.brand, CreatePaymentInput{OrderID: o.ID, Method: model.PaymentMethodCard, Amount: price})
	require.NoError(t, err)
	o, err = f.store.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	return o, p
}
