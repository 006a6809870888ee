// Package store defines the persistence contract for orders, payments and
// settlements. Writes that must be atomic go through Store.InTx.
package store

import (
	"context"
	"errors"

	"makemodel/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a 1-based offset page.
type Page struct {
	Number int
	Limit  int
}

func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// OrderFilter scopes an order listing. Empty fields do not filter.
type OrderFilter struct {
	BrandID   string
	CreatorID string
	Status    model.OrderStatus
}

// Tx is the set of operations available inside one transaction.
// LockOrder and LockPaymentByTransaction take a row lock held until the
// transaction ends.
type Tx interface {
	CountOrdersWithNumberPrefix(ctx context.Context, prefix string) (int, error)
	InsertOrder(ctx context.Context, order *model.Order) error
	LockOrder(ctx context.Context, id string) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, order *model.Order) error

	PaymentByOrder(ctx context.Context, orderID string) (*model.Payment, error)
	LockPaymentByTransaction(ctx context.Context, transactionID string) (*model.Payment, error)
	InsertPayment(ctx context.Context, payment *model.Payment) error
	UpdatePayment(ctx context.Context, payment *model.Payment) error

	InsertSettlement(ctx context.Context, settlement *model.Settlement) error
}

type Store interface {
	// InTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	OrderByID(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter, page Page) ([]model.Order, int, error)

	PaymentByOrder(ctx context.Context, orderID string) (*model.Payment, error)
	PaymentByTransaction(ctx context.Context, transactionID string) (*model.Payment, error)

	SettlementByID(ctx context.Context, id string) (*model.Settlement, error)
	SettlementByOrder(ctx context.Context, orderID string) (*model.Settlement, error)
	ListSettlements(ctx context.Context, creatorID string, page Page) ([]model.Settlement, int, error)
	SettlementSummary(ctx context.Context, creatorID string) (*model.SettlementSummary, error)

	CreateUser(ctx context.Context, user *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	ModelExists(ctx context.Context, id string) (bool, error)

	Ping(ctx context.Context) error
}
