// Package memstore is an in-process store.Store used by tests and local
// runs without Postgres. Transactions are serialized by a single lock and
// applied to a copy of the state, which is swapped in on success.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"makemodel/internal/model"
	"makemodel/internal/store"
)

type state struct {
	users       map[string]model.User
	models      map[string]string // model id -> creator id
	orders      map[string]model.Order
	payments    map[string]model.Payment
	settlements map[string]model.Settlement
}

func newState() *state {
	return &state{
		users:       map[string]model.User{},
		models:      map[string]string{},
		orders:      map[string]model.Order{},
		payments:    map[string]model.Payment{},
		settlements: map[string]model.Settlement{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.models {
		c.models[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.payments {
		c.payments[k] = copyPayment(v)
	}
	for k, v := range s.settlements {
		c.settlements[k] = copySettlement(v)
	}
	return c
}

type Store struct {
	mu sync.RWMutex
	st *state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

// AddModel registers an AI model owned by creatorID.
func (s *Store) AddModel(id, creatorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.models[id] = creatorID
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) OrderByID(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := copyOrder(o)
	return &c, nil
}

func (s *Store) ListOrders(_ context.Context, filter store.OrderFilter, page store.Page) ([]model.Order, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Order
	for _, o := range s.st.orders {
		if filter.BrandID != "" && o.BrandID != filter.BrandID {
			continue
		}
		if filter.CreatorID != "" && o.CreatorID != filter.CreatorID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, copyOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool {
		return newer(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})
	return paginate(matched, page), len(matched), nil
}

func (s *Store) PaymentByOrder(_ context.Context, orderID string) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentByOrder(s.st, orderID)
}

func (s *Store) PaymentByTransaction(_ context.Context, transactionID string) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentByTransaction(s.st, transactionID)
}

func (s *Store) SettlementByID(_ context.Context, id string) (*model.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.st.settlements[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := copySettlement(st)
	return &c, nil
}

func (s *Store) SettlementByOrder(_ context.Context, orderID string) (*model.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.st.settlements {
		if st.OrderID == orderID {
			c := copySettlement(st)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListSettlements(_ context.Context, creatorID string, page store.Page) ([]model.Settlement, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Settlement
	for _, st := range s.st.settlements {
		if st.CreatorID == creatorID {
			matched = append(matched, copySettlement(st))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return newer(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})
	return paginate(matched, page), len(matched), nil
}

func (s *Store) SettlementSummary(_ context.Context, creatorID string) (*model.SettlementSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum model.SettlementSummary
	for _, st := range s.st.settlements {
		if st.CreatorID != creatorID {
			continue
		}
		sum.TotalCount++
		sum.TotalPlatformFee += st.PlatformFee
		switch st.Status {
		case model.SettlementStatusPending:
			sum.PendingAmount += st.SettlementAmount
		case model.SettlementStatusCompleted:
			sum.CompletedAmount += st.SettlementAmount
		}
	}
	return &sum, nil
}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.st.users {
		if strings.EqualFold(u.Email, email) {
			c := u
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) ModelExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.st.models[id]
	return ok, nil
}

func newer(a, b time.Time, idA, idB string) bool {
	if a.Equal(b) {
		return idA > idB
	}
	return a.After(b)
}

func paginate[T any](items []T, page store.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if page.Limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
