package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// IdempotencyGuard remembers delivery ids for ttl so repeated provider
// callbacks can be recognised before they reach the database.
type IdempotencyGuard struct {
	store markerStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store markerStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark returns true when id was already marked.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("delivery id is required")
	}
	set, err := g.store.SetNX(ctx, Key("idempotency", g.scope, id), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Forget drops the marker so a failed delivery can be retried.
func (g *IdempotencyGuard) Forget(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("delivery id is required")
	}
	return g.store.Del(ctx, Key("idempotency", g.scope, id))
}
