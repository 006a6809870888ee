package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarkers struct {
	keys   map[string]time.Duration
	setErr error
}

func (f *fakeMarkers) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.keys == nil {
		f.keys = map[string]time.Duration{}
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func (f *fakeMarkers) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.keys, k)
	}
	return nil
}

func TestIdempotencyGuard(t *testing.T) {
	ctx := context.Background()
	markers := &fakeMarkers{}
	guard, err := NewIdempotencyGuard(markers, time.Hour, "payment-webhook")
	require.NoError(t, err)

	seen, err := guard.CheckAndMark(ctx, "imp_abc:completed")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, time.Hour, markers.keys["makemodel:idempotency:payment-webhook:imp_abc:completed"])

	seen, err = guard.CheckAndMark(ctx, "imp_abc:completed")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Forget(ctx, "imp_abc:completed"))
	seen, err = guard.CheckAndMark(ctx, "imp_abc:completed")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestIdempotencyGuardErrors(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Hour, "x")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(&fakeMarkers{}, -time.Second, "x")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(&fakeMarkers{}, time.Hour, "")
	assert.Error(t, err)

	guard, err := NewIdempotencyGuard(&fakeMarkers{setErr: errors.New("down")}, time.Hour, "x")
	require.NoError(t, err)
	_, err = guard.CheckAndMark(context.Background(), "id")
	assert.Error(t, err)
	_, err = guard.CheckAndMark(context.Background(), "")
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "makemodel:a:b", Key("a", "b"))
}
