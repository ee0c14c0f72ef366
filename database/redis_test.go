package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routepay/payrouter/model"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client)
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payout := &model.Payout{
		PayoutID:      "po_1",
		PreciseAmount: model.ToMinorUnits(100),
		Status:        model.StatusCreated,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.Put(ctx, KindPayouts, payout.PayoutID, payout))

	var got model.Payout
	require.NoError(t, store.Get(ctx, KindPayouts, "po_1", &got))
	assert.Equal(t, payout.PayoutID, got.PayoutID)
	assert.Equal(t, payout.PreciseAmount, got.PreciseAmount)
	assert.Equal(t, payout.Status, got.Status)
}

func TestGetMissingRecord(t *testing.T) {
	store := newTestStore(t)

	var got model.Payout
	err := store.Get(context.Background(), KindPayouts, "po_missing", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payout := &model.Payout{PayoutID: "po_1", Status: model.StatusCreated}
	require.NoError(t, store.Put(ctx, KindPayouts, payout.PayoutID, payout))

	payout.Status = model.StatusDispatched
	require.NoError(t, store.Put(ctx, KindPayouts, payout.PayoutID, payout))

	var got model.Payout
	require.NoError(t, store.Get(ctx, KindPayouts, "po_1", &got))
	assert.Equal(t, model.StatusDispatched, got.Status)
}

func TestQueryWithFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range []*model.Payout{
		{PayoutID: "po_1", Status: model.StatusCompleted},
		{PayoutID: "po_2", Status: model.StatusFailed},
		{PayoutID: "po_3", Status: model.StatusCompleted},
	} {
		require.NoError(t, store.Put(ctx, KindPayouts, p.PayoutID, p))
	}

	records, err := store.Query(ctx, KindPayouts, Filter{Field: "status", Value: model.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	for _, raw := range records {
		var p model.Payout
		require.NoError(t, json.Unmarshal(raw, &p))
		assert.Equal(t, model.StatusCompleted, p.Status)
	}

	all, err := store.Query(ctx, KindPayouts, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestKindsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, KindPayouts, "id_1", &model.Payout{PayoutID: "id_1"}))
	require.NoError(t, store.Put(ctx, KindRefunds, "id_1", &model.Refund{RefundID: "id_1"}))

	payouts, err := store.Query(ctx, KindPayouts, Filter{})
	require.NoError(t, err)
	refunds, err := store.Query(ctx, KindRefunds, Filter{})
	require.NoError(t, err)
	assert.Len(t, payouts, 1)
	assert.Len(t, refunds, 1)
}
