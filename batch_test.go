/*
Copyright 2024 RoutePay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package payrouter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routepay/payrouter/database"
	"github.com/routepay/payrouter/internal/apierror"
	"github.com/routepay/payrouter/model"
)

func TestSubmitBatchResultsInSubmissionOrder(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// Distinct amounts so every result can be traced back to its request.
	var reqs []*model.PayoutRequest
	for i := 1; i <= 12; i++ {
		reqs = append(reqs, testRequest(float64(i*10)))
	}

	result, err := router.SubmitBatch(context.Background(), reqs, model.StrategyOptimal)
	require.NoError(t, err)

	assert.Equal(t, model.BatchCompleted, result.Status)
	assert.Equal(t, 12, result.Total)
	assert.Equal(t, 12, result.Succeeded)
	require.Len(t, result.Results, 12)
	for i, item := range result.Results {
		assert.Equal(t, i, item.Index)
		require.NotNil(t, item.Payout)
		assert.Equal(t, reqs[i].PreciseAmount, item.Payout.PreciseAmount)
	}
}

// latencyStore delays payout writes by a per-record duration so workers
// finish in an order unrelated to submission order.
type latencyStore struct {
	database.IStore
	delay func(record interface{}) time.Duration
}

func (s *latencyStore) Put(ctx context.Context, kind, id string, record interface{}) error {
	if d := s.delay(record); d > 0 {
		time.Sleep(d)
	}
	return s.IStore.Put(ctx, kind, id, record)
}

func TestSubmitBatchOrderingWithVariedLatencies(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// Earlier submissions persist slower than later ones, so workers
	// complete in roughly the reverse of submission order.
	router.store = &latencyStore{
		IStore: router.store,
		delay: func(record interface{}) time.Duration {
			p, ok := record.(*model.Payout)
			if !ok {
				return 0
			}
			units := p.PreciseAmount / model.MinorUnitsPerUnit
			return time.Duration(130-units) * time.Millisecond
		},
	}

	var reqs []*model.PayoutRequest
	for i := 1; i <= 12; i++ {
		reqs = append(reqs, testRequest(float64(i*10)))
	}

	result, err := router.SubmitBatch(context.Background(), reqs, model.StrategyOptimal)
	require.NoError(t, err)

	assert.Equal(t, 12, result.Succeeded)
	require.Len(t, result.Results, 12)
	for i, item := range result.Results {
		assert.Equal(t, i, item.Index)
		require.NotNil(t, item.Payout)
		assert.Equal(t, reqs[i].PreciseAmount, item.Payout.PreciseAmount)
	}
}

func TestSubmitBatchPartialFailure(t *testing.T) {
	router, _, _ := newTestRouter(t)

	bad := testRequest(50)
	bad.RecipientAddress = "bogus"
	reqs := []*model.PayoutRequest{testRequest(10), bad, testRequest(30)}

	result, err := router.SubmitBatch(context.Background(), reqs, model.StrategyOptimal)
	require.NoError(t, err)

	assert.Equal(t, model.BatchPartialFailure, result.Status)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	require.Len(t, result.Results, 3)
	assert.NotNil(t, result.Results[0].Payout)
	assert.Nil(t, result.Results[1].Payout)
	assert.NotEmpty(t, result.Results[1].Error)
	assert.NotNil(t, result.Results[2].Payout)
}

func TestSubmitBatchAllFailed(t *testing.T) {
	router, _, _ := newTestRouter(t)

	var reqs []*model.PayoutRequest
	for i := 0; i < 3; i++ {
		bad := testRequest(50)
		bad.RecipientAddress = "bogus"
		reqs = append(reqs, bad)
	}

	result, err := router.SubmitBatch(context.Background(), reqs, "")
	require.NoError(t, err)
	assert.Equal(t, model.BatchFailed, result.Status)
	assert.Equal(t, 3, result.Failed)
}

func TestSubmitBatchValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)
	ctx := context.Background()

	_, err := router.SubmitBatch(ctx, nil, model.StrategyOptimal)
	assert.Equal(t, apierror.ErrValidation, apierror.CodeOf(err))

	var tooMany []*model.PayoutRequest
	for i := 0; i < 1001; i++ {
		tooMany = append(tooMany, testRequest(10))
	}
	_, err = router.SubmitBatch(ctx, tooMany, model.StrategyOptimal)
	assert.Equal(t, apierror.ErrValidation, apierror.CodeOf(err))

	_, err = router.SubmitBatch(ctx, []*model.PayoutRequest{testRequest(10)}, "yolo")
	assert.Equal(t, apierror.ErrValidation, apierror.CodeOf(err))
}

func TestSubmitBatchPersistsBatchRecord(t *testing.T) {
	router, _, _ := newTestRouter(t)
	ctx := context.Background()

	reqs := []*model.PayoutRequest{testRequest(10), testRequest(20)}
	result, err := router.SubmitBatch(ctx, reqs, model.StrategyFast)
	require.NoError(t, err)

	batch, err := router.GetBatch(ctx, result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyFast, batch.Strategy)
	assert.Equal(t, model.BatchCompleted, batch.Status)
	assert.Len(t, batch.PayoutIDs, 2)

	for _, id := range batch.PayoutIDs {
		payout, err := router.GetPayout(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, result.BatchID, payout.BatchID)
	}
}

func TestSubmitBatchTotalFee(t *testing.T) {
	router, _, _ := newTestRouter(t)

	reqs := []*model.PayoutRequest{testRequest(5000), testRequest(5000)}
	result, err := router.SubmitBatch(context.Background(), reqs, model.StrategyOptimal)
	require.NoError(t, err)

	assert.Equal(t, 2*model.ToMinorUnits(7.5), result.TotalFee)
}

func TestGetBatchNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	_, err := router.GetBatch(context.Background(), fmt.Sprintf("bat_%s", "missing"))
	assert.Equal(t, apierror.ErrNotFound, apierror.CodeOf(err))
}
