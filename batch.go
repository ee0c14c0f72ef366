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
	"sync"

	"github.com/routepay/payrouter/config"
	"github.com/routepay/payrouter/database"
	"github.com/routepay/payrouter/internal/apierror"
	"github.com/routepay/payrouter/model"
)

type batchJob struct {
	index int
	req   *model.PayoutRequest
}

// SubmitBatch fans a batch of payout requests out over a bounded worker pool.
// One request failing never aborts its siblings, and results always come back
// in submission order regardless of which worker finished first.
func (l *PayRouter) SubmitBatch(ctx context.Context, reqs []*model.PayoutRequest, strategy string) (*model.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "Submitting payout batch")
	defer span.End()

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if len(reqs) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrValidation, "batch must contain at least one payout", nil)
	}
	if len(reqs) > conf.Batch.MaxSize {
		return nil, apierror.NewAPIError(apierror.ErrValidation,
			fmt.Sprintf("batch size %d exceeds maximum of %d", len(reqs), conf.Batch.MaxSize), nil)
	}
	if strategy == "" {
		strategy = model.StrategyOptimal
	}
	if !model.ValidStrategy(strategy) {
		return nil, apierror.NewAPIError(apierror.ErrValidation, fmt.Sprintf("unknown strategy %q", strategy), nil)
	}

	now := l.clock.Now()
	batch := &model.Batch{
		BatchID:   model.GenerateUUIDWithSuffix("bat"),
		Strategy:  strategy,
		Total:     len(reqs),
		Status:    model.BatchProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.Put(ctx, database.KindBatches, batch.BatchID, batch); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrPersistence, "failed to persist batch", err)
	}
	l.SendWebhook(ctx, EventBatchCreated, batch)

	workers := conf.Batch.Workers
	if workers > len(reqs) {
		workers = len(reqs)
	}

	jobs := make(chan batchJob)
	results := make([]model.BatchItemResult, len(reqs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				payout, err := l.createPayout(ctx, job.req, strategy, batch.BatchID)
				if err != nil {
					results[job.index] = model.BatchItemResult{Index: job.index, Error: err.Error()}
					continue
				}
				results[job.index] = model.BatchItemResult{Index: job.index, Payout: payout}
			}
		}()
	}

	for i, req := range reqs {
		jobs <- batchJob{index: i, req: req}
	}
	close(jobs)
	wg.Wait()

	var totalFee int64
	failed := 0
	for _, r := range results {
		if r.Payout == nil {
			failed++
			continue
		}
		totalFee += r.Payout.Fee
		batch.PayoutIDs = append(batch.PayoutIDs, r.Payout.PayoutID)
	}

	batch.Succeeded = batch.Total - failed
	batch.Failed = failed
	batch.Status = model.AggregateStatus(batch.Total, failed)
	batch.UpdatedAt = l.clock.Now()
	if err := l.store.Put(ctx, database.KindBatches, batch.BatchID, batch); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrPersistence, "failed to persist batch result", err)
	}

	result := &model.BatchResult{
		BatchID:   batch.BatchID,
		Total:     batch.Total,
		Succeeded: batch.Succeeded,
		Failed:    batch.Failed,
		Status:    batch.Status,
		Results:   results,
		TotalFee:  totalFee,
		CreatedAt: batch.CreatedAt,
	}
	l.SendWebhook(ctx, EventBatchCompleted, result)
	return result, nil
}

// GetBatch returns a batch record by ID.
func (l *PayRouter) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	var batch model.Batch
	err := l.store.Get(ctx, database.KindBatches, batchID, &batch)
	if err == database.ErrNotFound {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("batch %s not found", batchID), nil)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrPersistence, "failed to read batch", err)
	}
	return &batch, nil
}
