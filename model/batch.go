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

package model

import "time"

// Batch statuses. A batch with some failures and some successes lands in
// partial_failure rather than failing the whole submission.
const (
	BatchProcessing     = "PROCESSING"
	BatchCompleted      = "COMPLETED"
	BatchPartialFailure = "PARTIAL_FAILURE"
	BatchFailed         = "FAILED"
)

// Routing strategies accepted on batch submission. The strategy is a selection
// hint consumed by the selector's tie-break step.
const (
	StrategyOptimal       = "optimal"
	StrategyBalanced      = "balanced"
	StrategyFast          = "fast"
	StrategyCostEfficient = "cost_efficient"
)

// ValidStrategy reports whether the strategy name is known.
func ValidStrategy(s string) bool {
	switch s {
	case StrategyOptimal, StrategyBalanced, StrategyFast, StrategyCostEfficient:
		return true
	}
	return false
}

// Batch records a batch submission. It owns the ordered list of payout
// identifiers (insertion order = submission order) but not the payout records
// themselves, which live in the lifecycle manager's store.
type Batch struct {
	BatchID   string    `json:"batch_id"`
	PayoutIDs []string  `json:"payout_ids"`
	Strategy  string    `json:"strategy"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BatchItemResult is the per-item outcome of a batch submission, reported in
// submission order.
type BatchItemResult struct {
	Index  int     `json:"index"`
	Payout *Payout `json:"payout,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// BatchResult is the aggregate returned to the caller after fan-out.
type BatchResult struct {
	BatchID   string            `json:"batch_id"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Status    string            `json:"status"`
	Results   []BatchItemResult `json:"results"`
	TotalFee  int64             `json:"total_fee"`
	CreatedAt time.Time         `json:"created_at"`
}

// AggregateStatus derives the batch status from its counters.
func AggregateStatus(total, failed int) string {
	switch {
	case failed == 0:
		return BatchCompleted
	case failed == total:
		return BatchFailed
	default:
		return BatchPartialFailure
	}
}
