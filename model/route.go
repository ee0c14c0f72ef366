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

// Route health states. Health is derived solely from rolling outcome counters
// (plus the administrative offline toggle), never set by the selector.
const (
	HealthOperational = "operational"
	HealthDegraded    = "degraded"
	HealthUnavailable = "unavailable"
	HealthOffline     = "offline"
)

// Known route type identifiers. Routes are a closed set of tagged variants
// configured at startup, not a type hierarchy.
const (
	RouteV0     = "v0"
	RouteKYC    = "kyc"
	RouteDirect = "direct"
	RouteSmart  = "smart"
)

// FeeSchedule holds the static fee rates for a route, in basis points keyed by
// priority, plus the surcharge applied on KYC routes.
type FeeSchedule struct {
	BasisPoints     map[string]int64 `json:"basis_points"`
	KYCSurchargeBps int64            `json:"kyc_surcharge_bps"`
}

// RateFor returns the basis-point rate for a priority, falling back to the
// normal rate when the priority has no explicit entry.
func (f FeeSchedule) RateFor(priority string) int64 {
	if bps, ok := f.BasisPoints[priority]; ok {
		return bps
	}
	return f.BasisPoints[PriorityNormal]
}

// RouteConfig is the static configuration of a settlement channel.
type RouteConfig struct {
	RouteID              string      `json:"route_id"`
	Capacity             int         `json:"capacity"`
	MinAmount            int64       `json:"min_amount"`
	MaxAmount            int64       `json:"max_amount"`
	Fees                 FeeSchedule `json:"fees"`
	RequireKYC           bool        `json:"require_kyc"`
	ConfirmationTarget   int         `json:"confirmation_threshold"`
	EstimatedTimeMinutes int         `json:"estimated_time_minutes"`
	BackendURL           string      `json:"backend_url"`
}

// RouteState is a point-in-time view of a route's configuration and live
// counters, as returned by the registry snapshot.
type RouteState struct {
	RouteConfig
	ActiveCount    int           `json:"active_count"`
	SuccessRate    float64       `json:"success_rate"`
	AvgCompletion  time.Duration `json:"avg_completion"`
	Health         string        `json:"health"`
	LastChecked    time.Time     `json:"last_checked"`
	WindowOutcomes int           `json:"window_outcomes"`
}

// Selectable reports whether the route may be considered by the selector at
// all: offline and unavailable routes are always excluded.
func (s RouteState) Selectable() bool {
	return s.Health == HealthOperational || s.Health == HealthDegraded
}

// HasCapacity reports whether the snapshot saw spare capacity. Correctness
// under concurrency is enforced by the atomic reserve, not by this check.
func (s RouteState) HasCapacity() bool {
	return s.ActiveCount < s.Capacity
}

// FitsAmount reports whether an amount is within the route's static bounds.
func (s RouteState) FitsAmount(amount int64) bool {
	if amount < s.MinAmount {
		return false
	}
	if s.MaxAmount > 0 && amount > s.MaxAmount {
		return false
	}
	return true
}

// LoadRatio is the active-count / capacity ratio used for load balancing.
func (s RouteState) LoadRatio() float64 {
	if s.Capacity == 0 {
		return 1
	}
	return float64(s.ActiveCount) / float64(s.Capacity)
}

// AnalyticsSummary aggregates a route's lifetime counters for reporting.
type AnalyticsSummary struct {
	RouteID       string        `json:"route_id"`
	TotalPayouts  int64         `json:"total_payouts"`
	TotalAmount   int64         `json:"total_amount"`
	SuccessCount  int64         `json:"success_count"`
	FailedCount   int64         `json:"failed_count"`
	AvgCompletion time.Duration `json:"avg_completion"`
	P95Completion time.Duration `json:"p95_completion"`
	P99Completion time.Duration `json:"p99_completion"`
	GeneratedAt   time.Time     `json:"generated_at"`
}
