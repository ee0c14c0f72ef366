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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/routepay/payrouter/config"
	"github.com/routepay/payrouter/model"
)

// completionSamples caps the per-route latency history kept for percentile
// analytics.
const completionSamples = 1024

// routeEntry is the live state of one settlement channel. Its mutex is the
// sole mutual-exclusion boundary for the route's capacity counter.
type routeEntry struct {
	cfg model.RouteConfig

	mu      sync.Mutex
	active  int
	tracker *healthTracker

	totalPayouts int64
	totalAmount  int64
	successCount int64
	failedCount  int64
	completions  []time.Duration
}

// Registry holds static configuration and live state for every configured
// route. It is an explicit instance handed to the selector and lifecycle
// manager; nothing reaches it through globals.
type Registry struct {
	routes map[string]*routeEntry
	order  []string
	clock  Clock
}

// NewRegistry builds a registry from the configured route set.
func NewRegistry(routes []model.RouteConfig, health config.HealthConfig, clock Clock) *Registry {
	r := &Registry{
		routes: make(map[string]*routeEntry, len(routes)),
		clock:  clock,
	}
	for _, cfg := range routes {
		r.routes[cfg.RouteID] = &routeEntry{
			cfg:     cfg,
			tracker: newHealthTracker(health, clock),
		}
		r.order = append(r.order, cfg.RouteID)
	}
	return r
}

// Snapshot returns a consistent point-in-time view of every route. A slightly
// stale snapshot is acceptable: selection correctness is enforced by the
// atomic Reserve, not by snapshot freshness.
func (r *Registry) Snapshot() []model.RouteState {
	states := make([]model.RouteState, 0, len(r.order))
	for _, id := range r.order {
		entry := r.routes[id]
		entry.mu.Lock()
		states = append(states, model.RouteState{
			RouteConfig:    entry.cfg,
			ActiveCount:    entry.active,
			SuccessRate:    entry.tracker.successRate(),
			AvgCompletion:  entry.tracker.avgCompletion(),
			Health:         entry.tracker.health(),
			LastChecked:    r.clock.Now(),
			WindowOutcomes: entry.tracker.samples(),
		})
		entry.mu.Unlock()
	}
	return states
}

// Reserve atomically claims one unit of the route's capacity. It returns
// false when the route is unknown or already at capacity.
func (r *Registry) Reserve(routeID string) bool {
	entry, ok := r.routes[routeID]
	if !ok {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.active >= entry.cfg.Capacity {
		return false
	}
	entry.active++
	return true
}

// Release returns one unit of capacity. Every Reserve on a payout's path has
// exactly one matching Release on its terminal transition.
func (r *Registry) Release(routeID string) {
	entry, ok := r.routes[routeID]
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.active > 0 {
		entry.active--
	}
}

// RecordOutcome feeds a dispatch outcome into the route's rolling health
// window and analytics counters.
func (r *Registry) RecordOutcome(routeID string, success bool, elapsed time.Duration) {
	entry, ok := r.routes[routeID]
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.tracker.record(success, elapsed)
	entry.totalPayouts++
	if success {
		entry.successCount++
	} else {
		entry.failedCount++
	}
	if len(entry.completions) < completionSamples {
		entry.completions = append(entry.completions, elapsed)
	} else {
		entry.completions[int(entry.totalPayouts)%completionSamples] = elapsed
	}
}

// TrackAmount adds a dispatched amount to the route's analytics totals.
func (r *Registry) TrackAmount(routeID string, amount int64) {
	entry, ok := r.routes[routeID]
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.totalAmount += amount
}

// SetOffline toggles the administrative offline state of a route. Offline
// routes are excluded from selection regardless of rolling stats.
func (r *Registry) SetOffline(routeID string, offline bool) error {
	entry, ok := r.routes[routeID]
	if !ok {
		return fmt.Errorf("unknown route %q", routeID)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.tracker.offline = offline
	return nil
}

// Config returns the static configuration of a route.
func (r *Registry) Config(routeID string) (model.RouteConfig, bool) {
	entry, ok := r.routes[routeID]
	if !ok {
		return model.RouteConfig{}, false
	}
	return entry.cfg, true
}

// Analytics summarizes one route's lifetime counters.
func (r *Registry) Analytics(routeID string) (model.AnalyticsSummary, error) {
	entry, ok := r.routes[routeID]
	if !ok {
		return model.AnalyticsSummary{}, fmt.Errorf("unknown route %q", routeID)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return r.summarize(entry), nil
}

// AnalyticsAll summarizes every route in configuration order.
func (r *Registry) AnalyticsAll() []model.AnalyticsSummary {
	summaries := make([]model.AnalyticsSummary, 0, len(r.order))
	for _, id := range r.order {
		entry := r.routes[id]
		entry.mu.Lock()
		summaries = append(summaries, r.summarize(entry))
		entry.mu.Unlock()
	}
	return summaries
}

func (r *Registry) summarize(entry *routeEntry) model.AnalyticsSummary {
	summary := model.AnalyticsSummary{
		RouteID:      entry.cfg.RouteID,
		TotalPayouts: entry.totalPayouts,
		TotalAmount:  entry.totalAmount,
		SuccessCount: entry.successCount,
		FailedCount:  entry.failedCount,
		GeneratedAt:  r.clock.Now(),
	}
	if len(entry.completions) == 0 {
		return summary
	}

	sorted := make([]time.Duration, len(entry.completions))
	copy(sorted, entry.completions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	summary.AvgCompletion = total / time.Duration(len(sorted))
	summary.P95Completion = sorted[percentileIndex(len(sorted), 95)]
	summary.P99Completion = sorted[percentileIndex(len(sorted), 99)]
	return summary
}

func percentileIndex(n, pct int) int {
	idx := n*pct/100 - 1
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}
