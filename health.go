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
	"time"

	"github.com/routepay/payrouter/config"
	"github.com/routepay/payrouter/model"
)

type outcome struct {
	success bool
	elapsed time.Duration
}

// healthTracker derives a route's health from a rolling fixed-count window of
// dispatch outcomes and runs the circuit breaker:
//
//	operational -> degraded -> unavailable -> (cooldown) -> degraded(half-open)
//	-> operational | unavailable
//
// Offline is an administrative override and always wins. The tracker is not
// safe for concurrent use on its own; the registry's per-route lock guards it.
type healthTracker struct {
	cfg   config.HealthConfig
	clock Clock

	window []outcome
	next   int
	filled bool

	consecFailures  int
	consecSuccesses int

	tripped   bool
	trippedAt time.Time
	halfOpen  bool

	offline bool
}

func newHealthTracker(cfg config.HealthConfig, clock Clock) *healthTracker {
	return &healthTracker{
		cfg:    cfg,
		clock:  clock,
		window: make([]outcome, cfg.WindowSize),
	}
}

func (h *healthTracker) cooldown() time.Duration {
	return time.Duration(h.cfg.CooldownSeconds) * time.Second
}

func (h *healthTracker) degradedLatency() time.Duration {
	return time.Duration(h.cfg.DegradedLatencyMins) * time.Minute
}

// record feeds one dispatch outcome into the window and advances the circuit
// breaker.
func (h *healthTracker) record(success bool, elapsed time.Duration) {
	h.window[h.next] = outcome{success: success, elapsed: elapsed}
	h.next = (h.next + 1) % len(h.window)
	if h.next == 0 {
		h.filled = true
	}

	if success {
		h.consecSuccesses++
		h.consecFailures = 0
	} else {
		h.consecFailures++
		h.consecSuccesses = 0
	}

	if h.tripped {
		h.advanceCircuit(success)
		return
	}

	if h.consecFailures >= h.cfg.CircuitThreshold {
		h.trip()
		return
	}
	if n := h.samples(); n >= h.cfg.CircuitThreshold && h.successRate() < h.cfg.DegradedRate {
		h.trip()
	}
}

func (h *healthTracker) trip() {
	h.tripped = true
	h.halfOpen = false
	h.trippedAt = h.clock.Now()
	h.consecSuccesses = 0
}

// advanceCircuit handles outcomes recorded while the breaker is open. Before
// the cooldown elapses nothing changes; in half-open, a failure re-trips and
// enough consecutive successes close the circuit and reset the window.
func (h *healthTracker) advanceCircuit(success bool) {
	if h.clock.Now().Sub(h.trippedAt) < h.cooldown() {
		return
	}
	h.halfOpen = true

	if !success {
		h.trip()
		return
	}
	if h.consecSuccesses >= h.cfg.RecoverySuccesses {
		h.close()
	}
}

// close re-enters normal rate-derived health with a clean window so stale
// failures from before the outage do not immediately re-trip the breaker.
func (h *healthTracker) close() {
	h.tripped = false
	h.halfOpen = false
	h.window = make([]outcome, h.cfg.WindowSize)
	h.next = 0
	h.filled = false
	h.consecFailures = 0
}

func (h *healthTracker) samples() int {
	if h.filled {
		return len(h.window)
	}
	return h.next
}

func (h *healthTracker) successRate() float64 {
	n := h.samples()
	if n == 0 {
		return 1
	}
	succeeded := 0
	for i := 0; i < n; i++ {
		if h.window[i].success {
			succeeded++
		}
	}
	return float64(succeeded) / float64(n)
}

func (h *healthTracker) avgCompletion() time.Duration {
	n := h.samples()
	if n == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < n; i++ {
		total += h.window[i].elapsed
	}
	return total / time.Duration(n)
}

// health derives the current state. The selector never writes health; it only
// reads what this derivation produces.
func (h *healthTracker) health() string {
	if h.offline {
		return model.HealthOffline
	}

	if h.tripped {
		if h.clock.Now().Sub(h.trippedAt) < h.cooldown() {
			return model.HealthUnavailable
		}
		// Cooldown elapsed: the route re-enters as degraded (half-open)
		// until the recovery streak closes the circuit.
		return model.HealthDegraded
	}

	rate := h.successRate()
	switch {
	case rate < h.cfg.DegradedRate:
		return model.HealthUnavailable
	case rate < h.cfg.OperationalRate:
		return model.HealthDegraded
	case h.avgCompletion() > h.degradedLatency():
		return model.HealthDegraded
	default:
		return model.HealthOperational
	}
}
