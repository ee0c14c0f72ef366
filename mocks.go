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
	"sync"
	"time"
)

// MockSettlementBackend is a configurable in-memory settlement rail used in
// tests and local development.
type MockSettlementBackend struct {
	mu            sync.Mutex
	confirmations map[string]int
	dispatched    []DispatchRequest

	DispatchFunc func(ctx context.Context, routeID string, req DispatchRequest) (DispatchResult, error)
	Latency      time.Duration
}

func NewMockSettlementBackend() *MockSettlementBackend {
	return &MockSettlementBackend{confirmations: make(map[string]int)}
}

func (m *MockSettlementBackend) Dispatch(ctx context.Context, routeID string, req DispatchRequest) (DispatchResult, error) {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return DispatchResult{}, ErrDispatchTimeout
		}
	}

	if m.DispatchFunc != nil {
		result, err := m.DispatchFunc(ctx, routeID, req)
		if err == nil && result.Accepted {
			m.recordDispatch(req)
		}
		return result, err
	}

	m.recordDispatch(req)
	return DispatchResult{Accepted: true, BackendRef: "ref_" + req.IdempotencyKey}, nil
}

func (m *MockSettlementBackend) recordDispatch(req DispatchRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched = append(m.dispatched, req)
}

func (m *MockSettlementBackend) ConfirmationCount(_ context.Context, _, backendRef string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations[backendRef]++
	return m.confirmations[backendRef], nil
}

// SetConfirmations pins the confirmation count for a backend reference.
func (m *MockSettlementBackend) SetConfirmations(backendRef string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations[backendRef] = n - 1
}

// Dispatched returns a copy of every accepted dispatch in arrival order.
func (m *MockSettlementBackend) Dispatched() []DispatchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DispatchRequest, len(m.dispatched))
	copy(out, m.dispatched)
	return out
}

// mockClock is a manually advanced clock for driving cooldown timers in tests.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock(start time.Time) *mockClock {
	return &mockClock{now: start}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
