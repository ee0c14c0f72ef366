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
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/routepay/payrouter/internal/request"
	"github.com/routepay/payrouter/model"
)

// ErrDispatchTimeout marks a dispatch whose outcome is unknown. The backend
// may still process it, so the retry path must reuse the same idempotency key.
var ErrDispatchTimeout = errors.New("settlement backend timed out")

// DispatchRequest is handed to the settlement backend exactly as quoted. The
// idempotency key is the payout ID so a retried dispatch is never double
// executed.
type DispatchRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	RouteID        string `json:"route_id"`
	Recipient      string `json:"recipient"`
	Amount         int64  `json:"amount"`
	Asset          string `json:"asset"`
}

// DispatchResult is the backend's verdict on a dispatch attempt.
type DispatchResult struct {
	Accepted   bool   `json:"accepted"`
	BackendRef string `json:"backend_ref,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// SettlementBackend abstracts the downstream rail a route settles on.
// Dispatch returns ErrDispatchTimeout when the outcome is unknown; a definite
// rejection comes back as a result with Accepted false, not an error.
type SettlementBackend interface {
	Dispatch(ctx context.Context, routeID string, req DispatchRequest) (DispatchResult, error)
	ConfirmationCount(ctx context.Context, routeID, backendRef string) (int, error)
}

type confirmationsResponse struct {
	Confirmations int `json:"confirmations"`
}

// HTTPSettlementBackend dispatches over HTTP to each route's configured
// backend URL.
type HTTPSettlementBackend struct {
	urls map[string]string
}

// NewHTTPSettlementBackend maps route IDs to their backend base URLs. Routes
// with no configured URL fail dispatch immediately rather than silently
// succeeding.
func NewHTTPSettlementBackend(routes []model.RouteConfig) *HTTPSettlementBackend {
	urls := make(map[string]string, len(routes))
	for _, r := range routes {
		if r.BackendURL != "" {
			urls[r.RouteID] = r.BackendURL
		}
	}
	return &HTTPSettlementBackend{urls: urls}
}

func (b *HTTPSettlementBackend) baseURL(routeID string) (string, error) {
	url, ok := b.urls[routeID]
	if !ok {
		return "", fmt.Errorf("route %s has no backend url configured", routeID)
	}
	return url, nil
}

func (b *HTTPSettlementBackend) Dispatch(ctx context.Context, routeID string, dispatch DispatchRequest) (DispatchResult, error) {
	base, err := b.baseURL(routeID)
	if err != nil {
		return DispatchResult{}, err
	}

	payload, err := request.ToJsonReq(dispatch)
	if err != nil {
		return DispatchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/dispatch", payload)
	if err != nil {
		return DispatchResult{}, err
	}
	req.Header.Set("Idempotency-Key", dispatch.IdempotencyKey)

	var result DispatchResult
	resp, err := request.Call(req, &result)
	if err != nil {
		if isTimeout(err) {
			return DispatchResult{}, ErrDispatchTimeout
		}
		return DispatchResult{}, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return DispatchResult{}, fmt.Errorf("backend for route %s returned %d", routeID, resp.StatusCode)
	}
	return result, nil
}

func (b *HTTPSettlementBackend) ConfirmationCount(ctx context.Context, routeID, backendRef string) (int, error) {
	base, err := b.baseURL(routeID)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/confirmations/"+backendRef, nil)
	if err != nil {
		return 0, err
	}

	var result confirmationsResponse
	resp, err := request.Call(req, &result)
	if err != nil {
		if isTimeout(err) {
			return 0, ErrDispatchTimeout
		}
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("backend for route %s returned %d", routeID, resp.StatusCode)
	}
	return result.Confirmations, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
