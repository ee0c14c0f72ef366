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
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/routepay/payrouter/config"
	"github.com/routepay/payrouter/database"
	"github.com/routepay/payrouter/internal/apierror"
	"github.com/routepay/payrouter/internal/cache"
	"github.com/routepay/payrouter/internal/notification"
	"github.com/routepay/payrouter/model"
)

var tracer = otel.Tracer("Payout lifecycle")

const payoutCacheTTL = 5 * time.Minute

func payoutCacheKey(payoutID string) string {
	return fmt.Sprintf("payout:%s", payoutID)
}

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// savePayout persists the payout record and refreshes the read cache. The
// record is written before any webhook fires so a crash never emits an event
// the store cannot corroborate.
func (l *PayRouter) savePayout(ctx context.Context, payout *model.Payout) error {
	if err := l.store.Put(ctx, database.KindPayouts, payout.PayoutID, payout); err != nil {
		return apierror.NewAPIError(apierror.ErrPersistence, "failed to persist payout", err)
	}
	if err := l.cache.Set(ctx, payoutCacheKey(payout.PayoutID), payout, payoutCacheTTL); err != nil {
		logrus.Error("error caching payout ", err)
	}
	return nil
}

// CreatePayout validates the request, selects and reserves a route, quotes
// the fee and persists the payout in ROUTE_ASSIGNED.
func (l *PayRouter) CreatePayout(ctx context.Context, req *model.PayoutRequest) (*model.Payout, error) {
	return l.createPayout(ctx, req, model.StrategyOptimal, "")
}

func (l *PayRouter) createPayout(ctx context.Context, req *model.PayoutRequest, strategy, batchID string) (*model.Payout, error) {
	ctx, span := tracer.Start(ctx, "Creating payout")
	defer span.End()

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if err := req.Validate(conf.Routing.MaxSinglePayout); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrValidation, err.Error(), nil)
	}

	payout := req.ToPayout(l.clock.Now())
	payout.BatchID = batchID

	routeID, err := l.selectRoute(req, strategy)
	if err != nil {
		return nil, logAndRecordError(span, "route selection error: ", err)
	}

	routeCfg, ok := l.registry.Config(routeID)
	if !ok {
		l.registry.Release(routeID)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "selected route vanished from registry", nil)
	}

	fee, net, err := model.Quote(payout.PreciseAmount, payout.Priority, routeCfg, conf.Fees.DiscountTiers)
	if err != nil {
		l.registry.Release(routeID)
		return nil, apierror.NewAPIError(apierror.ErrValidation, err.Error(), nil)
	}

	payout.AssignedRoute = routeID
	payout.Fee = fee
	payout.NetAmount = net
	payout.Status = model.StatusRouteAssigned
	payout.UpdatedAt = l.clock.Now()

	// The reservation is released on persistence failure so a payout the
	// caller never saw cannot hold capacity.
	if err := l.savePayout(ctx, payout); err != nil {
		l.registry.Release(routeID)
		return nil, logAndRecordError(span, "persist payout error: ", err)
	}

	l.SendWebhook(ctx, EventPayoutCreated, payout)
	return payout, nil
}

// DispatchPayout hands a routed payout to the settlement backend. Timeouts
// are retried with exponential backoff under the same idempotency key; a
// definite rejection fails the payout immediately.
func (l *PayRouter) DispatchPayout(ctx context.Context, payoutID string) (*model.Payout, error) {
	ctx, span := tracer.Start(ctx, "Dispatching payout")
	defer span.End()

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	payout, err := l.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != model.StatusRouteAssigned {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("cannot dispatch payout in state %s", payout.Status), nil)
	}

	routeCfg, ok := l.registry.Config(payout.AssignedRoute)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "assigned route not in registry", nil)
	}

	dispatch := DispatchRequest{
		IdempotencyKey: payout.PayoutID,
		RouteID:        payout.AssignedRoute,
		Recipient:      payout.RecipientAddress,
		Amount:         payout.NetAmount,
		Asset:          payout.AssetType,
	}

	started := l.clock.Now()
	result, err := l.dispatchWithRetry(ctx, routeCfg, dispatch, conf.Routing.DispatchRetries)
	elapsed := l.clock.Now().Sub(started)

	if err != nil {
		return l.failPayout(ctx, payout, model.ReasonBackendTimeout, elapsed,
			apierror.NewAPIError(apierror.ErrBackendTimeout, err.Error(), nil))
	}
	if !result.Accepted {
		reason := result.Reason
		if reason == "" {
			reason = model.ReasonBackendRejected
		}
		return l.failPayout(ctx, payout, reason, elapsed,
			apierror.NewAPIError(apierror.ErrBackendRejected, fmt.Sprintf("backend rejected payout: %s", reason), nil))
	}

	payout.Status = model.StatusDispatched
	payout.BackendRef = result.BackendRef
	payout.UpdatedAt = l.clock.Now()
	if err := l.savePayout(ctx, payout); err != nil {
		return nil, logAndRecordError(span, "persist dispatched payout error: ", err)
	}

	l.registry.TrackAmount(payout.AssignedRoute, payout.PreciseAmount)
	l.SendWebhook(ctx, EventPayoutStarted, payout)
	return payout, nil
}

// dispatchWithRetry retries only on unknown-outcome timeouts. Rejections and
// transport failures with a definite verdict are permanent.
func (l *PayRouter) dispatchWithRetry(ctx context.Context, route model.RouteConfig, dispatch DispatchRequest, retries int) (DispatchResult, error) {
	perAttempt := time.Duration(route.EstimatedTimeMinutes) * time.Minute

	var result DispatchResult
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, perAttempt)
		defer cancel()

		var err error
		result, err = l.backend.Dispatch(attemptCtx, route.RouteID, dispatch)
		if err == nil {
			return nil
		}
		if err == ErrDispatchTimeout || isTimeout(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return DispatchResult{}, err
	}
	return result, nil
}

// failPayout moves a payout to FAILED, releasing its reservation exactly once
// and recording the failed outcome against the route. The terminal state is
// persisted first; a failed write leaves the reservation and stored record
// untouched and surfaces the persistence error so the caller can retry.
func (l *PayRouter) failPayout(ctx context.Context, payout *model.Payout, reason string, elapsed time.Duration, cause error) (*model.Payout, error) {
	prevStatus := payout.Status
	payout.Status = model.StatusFailed
	payout.FailureReason = reason
	payout.UpdatedAt = l.clock.Now()

	if err := l.savePayout(ctx, payout); err != nil {
		payout.Status = prevStatus
		payout.FailureReason = ""
		notification.NotifyError(err)
		return nil, err
	}

	l.registry.Release(payout.AssignedRoute)
	l.registry.RecordOutcome(payout.AssignedRoute, false, elapsed)
	l.SendWebhook(ctx, EventPayoutFailed, payout)
	return payout, cause
}

// ReconcilePayout refreshes the confirmation count from the backend and
// advances the payout through CONFIRMED to COMPLETED once the route's
// confirmation target is met.
func (l *PayRouter) ReconcilePayout(ctx context.Context, payoutID string) (*model.Payout, error) {
	ctx, span := tracer.Start(ctx, "Reconciling payout")
	defer span.End()

	payout, err := l.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != model.StatusDispatched && payout.Status != model.StatusConfirmed {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("cannot reconcile payout in state %s", payout.Status), nil)
	}

	routeCfg, ok := l.registry.Config(payout.AssignedRoute)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "assigned route not in registry", nil)
	}

	confirmations, err := l.backend.ConfirmationCount(ctx, payout.AssignedRoute, payout.BackendRef)
	if err != nil {
		return nil, logAndRecordError(span, "confirmation count error: ", err)
	}
	payout.Confirmations = confirmations
	payout.UpdatedAt = l.clock.Now()

	if confirmations < routeCfg.ConfirmationTarget {
		if err := l.savePayout(ctx, payout); err != nil {
			return nil, err
		}
		return payout, nil
	}

	if payout.Status == model.StatusDispatched {
		payout.Status = model.StatusConfirmed
		if err := l.savePayout(ctx, payout); err != nil {
			return nil, err
		}
		l.SendWebhook(ctx, EventPayoutConfirmed, payout)
	}

	payout.Status = model.StatusCompleted
	payout.UpdatedAt = l.clock.Now()
	if err := l.savePayout(ctx, payout); err != nil {
		return nil, err
	}

	l.registry.Release(payout.AssignedRoute)
	l.registry.RecordOutcome(payout.AssignedRoute, true, l.clock.Now().Sub(payout.CreatedAt))
	l.SendWebhook(ctx, EventPayoutCompleted, payout)
	return payout, nil
}

// CancelPayout cancels a payout that has not yet been handed to a backend.
// Once dispatched the money is in flight and the only recourse is a refund.
func (l *PayRouter) CancelPayout(ctx context.Context, payoutID string) (*model.Payout, error) {
	ctx, span := tracer.Start(ctx, "Cancelling payout")
	defer span.End()

	payout, err := l.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != model.StatusCreated && payout.Status != model.StatusRouteAssigned {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("cannot cancel payout in state %s", payout.Status), nil)
	}

	// The reservation is released only after the cancelled state commits, so
	// a failed write cannot free a slot the payout still holds.
	prevStatus := payout.Status
	payout.Status = model.StatusCancelled
	payout.UpdatedAt = l.clock.Now()
	if err := l.savePayout(ctx, payout); err != nil {
		payout.Status = prevStatus
		return nil, logAndRecordError(span, "persist cancelled payout error: ", err)
	}
	if payout.AssignedRoute != "" {
		l.registry.Release(payout.AssignedRoute)
	}
	return payout, nil
}

// RefundPayout issues a refund against a completed or failed payout and moves
// the payout to REFUNDED.
func (l *PayRouter) RefundPayout(ctx context.Context, payoutID, reason string) (*model.Refund, error) {
	ctx, span := tracer.Start(ctx, "Refunding payout")
	defer span.End()

	payout, err := l.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != model.StatusCompleted && payout.Status != model.StatusFailed {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("cannot refund payout in state %s", payout.Status), nil)
	}

	refund, err := model.NewRefund(payout.PayoutID, reason, l.clock.Now())
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrValidation, err.Error(), nil)
	}

	if err := l.store.Put(ctx, database.KindRefunds, refund.RefundID, refund); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrPersistence, "failed to persist refund", err)
	}

	payout.Status = model.StatusRefunded
	payout.UpdatedAt = l.clock.Now()
	if err := l.savePayout(ctx, payout); err != nil {
		return nil, logAndRecordError(span, "persist refunded payout error: ", err)
	}

	l.SendWebhook(ctx, EventPayoutRefunded, refund)
	return refund, nil
}

// GetPayout returns a payout by ID, serving hot reads from the cache.
func (l *PayRouter) GetPayout(ctx context.Context, payoutID string) (*model.Payout, error) {
	var cached model.Payout
	if err := l.cache.Get(ctx, payoutCacheKey(payoutID), &cached); err == nil && cached.PayoutID != "" {
		return &cached, nil
	} else if err != nil && err != cache.ErrMiss {
		logrus.Error("payout cache read error ", err)
	}

	var payout model.Payout
	err := l.store.Get(ctx, database.KindPayouts, payoutID, &payout)
	if err == database.ErrNotFound {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("payout %s not found", payoutID), nil)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrPersistence, "failed to read payout", err)
	}

	if err := l.cache.Set(ctx, payoutCacheKey(payoutID), &payout, payoutCacheTTL); err != nil {
		logrus.Error("error caching payout ", err)
	}
	return &payout, nil
}

// ListPayouts returns payouts, optionally filtered by status.
func (l *PayRouter) ListPayouts(ctx context.Context, status string) ([]*model.Payout, error) {
	filter := database.Filter{}
	if status != "" {
		filter = database.Filter{Field: "status", Value: status}
	}

	records, err := l.store.Query(ctx, database.KindPayouts, filter)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrPersistence, "failed to list payouts", err)
	}

	payouts := make([]*model.Payout, 0, len(records))
	for _, raw := range records {
		var p model.Payout
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		payouts = append(payouts, &p)
	}
	return payouts, nil
}
