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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routepay/payrouter/config"
	"github.com/routepay/payrouter/model"
)

func testRoutingConfig() config.RoutingConfig {
	return config.RoutingConfig{
		MaxSinglePayout:        model.ToMinorUnits(1_000_000),
		LargeTransferThreshold: model.ToMinorUnits(50_000),
		MidTransferThreshold:   model.ToMinorUnits(10_000),
		SelectionRetries:       3,
		DispatchRetries:        3,
	}
}

func selectorState(id string, capacity, active int, health string, avg time.Duration, bps int64, requireKYC bool, estMinutes int) model.RouteState {
	return model.RouteState{
		RouteConfig: model.RouteConfig{
			RouteID:              id,
			Capacity:             capacity,
			MinAmount:            1,
			MaxAmount:            model.ToMinorUnits(1_000_000),
			Fees:                 model.FeeSchedule{BasisPoints: map[string]int64{model.PriorityNormal: bps, model.PriorityCritical: bps + 10}},
			RequireKYC:           requireKYC,
			EstimatedTimeMinutes: estMinutes,
		},
		ActiveCount:   active,
		AvgCompletion: avg,
		Health:        health,
	}
}

func selectorRequest(amount int64) *model.PayoutRequest {
	return &model.PayoutRequest{
		RecipientAddress: "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8",
		PreciseAmount:    amount,
		AssetType:        model.AssetTRX,
		Priority:         model.PriorityNormal,
	}
}

func TestPreferredRouteWins(t *testing.T) {
	states := []model.RouteState{
		selectorState(model.RouteV0, 10, 0, model.HealthOperational, 5*time.Minute, 10, false, 5),
		selectorState(model.RouteDirect, 10, 0, model.HealthOperational, 3*time.Minute, 20, false, 3),
	}
	req := selectorRequest(model.ToMinorUnits(100))
	req.PreferredRoute = model.RouteDirect

	routeID, err := pickRoute(req, states, model.StrategyOptimal, testRoutingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteDirect, routeID)
}

func TestIneligiblePreferenceFallsThrough(t *testing.T) {
	states := []model.RouteState{
		selectorState(model.RouteV0, 10, 0, model.HealthOperational, 5*time.Minute, 10, false, 5),
		selectorState(model.RouteDirect, 10, 10, model.HealthOperational, 3*time.Minute, 20, false, 3),
	}
	req := selectorRequest(model.ToMinorUnits(100))
	req.PreferredRoute = model.RouteDirect

	routeID, err := pickRoute(req, states, model.StrategyOptimal, testRoutingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteV0, routeID)
}

func TestCriticalPrioritySelectsFastestRoute(t *testing.T) {
	states := []model.RouteState{
		selectorState(model.RouteV0, 10, 0, model.HealthOperational, 5*time.Minute, 10, false, 5),
		selectorState(model.RouteDirect, 10, 0, model.HealthDegraded, 2*time.Minute, 20, false, 3),
	}
	req := selectorRequest(model.ToMinorUnits(100))
	req.Priority = model.PriorityCritical

	routeID, err := pickRoute(req, states, model.StrategyOptimal, testRoutingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteDirect, routeID)
}

func TestLargeTransferSelectsHighestCapacityOperational(t *testing.T) {
	states := []model.RouteState{
		selectorState(model.RouteV0, 100, 0, model.HealthOperational, 5*time.Minute, 10, false, 5),
		selectorState(model.RouteSmart, 2000, 0, model.HealthOperational, 4*time.Minute, 5, false, 4),
		selectorState(model.RouteDirect, 5000, 0, model.HealthDegraded, 3*time.Minute, 20, false, 3),
	}
	req := selectorRequest(model.ToMinorUnits(60_000))

	routeID, err := pickRoute(req, states, model.StrategyOptimal, testRoutingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteSmart, routeID)
}

func TestMidTransferPrefersKYCRoute(t *testing.T) {
	states := []model.RouteState{
		selectorState(model.RouteV0, 100, 0, model.HealthOperational, 5*time.Minute, 10, false, 5),
		selectorState(model.RouteKYC, 50, 0, model.HealthOperational, 7*time.Minute, 15, true, 7),
	}
	req := selectorRequest(model.ToMinorUnits(20_000))

	routeID, err := pickRoute(req, states, model.StrategyOptimal, testRoutingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteKYC, routeID)
}

func TestLoadBalancingPicksLeastLoaded(t *testing.T) {
	states := []model.RouteState{
		selectorState(model.RouteV0, 10, 8, model.HealthOperational, 5*time.Minute, 10, false, 5),
		selectorState(model.RouteSmart, 10, 2, model.HealthOperational, 4*time.Minute, 5, false, 4),
	}
	req := selectorRequest(model.ToMinorUnits(100))

	routeID, err := pickRoute(req, states, model.StrategyOptimal, testRoutingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteSmart, routeID)
}

func TestCostEfficientStrategyPrefersCheapestRoute(t *testing.T) {
	states := []model.RouteState{
		selectorState(model.RouteV0, 10, 0, model.HealthOperational, 5*time.Minute, 10, false, 5),
		selectorState(model.RouteSmart, 10, 5, model.HealthOperational, 4*time.Minute, 5, false, 4),
	}
	req := selectorRequest(model.ToMinorUnits(100))

	routeID, err := pickRoute(req, states, model.StrategyCostEfficient, testRoutingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteSmart, routeID)
}

func TestFastStrategyPrefersQuickestRoute(t *testing.T) {
	states := []model.RouteState{
		selectorState(model.RouteV0, 10, 0, model.HealthOperational, 5*time.Minute, 10, false, 5),
		selectorState(model.RouteDirect, 10, 5, model.HealthOperational, 3*time.Minute, 20, false, 3),
	}
	req := selectorRequest(model.ToMinorUnits(100))

	routeID, err := pickRoute(req, states, model.StrategyFast, testRoutingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteDirect, routeID)
}

func TestUnavailableAndOfflineRoutesExcluded(t *testing.T) {
	states := []model.RouteState{
		selectorState(model.RouteV0, 10, 0, model.HealthUnavailable, 5*time.Minute, 10, false, 5),
		selectorState(model.RouteDirect, 10, 0, model.HealthOffline, 3*time.Minute, 20, false, 3),
	}

	_, err := pickRoute(selectorRequest(model.ToMinorUnits(100)), states, model.StrategyOptimal, testRoutingConfig(), nil)
	assert.Error(t, err)
}

func TestAmountOutsideRouteBoundsExcluded(t *testing.T) {
	state := selectorState(model.RouteV0, 10, 0, model.HealthOperational, 5*time.Minute, 10, false, 5)
	state.MaxAmount = model.ToMinorUnits(50)

	_, err := pickRoute(selectorRequest(model.ToMinorUnits(100)), []model.RouteState{state}, model.StrategyOptimal, testRoutingConfig(), nil)
	assert.Error(t, err)
}
