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

	"github.com/routepay/payrouter/config"
	"github.com/routepay/payrouter/internal/apierror"
	"github.com/routepay/payrouter/model"
)

// pickRoute applies the routing rules, in order, against a registry snapshot
// and returns the chosen route ID. The rules are:
//
//  1. An eligible preferred route wins outright.
//  2. Critical payouts go to the fastest eligible route.
//  3. Large transfers go to the highest-capacity operational route.
//  4. Mid-size transfers go to a KYC route.
//  5. Everything else load-balances, with ties broken by strategy.
//
// A rule that matches no candidate falls through to the next; only when every
// rule is exhausted does selection fail.
func pickRoute(req *model.PayoutRequest, states []model.RouteState, strategy string, routing config.RoutingConfig, tiers []model.DiscountTier) (string, error) {
	candidates := make([]model.RouteState, 0, len(states))
	for _, s := range states {
		if s.Selectable() && s.HasCapacity() && s.FitsAmount(req.PreciseAmount) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no route can serve amount %d", req.PreciseAmount)
	}

	if req.PreferredRoute != "" {
		for _, s := range candidates {
			if s.RouteID == req.PreferredRoute {
				return s.RouteID, nil
			}
		}
		// Ineligible preference falls through to the general rules.
	}

	if req.Priority == model.PriorityCritical {
		return pickBest(candidates, func(a, b model.RouteState) bool {
			if a.AvgCompletion != b.AvgCompletion {
				return a.AvgCompletion < b.AvgCompletion
			}
			return a.LoadRatio() < b.LoadRatio()
		}), nil
	}

	if req.PreciseAmount > routing.LargeTransferThreshold {
		operational := filterStates(candidates, func(s model.RouteState) bool {
			return s.Health == model.HealthOperational
		})
		if len(operational) > 0 {
			return pickBest(operational, func(a, b model.RouteState) bool {
				if a.Capacity != b.Capacity {
					return a.Capacity > b.Capacity
				}
				return a.LoadRatio() < b.LoadRatio()
			}), nil
		}
	}

	if req.PreciseAmount > routing.MidTransferThreshold {
		kyc := filterStates(candidates, func(s model.RouteState) bool {
			return s.RequireKYC
		})
		if len(kyc) > 0 {
			return pickBest(kyc, func(a, b model.RouteState) bool {
				return a.LoadRatio() < b.LoadRatio()
			}), nil
		}
	}

	return pickBest(candidates, strategyLess(req, strategy, tiers)), nil
}

// strategyLess returns the comparison used by the load-balancing rule. The
// default strategies order by load first; cost_efficient puts the quoted fee
// first and fast puts the route's estimated completion time first.
func strategyLess(req *model.PayoutRequest, strategy string, tiers []model.DiscountTier) func(a, b model.RouteState) bool {
	fee := func(s model.RouteState) int64 {
		f, _, err := model.Quote(req.PreciseAmount, req.Priority, s.RouteConfig, tiers)
		if err != nil {
			return 1<<63 - 1
		}
		return f
	}

	switch strategy {
	case model.StrategyCostEfficient:
		return func(a, b model.RouteState) bool {
			if fa, fb := fee(a), fee(b); fa != fb {
				return fa < fb
			}
			return a.LoadRatio() < b.LoadRatio()
		}
	case model.StrategyFast:
		return func(a, b model.RouteState) bool {
			if a.EstimatedTimeMinutes != b.EstimatedTimeMinutes {
				return a.EstimatedTimeMinutes < b.EstimatedTimeMinutes
			}
			return a.LoadRatio() < b.LoadRatio()
		}
	default:
		return func(a, b model.RouteState) bool {
			if la, lb := a.LoadRatio(), b.LoadRatio(); la != lb {
				return la < lb
			}
			return fee(a) < fee(b)
		}
	}
}

func pickBest(states []model.RouteState, less func(a, b model.RouteState) bool) string {
	best := states[0]
	for _, s := range states[1:] {
		if less(s, best) {
			best = s
		}
	}
	return best.RouteID
}

func filterStates(states []model.RouteState, keep func(model.RouteState) bool) []model.RouteState {
	var out []model.RouteState
	for _, s := range states {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// selectRoute runs select-then-reserve with a bounded retry. Each attempt
// re-snapshots the registry because a lost reservation race means the world
// has changed. Losing the race on every attempt escalates to no-route so the
// caller sees the same terminal condition as an empty candidate set.
func (l *PayRouter) selectRoute(req *model.PayoutRequest, strategy string) (string, error) {
	conf, err := config.Fetch()
	if err != nil {
		return "", err
	}

	attempts := conf.Routing.SelectionRetries
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		routeID, err := pickRoute(req, l.registry.Snapshot(), strategy, conf.Routing, conf.Fees.DiscountTiers)
		if err != nil {
			return "", apierror.NewAPIError(apierror.ErrNoRouteAvailable, err.Error(), nil)
		}
		if l.registry.Reserve(routeID) {
			return routeID, nil
		}
	}
	return "", apierror.NewAPIError(apierror.ErrNoRouteAvailable,
		fmt.Sprintf("could not reserve capacity after %d attempts", attempts), nil)
}
