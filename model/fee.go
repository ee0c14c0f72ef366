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

import (
	"fmt"
	"sort"
)

// DiscountTier reduces the fee by Percent once the payout amount reaches
// Threshold micro-units. Tiers are evaluated highest threshold first.
type DiscountTier struct {
	Threshold int64 `json:"threshold"`
	Percent   int64 `json:"percent"`
}

// Quote computes the fee and net amount for a payout on a given route. It is
// pure and deterministic: same inputs always yield the same outputs. All
// arithmetic is integer micro-units.
//
// fee = rate-by-priority (bps) x amount, raised by the KYC surcharge on KYC
// routes, then reduced by the highest volume-discount tier the amount reaches.
func Quote(amount int64, priority string, route RouteConfig, tiers []DiscountTier) (fee int64, net int64, err error) {
	if amount <= 0 {
		return 0, 0, fmt.Errorf("quote amount must be positive")
	}
	if amount < route.MinAmount {
		return 0, 0, fmt.Errorf("amount below route %s minimum of %d", route.RouteID, route.MinAmount)
	}
	if route.MaxAmount > 0 && amount > route.MaxAmount {
		return 0, 0, fmt.Errorf("amount above route %s maximum of %d", route.RouteID, route.MaxAmount)
	}

	bps := route.Fees.RateFor(priority)
	if route.RequireKYC {
		bps += route.Fees.KYCSurchargeBps
	}

	fee = amount * bps / 10_000
	fee -= fee * discountPercent(amount, tiers) / 100

	return fee, amount - fee, nil
}

// discountPercent returns the discount for the highest tier the amount
// reaches, or zero when no tier applies.
func discountPercent(amount int64, tiers []DiscountTier) int64 {
	sorted := make([]DiscountTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold > sorted[j].Threshold })

	for _, tier := range sorted {
		if amount >= tier.Threshold {
			return tier.Percent
		}
	}
	return 0
}
