package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRoute() RouteConfig {
	return RouteConfig{
		RouteID:   RouteV0,
		Capacity:  1000,
		MinAmount: ToMinorUnits(1),
		MaxAmount: ToMinorUnits(1_000_000),
		Fees: FeeSchedule{
			BasisPoints: map[string]int64{
				PriorityLow:      10,
				PriorityNormal:   15,
				PriorityHigh:     20,
				PriorityCritical: 25,
			},
			KYCSurchargeBps: 5,
		},
	}
}

func testTiers() []DiscountTier {
	return []DiscountTier{
		{Threshold: ToMinorUnits(10_000), Percent: 5},
		{Threshold: ToMinorUnits(50_000), Percent: 10},
		{Threshold: ToMinorUnits(250_000), Percent: 15},
	}
}

func TestQuoteNormalPriority(t *testing.T) {
	// 5000 at 0.15% with no discount tier reached.
	fee, net, err := Quote(ToMinorUnits(5000), PriorityNormal, testRoute(), testTiers())
	assert.NoError(t, err)
	assert.Equal(t, 7.5, FromMinorUnits(fee))
	assert.Equal(t, 4992.5, FromMinorUnits(net))
}

func TestQuoteIsPure(t *testing.T) {
	route := testRoute()
	tiers := testTiers()
	fee1, net1, err1 := Quote(ToMinorUnits(12_345), PriorityHigh, route, tiers)
	fee2, net2, err2 := Quote(ToMinorUnits(12_345), PriorityHigh, route, tiers)
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, fee1, fee2)
	assert.Equal(t, net1, net2)
}

func TestQuoteVolumeDiscounts(t *testing.T) {
	route := testRoute()
	tiers := testTiers()

	// 10,000 at 0.15% = 15.00, minus the 5% tier = 14.25.
	fee, _, err := Quote(ToMinorUnits(10_000), PriorityNormal, route, tiers)
	assert.NoError(t, err)
	assert.Equal(t, 14.25, FromMinorUnits(fee))

	// 250,000 at 0.15% = 375.00, minus the 15% tier = 318.75.
	fee, _, err = Quote(ToMinorUnits(250_000), PriorityNormal, route, tiers)
	assert.NoError(t, err)
	assert.Equal(t, 318.75, FromMinorUnits(fee))
}

func TestQuoteKYCSurcharge(t *testing.T) {
	route := testRoute()
	route.RouteID = RouteKYC
	route.RequireKYC = true

	// 0.15% + 0.05% surcharge = 0.20% of 5000 = 10.00.
	fee, net, err := Quote(ToMinorUnits(5000), PriorityNormal, route, nil)
	assert.NoError(t, err)
	assert.Equal(t, 10.0, FromMinorUnits(fee))
	assert.Equal(t, 4990.0, FromMinorUnits(net))
}

func TestQuoteRejectsOutOfBounds(t *testing.T) {
	route := testRoute()

	_, _, err := Quote(ToMinorUnits(0.5), PriorityNormal, route, nil)
	assert.Error(t, err)

	_, _, err = Quote(ToMinorUnits(2_000_000), PriorityNormal, route, nil)
	assert.Error(t, err)

	_, _, err = Quote(-1, PriorityNormal, route, nil)
	assert.Error(t, err)
}

func TestQuoteUnknownPriorityFallsBackToNormal(t *testing.T) {
	fee, _, err := Quote(ToMinorUnits(5000), "unknown", testRoute(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 7.5, FromMinorUnits(fee))
}
