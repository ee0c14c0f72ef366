package model

import (
	"github.com/shopspring/decimal"

	"github.com/routepay/payrouter/model"
)

// CreatePayout is the request body for a single payout. Amounts arrive as
// decimal unit values and are converted to integer micro-units before they
// reach the engine.
type CreatePayout struct {
	PayoutID         string                 `json:"payout_id,omitempty"`
	RecipientAddress string                 `json:"recipient_address"`
	Amount           float64                `json:"amount"`
	AssetType        string                 `json:"asset_type"`
	PreferredRoute   string                 `json:"preferred_route,omitempty"`
	Priority         string                 `json:"priority"`
	MetaData         map[string]interface{} `json:"meta_data,omitempty"`
}

// CreateBatch is the request body for a batch submission.
type CreateBatch struct {
	Strategy string         `json:"strategy,omitempty"`
	Payouts  []CreatePayout `json:"payouts"`
}

// RefundPayout is the request body for issuing a refund.
type RefundPayout struct {
	Reason string `json:"reason"`
}

// SetRouteOffline toggles a route's administrative offline state.
type SetRouteOffline struct {
	Offline bool `json:"offline"`
}

// toMicroUnits converts a decimal unit amount to integer micro-units without
// accumulating float error.
func toMicroUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(model.MinorUnitsPerUnit)).IntPart()
}

// ToPayoutRequest converts the API shape to the engine's request type.
func (p *CreatePayout) ToPayoutRequest() *model.PayoutRequest {
	priority := p.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	return &model.PayoutRequest{
		PayoutID:         p.PayoutID,
		RecipientAddress: p.RecipientAddress,
		PreciseAmount:    toMicroUnits(p.Amount),
		AssetType:        p.AssetType,
		PreferredRoute:   p.PreferredRoute,
		Priority:         priority,
		MetaData:         p.MetaData,
	}
}

// ToPayoutRequests converts every item of a batch, preserving order.
func (b *CreateBatch) ToPayoutRequests() []*model.PayoutRequest {
	reqs := make([]*model.PayoutRequest, 0, len(b.Payouts))
	for i := range b.Payouts {
		reqs = append(reqs, b.Payouts[i].ToPayoutRequest())
	}
	return reqs
}
