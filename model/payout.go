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
	"errors"
	"fmt"
	"time"
)

const (
	StatusCreated       = "CREATED"
	StatusRouteAssigned = "ROUTE_ASSIGNED"
	StatusDispatched    = "DISPATCHED"
	StatusConfirmed     = "CONFIRMED"
	StatusCompleted     = "COMPLETED"
	StatusFailed        = "FAILED"
	StatusCancelled     = "CANCELLED"
	StatusRefunded      = "REFUNDED"
)

// Priority levels accepted on a payout request.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Asset types the engine can route.
const (
	AssetTRX  = "TRX"
	AssetUSDT = "USDT"
)

// Stable reason codes carried on terminal failures so callers and webhook
// consumers can branch on failure class.
const (
	ReasonBackendRejected = "backend_rejected"
	ReasonBackendTimeout  = "backend_timeout"
)

// MaxMetadataEntries bounds the optional metadata map accepted on a request.
const MaxMetadataEntries = 20

// PayoutRequest is the immutable input to the engine. Once accepted it is
// copied onto a Payout record and never mutated.
type PayoutRequest struct {
	PayoutID         string                 `json:"payout_id,omitempty"`
	RecipientAddress string                 `json:"recipient_address"`
	PreciseAmount    int64                  `json:"precise_amount"`
	AssetType        string                 `json:"asset_type"`
	PreferredRoute   string                 `json:"preferred_route,omitempty"`
	Priority         string                 `json:"priority"`
	MetaData         map[string]interface{} `json:"meta_data,omitempty"`
}

// Payout is the mutable record tracking a single payout through its lifecycle.
// It is owned exclusively by the lifecycle manager; the persistence store is a
// durable mirror, not a second owner.
type Payout struct {
	PayoutID         string                 `json:"payout_id"`
	RecipientAddress string                 `json:"recipient_address"`
	PreciseAmount    int64                  `json:"precise_amount"`
	AssetType        string                 `json:"asset_type"`
	Priority         string                 `json:"priority"`
	AssignedRoute    string                 `json:"assigned_route"`
	Fee              int64                  `json:"fee"`
	NetAmount        int64                  `json:"net_amount"`
	Status           string                 `json:"status"`
	BackendRef       string                 `json:"backend_ref,omitempty"`
	Confirmations    int                    `json:"confirmations"`
	FailureReason    string                 `json:"failure_reason,omitempty"`
	BatchID          string                 `json:"batch_id,omitempty"`
	MetaData         map[string]interface{} `json:"meta_data,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Terminal reports whether the payout has reached a state it can never leave,
// other than the explicit completed→refunded branch.
func (p *Payout) Terminal() bool {
	switch p.Status {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// ValidPriority reports whether the given priority is a known level.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ValidateAddress checks the recipient address format for the asset type.
// TRX and USDT settle on the same network, so both use base58 addresses that
// start with 'T' and are exactly 34 characters.
func ValidateAddress(address, assetType string) error {
	switch assetType {
	case AssetTRX, AssetUSDT:
		if len(address) != 34 || address[0] != 'T' {
			return fmt.Errorf("invalid %s recipient address format", assetType)
		}
		return nil
	default:
		return fmt.Errorf("unsupported asset type %q", assetType)
	}
}

// Validate checks a payout request against the engine's acceptance rules.
// maxSinglePayout is the configured per-request ceiling in micro-units.
func (r *PayoutRequest) Validate(maxSinglePayout int64) error {
	if r.PreciseAmount <= 0 {
		return errors.New("payout amount must be positive")
	}
	if maxSinglePayout > 0 && r.PreciseAmount > maxSinglePayout {
		return fmt.Errorf("payout amount exceeds maximum single payout of %d", maxSinglePayout)
	}
	if !ValidPriority(r.Priority) {
		return fmt.Errorf("unknown priority %q", r.Priority)
	}
	if len(r.MetaData) > MaxMetadataEntries {
		return fmt.Errorf("metadata map exceeds %d entries", MaxMetadataEntries)
	}
	return ValidateAddress(r.RecipientAddress, r.AssetType)
}

// ToPayout builds the initial payout record from an accepted request.
func (r *PayoutRequest) ToPayout(now time.Time) *Payout {
	id := r.PayoutID
	if id == "" {
		id = GenerateUUIDWithSuffix("po")
	}
	return &Payout{
		PayoutID:         id,
		RecipientAddress: r.RecipientAddress,
		PreciseAmount:    r.PreciseAmount,
		AssetType:        r.AssetType,
		Priority:         r.Priority,
		Status:           StatusCreated,
		MetaData:         r.MetaData,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
