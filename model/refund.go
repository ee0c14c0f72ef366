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
	"time"
)

// Enumerated refund reasons.
const (
	RefundReasonRequested      = "requested_by_sender"
	RefundReasonDispute        = "dispute"
	RefundReasonSettlementFail = "settlement_failure"
	RefundReasonOperational    = "operational_error"
)

const (
	RefundIssued = "ISSUED"
)

// ValidRefundReason reports whether the reason is one of the enumerated set.
func ValidRefundReason(reason string) bool {
	switch reason {
	case RefundReasonRequested, RefundReasonDispute, RefundReasonSettlementFail, RefundReasonOperational:
		return true
	}
	return false
}

// Refund records a refund issued against a completed or failed payout. A
// refund never outlives its parent payout's retention window.
type Refund struct {
	RefundID  string    `json:"refund_id"`
	PayoutID  string    `json:"payout_id"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRefund builds a refund record for a payout.
func NewRefund(payoutID, reason string, now time.Time) (*Refund, error) {
	if !ValidRefundReason(reason) {
		return nil, fmt.Errorf("unknown refund reason %q", reason)
	}
	return &Refund{
		RefundID:  GenerateUUIDWithSuffix("rf"),
		PayoutID:  payoutID,
		Reason:    reason,
		Status:    RefundIssued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
