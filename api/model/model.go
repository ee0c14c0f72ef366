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

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/routepay/payrouter/model"
)

func validPriority(value interface{}) error {
	priority, ok := value.(string)
	if !ok {
		return errors.New("invalid type for priority")
	}
	if priority != "" && !model.ValidPriority(priority) {
		return errors.New("priority must be one of low, normal, high, critical")
	}
	return nil
}

func (p *CreatePayout) ValidateCreatePayout() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.RecipientAddress, validation.Required),
		validation.Field(&p.Amount, validation.Required, validation.Min(0.000001)),
		validation.Field(&p.AssetType, validation.Required, validation.In(model.AssetTRX, model.AssetUSDT)),
		validation.Field(&p.Priority, validation.By(validPriority)),
	)
}

func (b *CreateBatch) ValidateCreateBatch() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Payouts, validation.Required, validation.By(func(interface{}) error {
			for i := range b.Payouts {
				if err := b.Payouts[i].ValidateCreatePayout(); err != nil {
					return err
				}
			}
			return nil
		})),
		validation.Field(&b.Strategy, validation.By(func(value interface{}) error {
			strategy, ok := value.(string)
			if !ok {
				return errors.New("invalid type for strategy")
			}
			if strategy != "" && !model.ValidStrategy(strategy) {
				return errors.New("strategy must be one of optimal, balanced, fast, cost_efficient")
			}
			return nil
		})),
	)
}

func (r *RefundPayout) ValidateRefundPayout() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, validation.In(
			model.RefundReasonRequested,
			model.RefundReasonDispute,
			model.RefundReasonSettlementFail,
			model.RefundReasonOperational,
		)),
	)
}
