/*
Copyright 2024 Blnk Finance Authors.

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
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shadowpay/shadowpay/internal/privacypool"
	"github.com/shadowpay/shadowpay/model"
	"github.com/shopspring/decimal"
)

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.NullDecimal)
	if !ok || !amount.Valid {
		return nil
	}
	if !amount.Decimal.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func requiredAmount(value interface{}) error {
	amount, ok := value.(decimal.NullDecimal)
	if !ok || !amount.Valid {
		return errors.New("cannot be blank")
	}
	return nil
}

func walletAddress(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if err := privacypool.ValidateAddress(s); err != nil {
		return errors.New("must be a valid wallet address")
	}
	return nil
}

func (l *CreateLink) ValidateCreateLink() error {
	anyAmount := strings.EqualFold(strings.TrimSpace(l.AmountType), string(model.AmountAny))
	return validation.ValidateStruct(l,
		validation.Field(&l.CreatorID, validation.Required),
		validation.Field(&l.AmountType, validation.In(string(model.AmountFixed), string(model.AmountAny))),
		validation.Field(&l.Amount,
			validation.When(!anyAmount, validation.By(requiredAmount)),
			validation.By(positiveAmount),
		),
	)
}

func (p *PayLink) ValidatePayLink() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Lamports, validation.Min(int64(0))),
		validation.Field(&p.Amount, validation.By(positiveAmount)),
		validation.Field(&p.PayerPublicKey, validation.By(walletAddress)),
	)
}

// ValidateClaimLink only checks presence; the address format is the service's "Invalid wallet".
func (c *ClaimLink) ValidateClaimLink() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RecipientWallet, validation.Required),
	)
}

func (l *Login) ValidateLogin() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.PublicKey, validation.Required),
		validation.Field(&l.Message, validation.Required),
		validation.Field(&l.Signature, validation.Required),
	)
}
