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
	"strings"

	"github.com/shadowpay/shadowpay"
	"github.com/shadowpay/shadowpay/model"
	"github.com/shopspring/decimal"
)

// CreateLink accepts the amount as a JSON number or string.
type CreateLink struct {
	Amount     decimal.NullDecimal `json:"amount"`
	AmountType string              `json:"amount_type"`
	Token      string              `json:"token"`
	CreatorID  string              `json:"creator_id"`
}

type PayLink struct {
	TransferTx     string              `json:"transferTx"`
	Amount         decimal.NullDecimal `json:"amount"`
	Lamports       int64               `json:"lamports"`
	PayerPublicKey string              `json:"payerPublicKey"`
}

type ClaimLink struct {
	RecipientWallet string `json:"recipientWallet"`
}

type Login struct {
	PublicKey string `json:"publicKey"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

func (l *CreateLink) ToCreateLinkInput() shadowpay.CreateLinkInput {
	input := shadowpay.CreateLinkInput{
		AmountType: model.AmountType(strings.ToLower(strings.TrimSpace(l.AmountType))),
		Token:      l.Token,
		CreatorID:  l.CreatorID,
	}
	if l.Amount.Valid {
		input.Amount = l.Amount.Decimal.String()
	}
	return input
}

func (p *PayLink) ToPayInput() shadowpay.PayInput {
	input := shadowpay.PayInput{
		Lamports:       p.Lamports,
		TransferTx:     p.TransferTx,
		PayerPublicKey: p.PayerPublicKey,
	}
	if p.Amount.Valid {
		input.Amount = p.Amount.Decimal.String()
	}
	return input
}
