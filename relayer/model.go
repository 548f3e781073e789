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

package relayer

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shadowpay/shadowpay/internal/privacypool"
)

type DepositRequest struct {
	Lamports   int64  `json:"lamports"`
	LinkID     string `json:"link_id,omitempty"`
	Token      string `json:"token,omitempty"`
	TransferTx string `json:"transfer_tx,omitempty"`
}

func (d *DepositRequest) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Lamports, validation.Required, validation.Min(int64(1))),
	)
}

type WithdrawRequest struct {
	Commitment string `json:"commitment"`
	Recipient  string `json:"recipient"`
	Lamports   int64  `json:"lamports"`
}

func (w *WithdrawRequest) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Commitment, validation.Required),
		validation.Field(&w.Recipient, validation.Required, validation.By(address)),
		validation.Field(&w.Lamports, validation.Required, validation.Min(int64(1))),
	)
}

type DepositInstructionRequest struct {
	Commitment string `json:"commitment"`
	Amount     uint64 `json:"amount"`
	Token      string `json:"token,omitempty"`
}

func (d *DepositInstructionRequest) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Commitment, validation.Required),
		validation.Field(&d.Amount, validation.Required),
	)
}

type WithdrawInstructionRequest struct {
	Root      string `json:"root"`
	Nullifier string `json:"nullifier"`
	Amount    uint64 `json:"amount"`
	Token     string `json:"token,omitempty"`
}

func (w *WithdrawInstructionRequest) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Root, validation.Required),
		validation.Field(&w.Nullifier, validation.Required),
		validation.Field(&w.Amount, validation.Required),
	)
}

func address(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	return privacypool.ValidateAddress(s)
}
