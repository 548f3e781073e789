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
	"fmt"
	"time"
)

type LinkStatus string

const (
	LinkStatusCreated   LinkStatus = "created"
	LinkStatusPaid      LinkStatus = "paid"
	LinkStatusWithdrawn LinkStatus = "withdrawn"
)

type AmountType string

const (
	AmountFixed AmountType = "fixed"
	AmountAny   AmountType = "any"
)

var ErrInvariantViolation = errors.New("link invariant violated")

// Link is a shareable receive intent. It moves created -> paid -> withdrawn and never back.
type Link struct {
	LinkID          string     `json:"id"`
	CreatorID       string     `json:"creator_id"`
	Amount          string     `json:"amount,omitempty"`
	AmountType      AmountType `json:"amount_type"`
	Token           Token      `json:"token"`
	Status          LinkStatus `json:"status"`
	Commitment      *string    `json:"commitment"`
	PaidLamports    int64      `json:"paid_lamports,omitempty"`
	DepositTx       string     `json:"deposit_tx,omitempty"`
	WithdrawTx      string     `json:"withdraw_tx,omitempty"`
	RecipientWallet string     `json:"recipient_wallet,omitempty"`
	PaymentCount    int        `json:"payment_count"`
	CreatedAt       time.Time  `json:"created_at"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	WithdrawnAt     *time.Time `json:"withdrawn_at,omitempty"`
}

var transitions = map[LinkStatus]LinkStatus{
	LinkStatusCreated: LinkStatusPaid,
	LinkStatusPaid:    LinkStatusWithdrawn,
}

// CanTransition reports whether the link may move to the given status.
func (l *Link) CanTransition(to LinkStatus) bool {
	next, ok := transitions[l.Status]
	return ok && next == to
}

// CheckInvariants verifies that a commitment is present exactly when the link has been paid.
func (l *Link) CheckInvariants() error {
	hasCommitment := l.Commitment != nil && *l.Commitment != ""
	switch l.Status {
	case LinkStatusCreated:
		if hasCommitment {
			return fmt.Errorf("%w: link %s is created but carries a commitment", ErrInvariantViolation, l.LinkID)
		}
	case LinkStatusPaid, LinkStatusWithdrawn:
		if !hasCommitment {
			return fmt.Errorf("%w: link %s is %s without a commitment", ErrInvariantViolation, l.LinkID, l.Status)
		}
	default:
		return fmt.Errorf("%w: link %s has unknown status %q", ErrInvariantViolation, l.LinkID, l.Status)
	}
	return nil
}

// ExpectedBaseUnits is the exact amount a fixed link must be paid with.
func (l *Link) ExpectedBaseUnits() (int64, error) {
	if l.AmountType == AmountAny {
		return 0, errors.New("link accepts any amount")
	}
	return ToBaseUnits(l.Amount, l.Token)
}

// Payment is what a confirmed deposit writes onto a created link.
type Payment struct {
	Commitment string
	DepositTx  string
	Lamports   int64
	PaidAt     time.Time
}

// Withdrawal is what a confirmed withdraw writes onto a paid link.
type Withdrawal struct {
	WithdrawTx      string
	RecipientWallet string
	WithdrawnAt     time.Time
}

// ApplyPayment moves a created link to paid.
func (l *Link) ApplyPayment(p Payment) error {
	if !l.CanTransition(LinkStatusPaid) {
		return fmt.Errorf("link %s cannot be paid from status %s", l.LinkID, l.Status)
	}
	commitment := p.Commitment
	paidAt := p.PaidAt
	l.Status = LinkStatusPaid
	l.Commitment = &commitment
	l.DepositTx = p.DepositTx
	l.PaidLamports = p.Lamports
	l.PaymentCount++
	l.PaidAt = &paidAt
	return nil
}

// ApplyWithdrawal moves a paid link to withdrawn.
func (l *Link) ApplyWithdrawal(w Withdrawal) error {
	if !l.CanTransition(LinkStatusWithdrawn) {
		return fmt.Errorf("link %s cannot be withdrawn from status %s", l.LinkID, l.Status)
	}
	if l.Commitment == nil || *l.Commitment == "" {
		return fmt.Errorf("%w: link %s is paid without a commitment", ErrInvariantViolation, l.LinkID)
	}
	withdrawnAt := w.WithdrawnAt
	l.Status = LinkStatusWithdrawn
	l.WithdrawTx = w.WithdrawTx
	l.RecipientWallet = w.RecipientWallet
	l.WithdrawnAt = &withdrawnAt
	return nil
}
