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
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/wacul/ptr"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		token   Token
		want    int64
		wantErr bool
	}{
		{name: "fractional SOL", amount: "1.5", token: TokenSOL, want: 1_500_000_000},
		{name: "whole SOL", amount: "2", token: TokenSOL, want: 2_000_000_000},
		{name: "smallest SOL unit", amount: "0.000000001", token: TokenSOL, want: 1},
		{name: "USDC", amount: "12.34", token: TokenUSDC, want: 12_340_000},
		{name: "trailing zeros beyond precision", amount: "1.5000000000", token: TokenSOL, want: 1_500_000_000},
		{name: "too precise", amount: "0.0000000001", token: TokenSOL, wantErr: true},
		{name: "too precise for USDT", amount: "1.0000001", token: TokenUSDT, wantErr: true},
		{name: "zero", amount: "0", token: TokenSOL, wantErr: true},
		{name: "negative", amount: "-1", token: TokenSOL, wantErr: true},
		{name: "not a number", amount: "abc", token: TokenSOL, wantErr: true},
		{name: "overflow", amount: "10000000000000", token: TokenSOL, wantErr: true},
		{name: "unknown token", amount: "1", token: Token("DOGE"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.amount, tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromBaseUnits(t *testing.T) {
	assert.Equal(t, "1.5", FromBaseUnits(1_500_000_000, TokenSOL))
	assert.Equal(t, "12.34", FromBaseUnits(12_340_000, TokenUSDC))
}

func TestParseToken(t *testing.T) {
	tok, err := ParseToken("")
	assert.NoError(t, err)
	assert.Equal(t, TokenSOL, tok)

	tok, err = ParseToken(" usdc ")
	assert.NoError(t, err)
	assert.Equal(t, TokenUSDC, tok)
	assert.Equal(t, uint8(1), tok.AssetType())
	assert.Equal(t, int32(6), tok.Decimals())

	_, err = ParseToken("ETH")
	assert.EqualError(t, err, `unsupported token "ETH"`)
}

func TestLinkTransitions(t *testing.T) {
	link := Link{Status: LinkStatusCreated}
	assert.True(t, link.CanTransition(LinkStatusPaid))
	assert.False(t, link.CanTransition(LinkStatusWithdrawn))
	assert.False(t, link.CanTransition(LinkStatusCreated))

	link.Status = LinkStatusPaid
	assert.True(t, link.CanTransition(LinkStatusWithdrawn))
	assert.False(t, link.CanTransition(LinkStatusCreated))
	assert.False(t, link.CanTransition(LinkStatusPaid))

	link.Status = LinkStatusWithdrawn
	for _, to := range []LinkStatus{LinkStatusCreated, LinkStatusPaid, LinkStatusWithdrawn} {
		assert.False(t, link.CanTransition(to), "withdrawn must be terminal, got transition to %s", to)
	}
}

func TestLinkCheckInvariants(t *testing.T) {
	tests := []struct {
		name    string
		link    Link
		wantErr bool
	}{
		{name: "created without commitment", link: Link{LinkID: "a", Status: LinkStatusCreated}},
		{name: "created with commitment", link: Link{LinkID: "b", Status: LinkStatusCreated, Commitment: ptr.String("c1")}, wantErr: true},
		{name: "paid with commitment", link: Link{LinkID: "c", Status: LinkStatusPaid, Commitment: ptr.String("c1")}},
		{name: "paid without commitment", link: Link{LinkID: "d", Status: LinkStatusPaid}, wantErr: true},
		{name: "paid with empty commitment", link: Link{LinkID: "e", Status: LinkStatusPaid, Commitment: ptr.String("")}, wantErr: true},
		{name: "withdrawn with commitment", link: Link{LinkID: "f", Status: LinkStatusWithdrawn, Commitment: ptr.String("c1")}},
		{name: "withdrawn without commitment", link: Link{LinkID: "g", Status: LinkStatusWithdrawn}, wantErr: true},
		{name: "unknown status", link: Link{LinkID: "h", Status: "refunded"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.link.CheckInvariants()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvariantViolation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExpectedBaseUnits(t *testing.T) {
	link := Link{Amount: "1.5", AmountType: AmountFixed, Token: TokenSOL}
	units, err := link.ExpectedBaseUnits()
	assert.NoError(t, err)
	assert.Equal(t, int64(1_500_000_000), units)

	link.AmountType = AmountAny
	_, err = link.ExpectedBaseUnits()
	assert.Error(t, err)
}

func TestGenerateLinkID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := GenerateLinkID()
		assert.NoError(t, err)
		decoded, err := base58.Decode(id)
		assert.NoError(t, err)
		assert.Len(t, decoded, linkIDBytes)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestApplyPaymentAndWithdrawal(t *testing.T) {
	now := time.Now().UTC()
	link := Link{LinkID: "l1", Status: LinkStatusCreated}

	assert.NoError(t, link.ApplyPayment(Payment{Commitment: "c1", DepositTx: "dep", Lamports: 5, PaidAt: now}))
	assert.Equal(t, LinkStatusPaid, link.Status)
	assert.Equal(t, "c1", *link.Commitment)
	assert.Equal(t, 1, link.PaymentCount)
	assert.NoError(t, link.CheckInvariants())

	assert.Error(t, link.ApplyPayment(Payment{Commitment: "c2"}), "a paid link cannot be paid twice")
	assert.Equal(t, "c1", *link.Commitment)

	assert.NoError(t, link.ApplyWithdrawal(Withdrawal{WithdrawTx: "wd", RecipientWallet: "w", WithdrawnAt: now}))
	assert.Equal(t, LinkStatusWithdrawn, link.Status)
	assert.Equal(t, "c1", *link.Commitment)
	assert.Error(t, link.ApplyWithdrawal(Withdrawal{WithdrawTx: "again"}))

	broken := Link{LinkID: "l2", Status: LinkStatusPaid}
	assert.ErrorIs(t, broken.ApplyWithdrawal(Withdrawal{}), ErrInvariantViolation)
}
