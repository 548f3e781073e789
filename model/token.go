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
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Token is the asset a link is denominated in.
type Token string

const (
	TokenSOL  Token = "SOL"
	TokenUSDC Token = "USDC"
	TokenUSDT Token = "USDT"
)

type tokenInfo struct {
	decimals  int32
	assetType uint8
}

var tokens = map[Token]tokenInfo{
	TokenSOL:  {decimals: 9, assetType: 0},
	TokenUSDC: {decimals: 6, assetType: 1},
	TokenUSDT: {decimals: 6, assetType: 2},
}

// ParseToken normalises a symbol. An empty symbol means SOL.
func ParseToken(symbol string) (Token, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return TokenSOL, nil
	}
	t := Token(symbol)
	if _, ok := tokens[t]; !ok {
		return "", fmt.Errorf("unsupported token %q", symbol)
	}
	return t, nil
}

func (t Token) Decimals() int32 {
	return tokens[t].decimals
}

// AssetType is the asset byte used in privacy-pool instruction data.
func (t Token) AssetType() uint8 {
	return tokens[t].assetType
}

// ToBaseUnits converts a decimal amount to the token's smallest unit.
// Amounts with more precision than the token supports are rejected, never rounded.
func ToBaseUnits(amount string, token Token) (int64, error) {
	info, ok := tokens[token]
	if !ok {
		return 0, fmt.Errorf("unsupported token %q", token)
	}

	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", amount)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than zero")
	}

	units := d.Shift(info.decimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount, info.decimals)
	}
	if units.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("amount %s is too large", amount)
	}
	return units.IntPart(), nil
}

// FromBaseUnits renders base units as a decimal amount of the token.
func FromBaseUnits(units int64, token Token) string {
	return decimal.New(units, -tokens[token].decimals).String()
}
