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

package privacypool

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
)

const (
	OpDeposit  byte = 0
	OpWithdraw byte = 1

	fieldLen = 32

	DepositDataLen  = 1 + fieldLen + 8 + 1
	WithdrawDataLen = 1 + fieldLen + fieldLen + 8 + 1
)

// DepositInstruction is the decoded form of deposit instruction data.
type DepositInstruction struct {
	Opcode     byte
	Commitment *big.Int
	Amount     uint64
	AssetType  uint8
}

// WithdrawInstruction is the decoded form of withdraw instruction data.
type WithdrawInstruction struct {
	Opcode    byte
	Root      *big.Int
	Nullifier *big.Int
	Amount    uint64
	AssetType uint8
}

// ParseField reads a non-negative field element written in decimal or 0x-prefixed hex.
func ParseField(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		_, ok = n.SetString(value[2:], 16)
	} else {
		_, ok = n.SetString(value, 10)
	}
	if !ok {
		return nil, fmt.Errorf("invalid field element %q", value)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("field element %q is negative", value)
	}
	if n.BitLen() > fieldLen*8 {
		return nil, fmt.Errorf("field element %q does not fit in %d bytes", value, fieldLen)
	}
	return n, nil
}

// field32 writes n big-endian into a 32 byte slot.
func field32(dst []byte, n *big.Int) {
	n.FillBytes(dst[:fieldLen])
}

// BuildDepositData encodes opcode(0) ‖ field32(commitment) ‖ u64le(amount) ‖ u8(assetType).
func BuildDepositData(commitment string, amount uint64, assetType uint8) ([]byte, error) {
	c, err := ParseField(commitment)
	if err != nil {
		return nil, err
	}

	data := make([]byte, DepositDataLen)
	data[0] = OpDeposit
	field32(data[1:], c)
	binary.LittleEndian.PutUint64(data[1+fieldLen:], amount)
	data[DepositDataLen-1] = assetType
	return data, nil
}

// BuildWithdrawData encodes opcode(1) ‖ field32(root) ‖ field32(nullifier) ‖ u64le(amount) ‖ u8(assetType).
func BuildWithdrawData(root, nullifier string, amount uint64, assetType uint8) ([]byte, error) {
	r, err := ParseField(root)
	if err != nil {
		return nil, err
	}
	n, err := ParseField(nullifier)
	if err != nil {
		return nil, err
	}

	data := make([]byte, WithdrawDataLen)
	data[0] = OpWithdraw
	field32(data[1:], r)
	field32(data[1+fieldLen:], n)
	binary.LittleEndian.PutUint64(data[1+2*fieldLen:], amount)
	data[WithdrawDataLen-1] = assetType
	return data, nil
}

func DecodeDepositData(data []byte) (*DepositInstruction, error) {
	if len(data) != DepositDataLen {
		return nil, fmt.Errorf("deposit data must be %d bytes, got %d", DepositDataLen, len(data))
	}
	if data[0] != OpDeposit {
		return nil, fmt.Errorf("unexpected opcode %d for deposit", data[0])
	}
	return &DepositInstruction{
		Opcode:     data[0],
		Commitment: new(big.Int).SetBytes(data[1 : 1+fieldLen]),
		Amount:     binary.LittleEndian.Uint64(data[1+fieldLen:]),
		AssetType:  data[DepositDataLen-1],
	}, nil
}

func DecodeWithdrawData(data []byte) (*WithdrawInstruction, error) {
	if len(data) != WithdrawDataLen {
		return nil, fmt.Errorf("withdraw data must be %d bytes, got %d", WithdrawDataLen, len(data))
	}
	if data[0] != OpWithdraw {
		return nil, fmt.Errorf("unexpected opcode %d for withdraw", data[0])
	}
	return &WithdrawInstruction{
		Opcode:    data[0],
		Root:      new(big.Int).SetBytes(data[1 : 1+fieldLen]),
		Nullifier: new(big.Int).SetBytes(data[1+fieldLen : 1+2*fieldLen]),
		Amount:    binary.LittleEndian.Uint64(data[1+2*fieldLen:]),
		AssetType: data[WithdrawDataLen-1],
	}, nil
}
