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
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Keypair is the relayer's custodial ed25519 signing key.
type Keypair struct {
	private ed25519.PrivateKey
}

// LoadKeypair reads a keypair file. Both the JSON byte-array format written by
// wallet CLIs and a bare base58 secret are accepted.
func LoadKeypair(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read keypair file")
	}
	raw = bytes.TrimSpace(raw)

	var secret []byte
	if len(raw) > 0 && raw[0] == '[' {
		var ints []int
		if err := json.Unmarshal(raw, &ints); err != nil {
			return nil, errors.Wrap(err, "decode keypair file")
		}
		secret = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("keypair byte %d out of range", i)
			}
			secret[i] = byte(v)
		}
	} else {
		secret, err = base58.Decode(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, errors.Wrap(err, "decode keypair file")
		}
	}
	return KeypairFromSecret(secret)
}

// KeypairFromSecret accepts a 64 byte secret key or a 32 byte seed.
func KeypairFromSecret(secret []byte) (*Keypair, error) {
	switch len(secret) {
	case ed25519.SeedSize:
		return &Keypair{private: ed25519.NewKeyFromSeed(secret)}, nil
	case ed25519.PrivateKeySize:
		derived := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
		if !bytes.Equal(derived[ed25519.SeedSize:], secret[ed25519.SeedSize:]) {
			return nil, errors.New("keypair public half does not match its seed")
		}
		return &Keypair{private: derived}, nil
	default:
		return nil, fmt.Errorf("secret key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(secret))
	}
}

func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.private.Public().(ed25519.PublicKey)
}

// Address is the base58 encoded public key.
func (k *Keypair) Address() string {
	return base58.Encode(k.PublicKey())
}

// Secret returns a copy of the 64 byte secret key.
func (k *Keypair) Secret() []byte {
	return append([]byte(nil), k.private...)
}

func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// ValidateAddress checks that addr is a base58 encoded 32 byte public key.
func ValidateAddress(addr string) error {
	if addr == "" {
		return errors.New("address is empty")
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return errors.Wrap(err, "address is not base58")
	}
	if len(decoded) != ed25519.PublicKeySize {
		return fmt.Errorf("address must decode to %d bytes, got %d", ed25519.PublicKeySize, len(decoded))
	}
	return nil
}
