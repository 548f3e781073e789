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

package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
)

const issuer = "shadowpay"

var (
	ErrInvalidSignature = errors.New("Invalid signature")
	ErrInvalidToken     = errors.New("Invalid token")
)

// VerifySignature checks a wallet's ed25519 signature over message. The public key
// is base58; the signature may be base58 or base64.
func VerifySignature(publicKey, message, signature string) error {
	if publicKey == "" || message == "" || signature == "" {
		return ErrInvalidSignature
	}
	pub, err := base58.Decode(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return ErrInvalidSignature
	}
	sig, err := decodeSignature(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(pub, []byte(message), sig) {
		return ErrInvalidSignature
	}
	return nil
}

func decodeSignature(s string) ([]byte, error) {
	if sig, err := base58.Decode(s); err == nil && len(sig) == ed25519.SignatureSize {
		return sig, nil
	}
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, ErrInvalidSignature
	}
	return sig, nil
}

// TokenIssuer issues and checks HS256 bearer tokens whose subject is a wallet address.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(wallet string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   wallet,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse returns the wallet a valid token was issued to.
func (t *TokenIssuer) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
