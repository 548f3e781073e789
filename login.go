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

package shadowpay

import (
	"context"

	"github.com/shadowpay/shadowpay/internal/apierror"
	"github.com/shadowpay/shadowpay/internal/auth"
	"github.com/sirupsen/logrus"
)

// Login verifies that the wallet signed message and returns a bearer token
// whose subject is the wallet address.
func (s *ShadowPay) Login(ctx context.Context, publicKey, message, signature string) (string, error) {
	_, span := tracer.Start(ctx, "Login")
	defer span.End()

	if err := auth.VerifySignature(publicKey, message, signature); err != nil {
		logrus.WithField("wallet", publicKey).Warn("login rejected")
		return "", apierror.NewAPIError(apierror.ErrUnauthorized, "Invalid signature", nil)
	}
	token, err := s.tokens.Issue(publicKey)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to issue token", err)
	}
	return token, nil
}
