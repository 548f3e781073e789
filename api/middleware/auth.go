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

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// WalletKey is the gin context key holding the authenticated wallet address.
const WalletKey = "wallet"

// TokenParser resolves a bearer token to the wallet it was issued to.
type TokenParser interface {
	Parse(token string) (string, error)
}

// BearerAuth requires an "Authorization: Bearer <token>" header and stores the
// token's wallet under WalletKey.
func BearerAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		wallet, err := parser.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(WalletKey, wallet)
		c.Next()
	}
}

// Wallet returns the authenticated wallet set by BearerAuth.
func Wallet(c *gin.Context) string {
	return c.GetString(WalletKey)
}
