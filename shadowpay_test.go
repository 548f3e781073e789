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
	"crypto/ed25519"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/database"
	"github.com/shadowpay/shadowpay/internal/relayerclient"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type mockRelayer struct {
	mock.Mock
}

func (m *mockRelayer) Deposit(ctx context.Context, req relayerclient.DepositRequest) (*relayerclient.DepositResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*relayerclient.DepositResponse)
	return res, args.Error(1)
}

func (m *mockRelayer) Withdraw(ctx context.Context, req relayerclient.WithdrawRequest) (*relayerclient.WithdrawResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*relayerclient.WithdrawResponse)
	return res, args.Error(1)
}

func testConfig() *config.Configuration {
	conf := &config.Configuration{
		Server:  config.ServerConfig{FrontendOrigin: "https://shadowpay.test/"},
		Auth:    config.AuthConfig{JWTSecret: testSecret, TokenTTLSec: 3600},
		Relayer: config.RelayerClientConfig{Url: "http://relayer.test", TimeoutSec: 5},
	}
	config.MockConfig(conf)
	return conf
}

// newService wires a service over a real file store in a temp dir.
func newService(t *testing.T, opts ...Option) (*ShadowPay, *mockRelayer) {
	t.Helper()
	store, err := database.NewFileStore(filepath.Join(t.TempDir(), "links.json"))
	require.NoError(t, err)
	relayer := &mockRelayer{}
	opts = append([]Option{WithNotifier(func(error) {})}, opts...)
	return NewShadowPay(testConfig(), store, relayer, opts...), relayer
}

func newWallet(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return base58.Encode(pub), priv
}

func fixedClock(s *ShadowPay, at time.Time) {
	s.now = func() time.Time { return at }
}
