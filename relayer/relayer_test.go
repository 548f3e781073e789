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
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/mr-tron/base58"
	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/internal/offload"
	"github.com/shadowpay/shadowpay/internal/privacypool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOffloader struct {
	mock.Mock
}

func (m *mockOffloader) Run(ctx context.Context, req offload.Request) (*offload.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*offload.Result)
	return res, args.Error(1)
}

type stubPool struct {
	balance int64
	err     error
}

func (s stubPool) Deposit(context.Context, privacypool.DepositParams) (*privacypool.DepositResult, error) {
	panic("deposit must be offloaded")
}

func (s stubPool) Withdraw(context.Context, privacypool.WithdrawParams) (*privacypool.WithdrawResult, error) {
	panic("withdraw must be offloaded")
}

func (s stubPool) Balance(context.Context) (*privacypool.Balance, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &privacypool.Balance{Lamports: s.balance}, nil
}

func testConfig() *config.Configuration {
	return &config.Configuration{
		RelayerService: config.RelayerServiceConfig{
			RpcUrl:             "http://pool.test",
			Referrer:           "ref-1",
			DepositTimeoutSec:  60,
			WithdrawTimeoutSec: 120,
		},
	}
}

func setup(t *testing.T, conf *config.Configuration, pool privacypool.Client) (*Relayer, *mockOffloader, *privacypool.Keypair) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	kp, err := privacypool.KeypairFromSecret(priv)
	require.NoError(t, err)

	off := &mockOffloader{}
	return New(conf, kp, pool, off), off, kp
}

func do(r *Relayer, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	r, _, kp := setup(t, testConfig(), stubPool{})

	w := do(r, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, kp.Address(), body["relayer"])
}

func TestDeposit_Success(t *testing.T) {
	r, off, kp := setup(t, testConfig(), stubPool{})

	off.On("Run", mock.Anything, mock.MatchedBy(func(req offload.Request) bool {
		return req.Kind == offload.KindDeposit &&
			req.Lamports == 1_500_000_000 &&
			req.RPCURL == "http://pool.test" &&
			req.Referrer == "ref-1" &&
			req.Timeout == 60*time.Second &&
			bytes.Equal(req.SecretKey, kp.Secret())
	})).Return(&offload.Result{Tx: "sig-1", Commitment: "c-1", Duration: 1500 * time.Millisecond}, nil).Once()

	w := do(r, http.MethodPost, "/deposit", DepositRequest{Lamports: 1_500_000_000, LinkID: "abc"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "c-1", body["commitment"])
	assert.Equal(t, "sig-1", body["tx"])
	assert.Equal(t, float64(1500), body["duration_ms"])
	off.AssertExpectations(t)
}

func TestDeposit_MissingCommitment(t *testing.T) {
	r, off, _ := setup(t, testConfig(), stubPool{})
	off.On("Run", mock.Anything, mock.Anything).Return(&offload.Result{Tx: "sig-2"}, nil).Once()

	w := do(r, http.MethodPost, "/deposit", DepositRequest{Lamports: 10}, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "pool returned no commitment", body["error"])
	assert.Equal(t, "NO_COMMITMENT", body["code"])
	assert.NotContains(t, body, "commitment")
}

func TestDeposit_InvalidAmount(t *testing.T) {
	r, off, _ := setup(t, testConfig(), stubPool{})

	for _, body := range []interface{}{
		map[string]interface{}{},
		map[string]interface{}{"lamports": 0},
		map[string]interface{}{"lamports": -5},
		map[string]interface{}{"lamports": "many"},
	} {
		w := do(r, http.MethodPost, "/deposit", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotEmpty(t, decode(t, w)["error"])
	}
	off.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestDeposit_OffloadFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantError string
		wantCode  string
	}{
		{
			name:      "timeout",
			err:       &offload.TimeoutError{Kind: offload.KindDeposit, After: 60 * time.Second},
			wantError: "deposit timeout after 60000ms",
			wantCode:  "TIMEOUT",
		},
		{
			name:      "crash",
			err:       &offload.UnitStoppedError{ExitCode: 2},
			wantError: "execution unit stopped with exit code 2",
			wantCode:  "UNIT_STOPPED",
		},
		{
			name:      "reported",
			err:       &offload.ReportedError{Message: "insufficient funds"},
			wantError: "insufficient funds",
			wantCode:  "REPORTED",
		},
		{
			name:      "other",
			err:       errors.New("start execution unit: no such file"),
			wantError: "start execution unit: no such file",
			wantCode:  "INTERNAL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, off, _ := setup(t, testConfig(), stubPool{})
			off.On("Run", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := do(r, http.MethodPost, "/deposit", DepositRequest{Lamports: 1}, nil)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestDeposit_DetachedFromCaller(t *testing.T) {
	r, off, _ := setup(t, testConfig(), stubPool{})

	var runErr error
	off.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		runErr = args.Get(0).(context.Context).Err()
	}).Return(&offload.Result{Tx: "sig", Commitment: "c"}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/deposit", bytes.NewBufferString(`{"lamports":5}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, runErr)
}

func TestWithdraw(t *testing.T) {
	r, off, _ := setup(t, testConfig(), stubPool{})
	_, recipientKey, _ := ed25519.GenerateKey(nil)
	recipient := base58.Encode(recipientKey.Public().(ed25519.PublicKey))

	off.On("Run", mock.Anything, mock.MatchedBy(func(req offload.Request) bool {
		return req.Kind == offload.KindWithdraw &&
			req.Commitment == "c-1" &&
			req.Recipient == recipient &&
			req.Lamports == 42 &&
			req.Timeout == 120*time.Second
	})).Return(&offload.Result{Tx: "wd-sig"}, nil).Once()

	w := do(r, http.MethodPost, "/withdraw", WithdrawRequest{Commitment: "c-1", Recipient: recipient, Lamports: 42}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "wd-sig", body["tx"])
	off.AssertExpectations(t)
}

func TestWithdraw_Validation(t *testing.T) {
	r, off, _ := setup(t, testConfig(), stubPool{})

	tests := []struct {
		name string
		body WithdrawRequest
	}{
		{name: "missing commitment", body: WithdrawRequest{Recipient: "11111111111111111111111111111111", Lamports: 1}},
		{name: "missing recipient", body: WithdrawRequest{Commitment: "c", Lamports: 1}},
		{name: "missing lamports", body: WithdrawRequest{Commitment: "c", Recipient: "11111111111111111111111111111111"}},
		{name: "bad recipient", body: WithdrawRequest{Commitment: "c", Recipient: gofakeit.Word(), Lamports: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/withdraw", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	off.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestBalance(t *testing.T) {
	r, _, _ := setup(t, testConfig(), stubPool{balance: 7_000})
	w := do(r, http.MethodGet, "/balance", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7_000), decode(t, w)["balance"])

	r, _, _ = setup(t, testConfig(), stubPool{err: errors.New("rpc down")})
	w = do(r, http.MethodGet, "/balance", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "rpc down", decode(t, w)["error"])
}

func TestPanicBecomes500(t *testing.T) {
	r, off, _ := setup(t, testConfig(), stubPool{})
	off.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("offloader exploded")
	}).Return(nil, nil)

	w := do(r, http.MethodPost, "/deposit", DepositRequest{Lamports: 1}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "offloader exploded", decode(t, w)["error"])
}

func TestAuthSecret(t *testing.T) {
	conf := testConfig()
	conf.RelayerService.AuthSecret = "relayer-secret"
	r, off, _ := setup(t, conf, stubPool{})
	off.On("Run", mock.Anything, mock.Anything).Return(&offload.Result{Tx: "t", Commitment: "c"}, nil)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/deposit", DepositRequest{Lamports: 1}, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/deposit", DepositRequest{Lamports: 1},
		map[string]string{AuthHeader: "relayer-secret"}).Code)
}

func TestInstructions(t *testing.T) {
	r, _, _ := setup(t, testConfig(), stubPool{})

	w := do(r, http.MethodPost, "/instructions/deposit", DepositInstructionRequest{Commitment: "0x01", Amount: 1_000_000, Token: "USDC"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(privacypool.DepositDataLen), body["length"])

	hexData := body["hex"].(string)
	assert.Equal(t, "00", hexData[:2])
	assert.Equal(t, "01", hexData[len(hexData)-2:])

	w = do(r, http.MethodPost, "/instructions/withdraw", WithdrawInstructionRequest{Root: "7", Nullifier: "9", Amount: 5}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(privacypool.WithdrawDataLen), decode(t, w)["length"])

	w = do(r, http.MethodPost, "/instructions/deposit", DepositInstructionRequest{Commitment: "-1", Amount: 1}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/instructions/deposit", DepositInstructionRequest{Commitment: "1", Amount: 1, Token: "DOGE"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
