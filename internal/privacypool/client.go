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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	OwnerHeader     = "X-Owner"
	SignatureHeader = "X-Signature"

	methodDeposit  = "privacyPool_deposit"
	methodWithdraw = "privacyPool_withdraw"
	methodBalance  = "privacyPool_getBalance"
)

// Client is the privacy-pool capability used by the relayer.
type Client interface {
	Deposit(ctx context.Context, params DepositParams) (*DepositResult, error)
	Withdraw(ctx context.Context, params WithdrawParams) (*WithdrawResult, error)
	Balance(ctx context.Context) (*Balance, error)
}

type DepositParams struct {
	Lamports int64  `json:"lamports"`
	Referrer string `json:"referrer,omitempty"`
}

type DepositResult struct {
	Tx         string          `json:"tx"`
	Commitment string          `json:"commitment"`
	Raw        json.RawMessage `json:"-"`
}

type WithdrawParams struct {
	Commitment string `json:"commitment"`
	Recipient  string `json:"recipient"`
	Lamports   int64  `json:"lamports"`
	Referrer   string `json:"referrer,omitempty"`
}

type WithdrawResult struct {
	Tx        string          `json:"tx"`
	IsPartial bool            `json:"is_partial,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

type Balance struct {
	Lamports int64 `json:"lamports"`
}

// RPCError is an error reported by the pool endpoint itself.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCClient talks JSON-RPC to a privacy-pool endpoint. Every call is signed
// with the owner's key so the endpoint can bind it to the pool account.
type RPCClient struct {
	url     string
	keypair *Keypair
	http    *http.Client
}

type Option func(*RPCClient)

func WithHTTPClient(c *http.Client) Option {
	return func(r *RPCClient) { r.http = c }
}

func NewRPCClient(url string, keypair *Keypair, opts ...Option) *RPCClient {
	c := &RPCClient{
		url:     url,
		keypair: keypair,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RPCClient) Deposit(ctx context.Context, params DepositParams) (*DepositResult, error) {
	if params.Lamports <= 0 {
		return nil, errors.New("deposit lamports must be positive")
	}
	raw, err := c.call(ctx, methodDeposit, params)
	if err != nil {
		return nil, errors.Wrap(err, "deposit")
	}
	var res DepositResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "decode deposit result")
	}
	res.Raw = raw
	return &res, nil
}

func (c *RPCClient) Withdraw(ctx context.Context, params WithdrawParams) (*WithdrawResult, error) {
	raw, err := c.call(ctx, methodWithdraw, params)
	if err != nil {
		return nil, errors.Wrap(err, "withdraw")
	}
	var res WithdrawResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "decode withdraw result")
	}
	res.Raw = raw
	return &res, nil
}

func (c *RPCClient) Balance(ctx context.Context) (*Balance, error) {
	raw, err := c.call(ctx, methodBalance, map[string]string{"owner": c.keypair.Address()})
	if err != nil {
		return nil, errors.Wrap(err, "balance")
	}
	var res Balance
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "decode balance result")
	}
	return &res, nil
}

func (c *RPCClient) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(OwnerHeader, c.keypair.Address())
	req.Header.Set(SignatureHeader, base58.Encode(c.keypair.Sign(body)))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var out rpcResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("rpc %s returned status %d", method, resp.StatusCode)
		}
		return nil, errors.Wrap(err, "decode rpc response")
	}
	if out.Error != nil {
		return nil, out.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rpc %s returned status %d", method, resp.StatusCode)
	}
	return out.Result, nil
}
