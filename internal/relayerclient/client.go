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

// Package relayerclient is the backend's HTTP client for the relayer service.
// Calls are never retried: a deposit or withdrawal that may have reached the
// chain must not be sent twice.
package relayerclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shadowpay/shadowpay/internal/request"
	"github.com/sirupsen/logrus"
)

const AuthHeader = "X-Relayer-Auth"

var (
	ErrNoCommitment = errors.New("relayer returned no commitment")
	// ErrNoTx is a 2xx answer that does not confirm a transaction.
	ErrNoTx = errors.New("relayer returned no transaction")
)

type DepositRequest struct {
	Lamports   int64  `json:"lamports"`
	LinkID     string `json:"link_id,omitempty"`
	Token      string `json:"token,omitempty"`
	TransferTx string `json:"transfer_tx,omitempty"`
}

type DepositResponse struct {
	Success    bool   `json:"success"`
	Commitment string `json:"commitment"`
	Tx         string `json:"tx"`
	DurationMs int64  `json:"duration_ms"`
}

type WithdrawRequest struct {
	Commitment string `json:"commitment"`
	Recipient  string `json:"recipient"`
	Lamports   int64  `json:"lamports"`
}

type WithdrawResponse struct {
	Success    bool   `json:"success"`
	Tx         string `json:"tx"`
	DurationMs int64  `json:"duration_ms"`
}

type Health struct {
	OK      bool   `json:"ok"`
	Relayer string `json:"relayer"`
}

// Error is a failed relayer call. Message carries the relayer's own error text
// when it sent one.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("relayer %s failed: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("relayer %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL    string
	authSecret string
	timeout    time.Duration
	http       *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New returns a client for the relayer at baseURL. timeout bounds every call.
func New(baseURL, authSecret string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		authSecret: authSecret,
		timeout:    timeout,
		http:       &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Deposit(ctx context.Context, req DepositRequest) (*DepositResponse, error) {
	var resp DepositResponse
	if err := c.call(ctx, "deposit", http.MethodPost, "/deposit", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Tx == "" {
		return nil, &Error{Op: "deposit", Err: ErrNoTx}
	}
	if resp.Commitment == "" {
		return nil, &Error{Op: "deposit", Err: ErrNoCommitment}
	}
	return &resp, nil
}

func (c *Client) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResponse, error) {
	var resp WithdrawResponse
	if err := c.call(ctx, "withdraw", http.MethodPost, "/withdraw", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Tx == "" {
		return nil, &Error{Op: "withdraw", Err: ErrNoTx}
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.call(ctx, "health", http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitReady polls /health with exponential backoff until the relayer answers or
// maxWait passes. It is only used at startup.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) (*Health, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxWait

	var health *Health
	err := backoff.RetryNotify(func() error {
		h, err := c.Health(ctx)
		if err != nil {
			return err
		}
		health = h
		return nil
	}, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logrus.WithError(err).Warnf("relayer not ready, retrying in %s", next)
	})
	return health, err
}

func (c *Client) call(ctx context.Context, op, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var req *http.Request
	var err error
	if body != nil {
		payload, perr := request.ToJsonReq(body)
		if perr != nil {
			return &Error{Op: op, Err: perr}
		}
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	if c.authSecret != "" {
		req.Header.Set(AuthHeader, c.authSecret)
	}

	_, err = request.Call(c.http, req, out)
	if err == nil {
		return nil
	}

	var statusErr *request.StatusError
	if errors.As(err, &statusErr) {
		return &Error{Op: op, StatusCode: statusErr.StatusCode, Message: statusErr.Message, Err: err}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Op: op, Message: fmt.Sprintf("no response within %s", c.timeout), Err: context.DeadlineExceeded}
	}
	return &Error{Op: op, Err: err}
}
