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

package offload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/shadowpay/shadowpay/internal/privacypool"
)

// PoolFactory builds the pool client for one request. The child never keeps a
// client beyond the request it was built for.
type PoolFactory func(req Request) (privacypool.Client, error)

// DefaultPoolFactory signs with the request's secret key against its RPC URL.
func DefaultPoolFactory(req Request) (privacypool.Client, error) {
	kp, err := privacypool.KeypairFromSecret(req.SecretKey)
	if err != nil {
		return nil, err
	}
	return privacypool.NewRPCClient(req.RPCURL, kp), nil
}

// Serve is the child side: read one request from in, run it, and write exactly
// one terminal message to out.
func Serve(ctx context.Context, in io.Reader, out io.Writer, factory PoolFactory) error {
	start := time.Now()
	m := execute(ctx, in, factory)
	m.DurationMs = time.Since(start).Milliseconds()
	return json.NewEncoder(out).Encode(m)
}

func execute(ctx context.Context, in io.Reader, factory PoolFactory) (m message) {
	defer func() {
		if rec := recover(); rec != nil {
			m = message{Error: fmt.Sprint(rec), Stack: string(debug.Stack())}
		}
	}()

	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return failure(fmt.Errorf("decode offload request: %w", err))
	}
	if err := req.Validate(); err != nil {
		return failure(err)
	}

	client, err := factory(req)
	if err != nil {
		return failure(err)
	}

	switch req.Kind {
	case KindDeposit:
		res, err := client.Deposit(ctx, privacypool.DepositParams{
			Lamports: req.Lamports,
			Referrer: req.Referrer,
		})
		if err != nil {
			return failure(err)
		}
		return message{Success: true, Result: &Result{Tx: res.Tx, Commitment: res.Commitment, Payload: res.Raw}}
	default:
		res, err := client.Withdraw(ctx, privacypool.WithdrawParams{
			Commitment: req.Commitment,
			Recipient:  req.Recipient,
			Lamports:   req.Lamports,
			Referrer:   req.Referrer,
		})
		if err != nil {
			return failure(err)
		}
		return message{Success: true, Result: &Result{Tx: res.Tx, Payload: res.Raw}}
	}
}

// failure keeps the error text verbatim; %+v carries the stack for pkg/errors values.
func failure(err error) message {
	return message{Error: err.Error(), Stack: fmt.Sprintf("%+v", err)}
}
