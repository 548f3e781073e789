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

// Package offload runs a single privacy-pool call in an isolated child
// process with a hard deadline. The parent writes one request to the child's
// stdin and reads exactly one terminal message from its stdout.
package offload

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
)

const (
	DefaultDepositTimeout  = 60 * time.Second
	DefaultWithdrawTimeout = 120 * time.Second
)

// ErrTimeout matches any *TimeoutError.
var ErrTimeout = errors.New("execution unit timed out")

// Request is one unit of work. It is never persisted.
type Request struct {
	Kind       Kind          `json:"kind"`
	RPCURL     string        `json:"rpc_url"`
	SecretKey  []byte        `json:"secret_key"`
	Lamports   int64         `json:"lamports"`
	Recipient  string        `json:"recipient,omitempty"`
	Commitment string        `json:"commitment,omitempty"`
	Referrer   string        `json:"referrer,omitempty"`
	Timeout    time.Duration `json:"-"`
}

func (r Request) Validate() error {
	switch r.Kind {
	case KindDeposit:
		if r.Lamports <= 0 {
			return errors.New("deposit lamports must be positive")
		}
	case KindWithdraw:
		if r.Commitment == "" || r.Recipient == "" {
			return errors.New("withdraw requires commitment and recipient")
		}
		if r.Lamports <= 0 {
			return errors.New("withdraw lamports must be positive")
		}
	default:
		return fmt.Errorf("unknown offload kind %q", r.Kind)
	}
	if r.RPCURL == "" {
		return errors.New("rpc url is required")
	}
	if len(r.SecretKey) == 0 {
		return errors.New("secret key is required")
	}
	return nil
}

// Result is what a successful unit reports back.
type Result struct {
	Tx         string          `json:"tx"`
	Commitment string          `json:"commitment,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Duration   time.Duration   `json:"-"`
}

// message is the single terminal frame written by the child.
type message struct {
	Success    bool    `json:"success"`
	Result     *Result `json:"result,omitempty"`
	DurationMs int64   `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
	Stack      string  `json:"stack,omitempty"`
}

type TimeoutError struct {
	Kind  Kind
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Kind == KindWithdraw {
		return fmt.Sprintf("withdraw timeout after %dms - proof generation too slow", e.After.Milliseconds())
	}
	return fmt.Sprintf("%s timeout after %dms", e.Kind, e.After.Milliseconds())
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// UnitStoppedError means the child exited without sending a terminal message.
type UnitStoppedError struct {
	ExitCode int
}

func (e *UnitStoppedError) Error() string {
	return fmt.Sprintf("execution unit stopped with exit code %d", e.ExitCode)
}

// ReportedError is a failure raised by the pool call inside the child.
type ReportedError struct {
	Message string
	Stack   string
}

func (e *ReportedError) Error() string {
	return e.Message
}
