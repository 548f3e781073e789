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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SubcommandName is the hidden CLI subcommand that serves one request.
const SubcommandName = "offload"

const waitDelay = 2 * time.Second

// Runner spawns one child process per request.
type Runner struct {
	path            string
	args            []string
	env             []string
	depositTimeout  time.Duration
	withdrawTimeout time.Duration
	logger          *logrus.Entry
}

type Option func(*Runner)

// WithCommand overrides the executable that serves requests.
func WithCommand(path string, args ...string) Option {
	return func(r *Runner) {
		r.path = path
		r.args = args
	}
}

// WithEnv adds environment variables to the child.
func WithEnv(env ...string) Option {
	return func(r *Runner) { r.env = append(r.env, env...) }
}

func WithTimeouts(deposit, withdraw time.Duration) Option {
	return func(r *Runner) {
		if deposit > 0 {
			r.depositTimeout = deposit
		}
		if withdraw > 0 {
			r.withdrawTimeout = withdraw
		}
	}
}

// NewRunner by default re-executes the current binary with the offload subcommand.
func NewRunner(opts ...Option) (*Runner, error) {
	r := &Runner{
		depositTimeout:  DefaultDepositTimeout,
		withdrawTimeout: DefaultWithdrawTimeout,
		logger:          logrus.WithField("component", "offload"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "resolve executable for offload")
		}
		r.path = exe
		r.args = []string{SubcommandName}
	}
	return r, nil
}

func (r *Runner) timeoutFor(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if req.Kind == KindWithdraw {
		return r.withdrawTimeout
	}
	return r.depositTimeout
}

// Run executes req in a fresh child process. Exactly one of success, *TimeoutError,
// *UnitStoppedError or *ReportedError is returned, and the child is gone when Run returns.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	timeout := r.timeoutFor(req)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := r.logger.WithField("kind", req.Kind)
	stderr := logger.WriterLevel(logrus.WarnLevel)
	defer stderr.Close()

	cmd := exec.Command(r.path, r.args...)
	cmd.Env = append(os.Environ(), r.env...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, pkgerrors.Wrap(err, "start execution unit")
	}

	messages := make(chan message, 1)
	go func() {
		defer close(messages)
		var m message
		if err := json.NewDecoder(stdout).Decode(&m); err == nil {
			messages <- m
		}
		_, _ = io.Copy(io.Discard, stdout)
	}()

	select {
	case m, ok := <-messages:
		if !ok {
			return nil, r.stopped(ctx, cmd, req, timeout, logger)
		}
		r.teardown(cmd, messages)
		return r.finish(m, time.Since(start), logger)

	case <-ctx.Done():
		r.teardown(cmd, messages)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.WithField("timeout", timeout).Error("execution unit timed out")
			return nil, &TimeoutError{Kind: req.Kind, After: timeout}
		}
		return nil, ctx.Err()
	}
}

// teardown kills the child and reaps it once its stdout has been drained.
func (r *Runner) teardown(cmd *exec.Cmd, messages <-chan message) {
	_ = cmd.Process.Kill()
	for range messages {
	}
	_ = cmd.Wait()
}

// stopped is reached when stdout closed without a terminal message.
func (r *Runner) stopped(ctx context.Context, cmd *exec.Cmd, req Request, timeout time.Duration, logger *logrus.Entry) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Kind: req.Kind, After: timeout}
		}
		return ctx.Err()
	}

	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	logger.WithFields(logrus.Fields{"exit_code": code, "error": err}).Error("execution unit stopped without a result")
	return &UnitStoppedError{ExitCode: code}
}

func (r *Runner) finish(m message, elapsed time.Duration, logger *logrus.Entry) (*Result, error) {
	if !m.Success {
		logger.WithField("duration", elapsed).Errorf("execution unit reported failure: %s", m.Error)
		return nil, &ReportedError{Message: m.Error, Stack: m.Stack}
	}
	if m.Result == nil {
		return nil, &ReportedError{Message: "execution unit reported success without a result"}
	}
	res := *m.Result
	res.Duration = elapsed
	logger.WithField("duration", elapsed).Info("execution unit finished")
	return &res, nil
}
