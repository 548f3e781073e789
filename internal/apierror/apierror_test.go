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

package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shadowpay/shadowpay/internal/apierror"
	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	cause := errors.New("relayer returned 502")
	apiErr := apierror.NewAPIError(apierror.ErrUpstream, "Deposit failed", cause)

	assert.Equal(t, apierror.ErrUpstream, apiErr.Code)
	assert.Equal(t, "Deposit failed", apiErr.Message)
	assert.Equal(t, cause, apiErr.Details)
	assert.Equal(t, "UPSTREAM_ERROR: Deposit failed", apiErr.Error())
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := map[string]struct {
		err      error
		expected int
	}{
		"link not found":    {apierror.NewAPIError(apierror.ErrNotFound, "Link not found", nil), http.StatusNotFound},
		"duplicate link id": {apierror.NewAPIError(apierror.ErrConflict, "link already exists", nil), http.StatusConflict},
		"amount mismatch":   {apierror.NewAPIError(apierror.ErrInvalidInput, "Amount mismatch", nil), http.StatusBadRequest},
		"already paid":      {apierror.NewAPIError(apierror.ErrStateConflict, "Already paid", nil), http.StatusBadRequest},
		"bad signature":     {apierror.NewAPIError(apierror.ErrUnauthorized, "Invalid signature", nil), http.StatusUnauthorized},
		"relayer timeout":   {apierror.NewAPIError(apierror.ErrUpstream, "deposit timeout after 60000ms", nil), http.StatusInternalServerError},
		"missing commit":    {apierror.NewAPIError(apierror.ErrInvariant, "paid link has no commitment", nil), http.StatusInternalServerError},
		"wrapped":           {fmt.Errorf("pay: %w", apierror.NewAPIError(apierror.ErrNotFound, "Link not found", nil)), http.StatusNotFound},
		"plain error":       {errors.New("connection reset"), http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apierror.MapErrorToHTTPStatus(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Already paid", apierror.Message(apierror.NewAPIError(apierror.ErrStateConflict, "Already paid", nil)))
	assert.Equal(t, "boom", apierror.Message(errors.New("boom")))
}

func TestIs(t *testing.T) {
	err := apierror.NewAPIError(apierror.ErrStateConflict, "Already paid", nil)
	assert.True(t, apierror.Is(err, apierror.ErrStateConflict))
	assert.False(t, apierror.Is(err, apierror.ErrNotFound))
	assert.False(t, apierror.Is(errors.New("x"), apierror.ErrNotFound))
}
