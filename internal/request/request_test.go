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

package request_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shadowpay/shadowpay/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJsonReq(t *testing.T) {
	payload := map[string]string{"key": "value"}

	reqBuffer, err := request.ToJsonReq(payload)
	assert.NoError(t, err)
	expectedJSON, _ := json.Marshal(payload)
	assert.Equal(t, expectedJSON, reqBuffer.Bytes())

	reqBuffer, err = request.ToJsonReq(map[string]interface{}{"key": make(chan int)})
	assert.Error(t, err)
	assert.Nil(t, reqBuffer)
}

func TestCall_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	var response map[string]string
	resp, err := request.Call(nil, req, &response)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", response["status"])
}

func TestCall_ErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "json error field", body: `{"error":"deposit timeout after 60000ms"}`, wantMsg: "deposit timeout after 60000ms"},
		{name: "plain text", body: "bad gateway\n", wantMsg: "bad gateway"},
		{name: "empty body", body: "", wantMsg: "request failed with status 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			req, _ := http.NewRequest(http.MethodPost, server.URL, nil)
			_, err := request.Call(server.Client(), req, nil)

			var statusErr *request.StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestCall_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{malformed json response`))
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	var response map[string]string
	resp, err := request.Call(nil, req, &response)
	assert.Error(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCall_Unreachable(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://invalid-url.invalid", nil)
	resp, err := request.Call(nil, req, nil)
	assert.Error(t, err)
	assert.Nil(t, resp)
}
