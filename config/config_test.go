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

package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{}

	err := cnf.validateAndAddDefaults()
	assert.NoError(t, err)

	assert.Equal(t, "ShadowPay", cnf.ProjectName)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, DEFAULT_RELAYER_PORT, cnf.RelayerService.Port)
	assert.Equal(t, "links.json", cnf.LinksFile)
	assert.Equal(t, 60*time.Second, cnf.DepositTimeout())
	assert.Equal(t, 120*time.Second, cnf.WithdrawTimeout())
	assert.Equal(t, "webhook_queue", cnf.Queue.WebhookQueue)
	assert.Nil(t, cnf.RateLimit.RequestsPerSecond)
	assert.Equal(t, float64(10), cnf.RateLimit.PaymentsPerMinute)
	assert.Equal(t, float64(5), cnf.RateLimit.WithdrawalsPerMinute)

	// the backend deadline has to outlive the slowest offloaded call
	assert.Greater(t, cnf.RelayerCallTimeout(), cnf.WithdrawTimeout())
}

func TestValidateAndAddDefaults_KeepsDataSource(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: " postgres://localhost:5432/shadowpay "},
		Relayer:    RelayerClientConfig{Url: "http://relayer:4444/"},
	}

	assert.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, "postgres://localhost:5432/shadowpay", cnf.DataSource.Dns)
	assert.Equal(t, "http://relayer:4444", cnf.Relayer.Url)
	assert.Empty(t, cnf.LinksFile)
}

func TestValidateAndAddDefaults_RateLimit(t *testing.T) {
	rps := 10.0
	cnf := Configuration{RateLimit: RateLimitConfig{RequestsPerSecond: &rps}}

	assert.NoError(t, cnf.validateAndAddDefaults())
	assert.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
	assert.Equal(t, 10800, *cnf.RateLimit.CleanupIntervalSec)
}

func TestRequireBackend(t *testing.T) {
	cnf := Configuration{}
	assert.EqualError(t, cnf.RequireBackend(), "jwt secret is required")

	cnf.Auth.JWTSecret = "short"
	assert.EqualError(t, cnf.RequireBackend(), "jwt secret must be at least 32 characters")

	cnf.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.EqualError(t, cnf.RequireBackend(), "relayer url is required")

	cnf.Relayer.Url = "http://localhost:4444"
	assert.NoError(t, cnf.RequireBackend())
}

func TestRequireRelayer(t *testing.T) {
	cnf := Configuration{}
	assert.EqualError(t, cnf.RequireRelayer(), "rpc url is required")

	cnf.RelayerService.RpcUrl = "http://localhost:8899"
	assert.EqualError(t, cnf.RequireRelayer(), "relayer keypair path is required")

	cnf.RelayerService.KeypairPath = "/keys/relayer.json"
	assert.NoError(t, cnf.RequireRelayer())
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "shadowpay.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource: DataSourceConfig{
			Dns: "temp-dns",
		},
		RelayerService: RelayerServiceConfig{
			DepositTimeoutSec: 5,
		},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	t.Setenv("SHADOWPAY_PROJECT_NAME", "Env Project")
	t.Setenv("SHADOWPAY_RELAYER_URL", "http://relayer.internal:4444")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, "temp-dns", loadedConfig.DataSource.Dns)
	assert.Equal(t, "http://relayer.internal:4444", loadedConfig.Relayer.Url)
	assert.Equal(t, 5*time.Second, loadedConfig.DepositTimeout())
}

func TestInitConfig_MissingFile(t *testing.T) {
	t.Setenv("SHADOWPAY_RPC_URL", "http://localhost:8899")

	err := InitConfig("does-not-exist.json")
	assert.NoError(t, err)

	loadedConfig, err := Fetch()
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", loadedConfig.RelayerService.RpcUrl)
	assert.Equal(t, DEFAULT_PORT, loadedConfig.Server.Port)
}
