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
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT         = "3333"
	DEFAULT_RELAYER_PORT = "4444"

	defaultDepositTimeoutSec  = 60
	defaultWithdrawTimeoutSec = 120
	defaultRelayerCallSec     = 150
	defaultTokenTTLSec        = 86400
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL            bool   `json:"ssl" envconfig:"SHADOWPAY_SERVER_SSL"`
	Domain         string `json:"domain" envconfig:"SHADOWPAY_SERVER_SSL_DOMAIN"`
	Email          string `json:"ssl_email" envconfig:"SHADOWPAY_SERVER_SSL_EMAIL"`
	Port           string `json:"port" envconfig:"SHADOWPAY_SERVER_PORT"`
	CorsOrigin     string `json:"cors_origin" envconfig:"SHADOWPAY_CORS_ORIGIN"`
	FrontendOrigin string `json:"frontend_origin" envconfig:"SHADOWPAY_FRONTEND_ORIGIN"`
}

type AuthConfig struct {
	JWTSecret   string `json:"jwt_secret" envconfig:"SHADOWPAY_JWT_SECRET"`
	TokenTTLSec int    `json:"token_ttl_sec" envconfig:"SHADOWPAY_TOKEN_TTL_SEC"`
}

// RelayerClientConfig is how the backend reaches the relayer.
type RelayerClientConfig struct {
	Url        string `json:"url" envconfig:"SHADOWPAY_RELAYER_URL"`
	TimeoutSec int    `json:"timeout_sec" envconfig:"SHADOWPAY_RELAYER_TIMEOUT_SEC"`
	AuthSecret string `json:"auth_secret" envconfig:"SHADOWPAY_RELAYER_AUTH_SECRET"`
}

// RelayerServiceConfig configures the relayer process itself.
type RelayerServiceConfig struct {
	Port               string `json:"port" envconfig:"SHADOWPAY_RELAYER_PORT"`
	RpcUrl             string `json:"rpc_url" envconfig:"SHADOWPAY_RPC_URL"`
	KeypairPath        string `json:"keypair_path" envconfig:"SHADOWPAY_RELAYER_KEYPAIR_PATH"`
	Referrer           string `json:"referrer" envconfig:"SHADOWPAY_RELAYER_REFERRER"`
	AuthSecret         string `json:"auth_secret" envconfig:"SHADOWPAY_RELAYER_AUTH_SECRET"`
	DepositTimeoutSec  int    `json:"deposit_timeout_sec" envconfig:"SHADOWPAY_DEPOSIT_TIMEOUT_SEC"`
	WithdrawTimeoutSec int    `json:"withdraw_timeout_sec" envconfig:"SHADOWPAY_WITHDRAW_TIMEOUT_SEC"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"SHADOWPAY_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"SHADOWPAY_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"SHADOWPAY_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	WebhookQueue   string `json:"webhook_queue" envconfig:"SHADOWPAY_QUEUE_WEBHOOK"`
	MonitoringPort string `json:"monitoring_port" envconfig:"SHADOWPAY_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"SHADOWPAY_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"SHADOWPAY_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"SHADOWPAY_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
	// per client IP, per minute
	PaymentsPerMinute    float64 `json:"payments_per_minute" envconfig:"SHADOWPAY_RATE_LIMIT_PAYMENTS_PER_MINUTE"`
	WithdrawalsPerMinute float64 `json:"withdrawals_per_minute" envconfig:"SHADOWPAY_RATE_LIMIT_WITHDRAWALS_PER_MINUTE"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"SHADOWPAY_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url" envconfig:"SHADOWPAY_WEBHOOK_URL"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type BackupConfig struct {
	Dir                string `json:"dir" envconfig:"SHADOWPAY_BACKUP_DIR"`
	AwsAccessKeyId     string `json:"aws_access_key_id" envconfig:"SHADOWPAY_AWS_ACCESS_KEY_ID"`
	AwsSecretAccessKey string `json:"aws_secret_access_key" envconfig:"SHADOWPAY_AWS_SECRET_ACCESS_KEY"`
	S3Endpoint         string `json:"s3_endpoint" envconfig:"SHADOWPAY_S3_ENDPOINT"`
	S3BucketName       string `json:"s3_bucket_name" envconfig:"SHADOWPAY_S3_BUCKET"`
	S3Region           string `json:"s3_region" envconfig:"SHADOWPAY_S3_REGION"`
}

type Configuration struct {
	ProjectName     string               `json:"project_name" envconfig:"SHADOWPAY_PROJECT_NAME"`
	EnableTelemetry bool                 `json:"enable_telemetry" envconfig:"SHADOWPAY_ENABLE_TELEMETRY"`
	LinksFile       string               `json:"links_file" envconfig:"SHADOWPAY_LINKS_FILE"`
	Server          ServerConfig         `json:"server"`
	Auth            AuthConfig           `json:"auth"`
	Relayer         RelayerClientConfig  `json:"relayer"`
	RelayerService  RelayerServiceConfig `json:"relayer_service"`
	DataSource      DataSourceConfig     `json:"data_source"`
	Redis           RedisConfig          `json:"redis"`
	Queue           QueueConfig          `json:"queue"`
	Notification    Notification         `json:"notification"`
	RateLimit       RateLimitConfig      `json:"rate_limit"`
	Backup          BackupConfig         `json:"backup"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// .env is optional; variables already set in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	// override config from environment variables
	err = envconfig.Process("shadowpay", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded. Create a json file called shadowpay.json or set SHADOWPAY_ env variables")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "ShadowPay"
	}

	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Relayer.Url = strings.TrimRight(strings.TrimSpace(cnf.Relayer.Url), "/")

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}
	if cnf.RelayerService.Port == "" {
		cnf.RelayerService.Port = DEFAULT_RELAYER_PORT
	}
	if cnf.RelayerService.DepositTimeoutSec <= 0 {
		cnf.RelayerService.DepositTimeoutSec = defaultDepositTimeoutSec
	}
	if cnf.RelayerService.WithdrawTimeoutSec <= 0 {
		cnf.RelayerService.WithdrawTimeoutSec = defaultWithdrawTimeoutSec
	}
	if cnf.Relayer.TimeoutSec <= 0 {
		cnf.Relayer.TimeoutSec = defaultRelayerCallSec
	}
	if cnf.Auth.TokenTTLSec <= 0 {
		cnf.Auth.TokenTTLSec = defaultTokenTTLSec
	}

	if cnf.DataSource.Dns == "" && cnf.LinksFile == "" {
		log.Println("Warning: Data source DNS is empty. Falling back to links.json")
		cnf.LinksFile = "links.json"
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "webhook_queue"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5004"
	}
	if cnf.Backup.Dir == "" {
		cnf.Backup.Dir = "backups"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}
	if cnf.RateLimit.PaymentsPerMinute <= 0 {
		cnf.RateLimit.PaymentsPerMinute = 10
	}
	if cnf.RateLimit.WithdrawalsPerMinute <= 0 {
		cnf.RateLimit.WithdrawalsPerMinute = 5
	}

	return nil
}

// RequireBackend checks the settings the link service cannot run without.
func (cnf *Configuration) RequireBackend() error {
	if cnf.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if len(cnf.Auth.JWTSecret) < 32 {
		return errors.New("jwt secret must be at least 32 characters")
	}
	if cnf.Relayer.Url == "" {
		return errors.New("relayer url is required")
	}
	return nil
}

// RequireRelayer checks the settings the relayer cannot run without.
func (cnf *Configuration) RequireRelayer() error {
	if cnf.RelayerService.RpcUrl == "" {
		return errors.New("rpc url is required")
	}
	if cnf.RelayerService.KeypairPath == "" {
		return errors.New("relayer keypair path is required")
	}
	return nil
}

func (cnf *Configuration) RelayerCallTimeout() time.Duration {
	return time.Duration(cnf.Relayer.TimeoutSec) * time.Second
}

func (cnf *Configuration) DepositTimeout() time.Duration {
	return time.Duration(cnf.RelayerService.DepositTimeoutSec) * time.Second
}

func (cnf *Configuration) WithdrawTimeout() time.Duration {
	return time.Duration(cnf.RelayerService.WithdrawTimeoutSec) * time.Second
}

func (cnf *Configuration) TokenTTL() time.Duration {
	return time.Duration(cnf.Auth.TokenTTLSec) * time.Second
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
