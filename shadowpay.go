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

package shadowpay

import (
	"context"
	"embed"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/database"
	"github.com/shadowpay/shadowpay/internal/auth"
	"github.com/shadowpay/shadowpay/internal/cache"
	"github.com/shadowpay/shadowpay/internal/notification"
	"github.com/shadowpay/shadowpay/internal/relayerclient"
	"go.opentelemetry.io/otel"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("shadowpay.service")

// Relayer moves funds on behalf of the service.
type Relayer interface {
	Deposit(ctx context.Context, req relayerclient.DepositRequest) (*relayerclient.DepositResponse, error)
	Withdraw(ctx context.Context, req relayerclient.WithdrawRequest) (*relayerclient.WithdrawResponse, error)
}

// ShadowPay owns payment links and drives them through the relayer.
type ShadowPay struct {
	conf       *config.Configuration
	datasource database.IDataSource
	relayer    Relayer
	tokens     *auth.TokenIssuer
	redis      redis.UniversalClient
	cache      cache.Cache
	queue      *Queue
	notify     func(error)
	now        func() time.Time
}

type Option func(*ShadowPay)

// WithRedis enables per-link locks and the link read cache.
func WithRedis(client redis.UniversalClient) Option {
	return func(s *ShadowPay) {
		s.redis = client
		s.cache = cache.New(client)
	}
}

// WithQueue enables webhook events.
func WithQueue(q *Queue) Option {
	return func(s *ShadowPay) { s.queue = q }
}

// WithNotifier replaces the critical error notifier.
func WithNotifier(notify func(error)) Option {
	return func(s *ShadowPay) { s.notify = notify }
}

func NewShadowPay(conf *config.Configuration, db database.IDataSource, relayer Relayer, opts ...Option) *ShadowPay {
	s := &ShadowPay{
		conf:       conf,
		datasource: db,
		relayer:    relayer,
		tokens:     auth.NewTokenIssuer(conf.Auth.JWTSecret, conf.TokenTTL()),
		notify:     notification.NotifyError,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue != nil {
		notification.RegisterWebhookSender(s.queue.SendWebhook)
	}
	return s
}

// Tokens exposes the bearer token issuer used by the HTTP layer.
func (s *ShadowPay) Tokens() *auth.TokenIssuer {
	return s.tokens
}
