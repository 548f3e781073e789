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

// Package relayer is the custodial HTTP service that holds the signing key and
// moves funds through the privacy pool. Every deposit and withdrawal runs in an
// offloaded execution unit; the service keeps no state between requests.
package relayer

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shadowpay/shadowpay/api/middleware"
	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/internal/offload"
	"github.com/shadowpay/shadowpay/internal/privacypool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const AuthHeader = "X-Relayer-Auth"

// Offloader runs one pool operation in isolation.
type Offloader interface {
	Run(ctx context.Context, req offload.Request) (*offload.Result, error)
}

type Relayer struct {
	keypair   *privacypool.Keypair
	pool      privacypool.Client
	offloader Offloader
	conf      *config.Configuration
	router    *gin.Engine
}

// New wires the relayer routes. pool serves balance reads in-process; fund
// movements always go through offloader.
func New(conf *config.Configuration, kp *privacypool.Keypair, pool privacypool.Client, offloader Offloader) *Relayer {
	gin.SetMode(gin.ReleaseMode)
	r := &Relayer{keypair: kp, pool: pool, offloader: offloader, conf: conf}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	if conf.EnableTelemetry {
		router.Use(otelgin.Middleware("SHADOWPAY_RELAYER"))
	}
	router.Use(middleware.SharedSecret(AuthHeader, conf.RelayerService.AuthSecret, "/health"))

	router.GET("/health", r.Health)
	router.POST("/deposit", r.Deposit)
	router.POST("/withdraw", r.Withdraw)
	router.GET("/balance", r.Balance)

	instructions := router.Group("/instructions")
	{
		instructions.POST("/deposit", r.DepositInstruction)
		instructions.POST("/withdraw", r.WithdrawInstruction)
	}

	r.router = router
	return r
}

func (r *Relayer) Router() *gin.Engine {
	return r.router
}

func (r *Relayer) request(kind offload.Kind) offload.Request {
	req := offload.Request{
		Kind:      kind,
		RPCURL:    r.conf.RelayerService.RpcUrl,
		SecretKey: r.keypair.Secret(),
		Referrer:  r.conf.RelayerService.Referrer,
	}
	if kind == offload.KindWithdraw {
		req.Timeout = r.conf.WithdrawTimeout()
	} else {
		req.Timeout = r.conf.DepositTimeout()
	}
	return req
}

func durationMs(d time.Duration) int64 {
	return d.Milliseconds()
}
