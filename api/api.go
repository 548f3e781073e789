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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shadowpay/shadowpay"
	"github.com/shadowpay/shadowpay/api/middleware"
	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/internal/apierror"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	shadowpay *shadowpay.ShadowPay
	conf      *config.Configuration
	router    *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.GET("/health", a.Health)

	router.POST("/auth/login", a.Login)

	router.POST("/links", a.CreateLink)
	router.GET("/links/:id", a.GetLink)
	router.POST("/links/:id/pay",
		middleware.PerMinuteLimit(a.conf, a.conf.RateLimit.PaymentsPerMinute, "Too many payment attempts"),
		a.PayLink)
	router.POST("/links/:id/claim",
		middleware.PerMinuteLimit(a.conf, a.conf.RateLimit.WithdrawalsPerMinute, "Too many withdrawal attempts"),
		middleware.BearerAuth(a.shadowpay.Tokens()),
		a.ClaimLink)

	router.GET("/api/payment-links", a.GetPaymentLinks)
	return a.router
}

func NewAPI(sp *shadowpay.ShadowPay, conf *config.Configuration) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(conf.Server.CorsOrigin))
	if conf.EnableTelemetry {
		r.Use(otelgin.Middleware("SHADOWPAY"))
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	return &Api{shadowpay: sp, conf: conf, router: r}
}

func (a Api) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// respondError writes the error body every failing endpoint shares.
func respondError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": apierror.Message(err)})
}
