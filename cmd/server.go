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

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
	"github.com/shadowpay/shadowpay/api"
	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/internal/notification"
	trace "github.com/shadowpay/shadowpay/internal/traces"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const relayerReadyWait = 30 * time.Second

// serveTLS serves r over HTTPS with certificates managed by CertMagic. With no
// domain configured it falls back to localhost.
func serveTLS(r http.Handler, conf config.ServerConfig, port string) error {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = conf.Email
	cfg := certmagic.NewDefault()
	cfg.Storage = &certmagic.FileStorage{Path: filepath.Join(".", "certmagic")}

	domains := []string{conf.Domain}
	if conf.Domain == "" {
		log.Println("No domain specified, defaulting to localhost")
		domains = []string{"localhost"}
	}

	if err := cfg.ManageSync(context.Background(), domains); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		TLSConfig:         cfg.TLSConfig(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Starting HTTPS server on %s\n", port)
	if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// sendHeartbeat reports liveness to PostHog every five minutes.
func sendHeartbeat(client posthog.Client, heartbeatID, service string) {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		for range ticker.C {
			if err := client.Enqueue(posthog.Capture{
				DistinctId: heartbeatID,
				Event:      "server_heartbeat",
				Properties: map[string]interface{}{
					"service":   service,
					"timestamp": time.Now().UTC(),
				},
			}); err != nil {
				log.Printf("Failed to send heartbeat: %v", err)
			}
		}
	}()
}

func initializePostHog(service string) posthog.Client {
	client, err := posthog.NewWithConfig("phc_XbsHF5iBSnPiTA96gl7xygazrwBa0r2Ut4vEHoBHNiG",
		posthog.Config{Endpoint: "https://us.i.posthog.com"})
	if err != nil {
		logrus.WithError(err).Warn("posthog disabled")
		return nil
	}
	sendHeartbeat(client, uuid.New().String(), service)
	return client
}

// initializeObservability sets up tracing and the heartbeat when telemetry is on.
// The returned cleanup is always safe to call.
func initializeObservability(ctx context.Context, cfg *config.Configuration, service string) (func(), error) {
	if !cfg.EnableTelemetry {
		return func() {}, nil
	}

	shutdown, err := trace.SetupOTelSDK(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	phClient := initializePostHog(service)

	return func() {
		if err := shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		if phClient != nil {
			_ = phClient.Close()
		}
	}, nil
}

func startServer(router *gin.Engine, cfg config.ServerConfig, port string) error {
	if cfg.SSL {
		return serveTLS(router, cfg, port)
	}
	log.Printf("Starting server on http://localhost:%s", port)
	return router.Run(":" + port)
}

// serverCommands returns the command that starts the link backend.
func serverCommands(app *shadowpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the shadowpay link server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := app.cnf

			if err := cfg.RequireBackend(); err != nil {
				log.Fatal(err)
			}

			cleanup, err := initializeObservability(ctx, cfg, "SHADOWPAY")
			if err != nil {
				log.Fatal(err)
			}
			defer cleanup()

			sp, closeService, err := app.setupShadowPay()
			if err != nil {
				notification.NotifyError(err)
				log.Fatal(err)
			}
			defer closeService()

			health, err := app.relayerClient().WaitReady(ctx, relayerReadyWait)
			if err != nil {
				logrus.WithError(err).Warn("relayer is not reachable yet; payments will fail until it is")
			} else {
				logrus.WithField("relayer", health.Relayer).Info("relayer is ready")
			}

			router := api.NewAPI(sp, cfg).Router()
			if err := startServer(router, cfg.Server, cfg.Server.Port); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
