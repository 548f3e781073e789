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
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/shadowpay/shadowpay"
	"github.com/shadowpay/shadowpay/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

func initializeQueues(conf *config.Configuration) map[string]int {
	return map[string]int{conf.Queue.WebhookQueue: 1}
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOpt, err := shadowpay.RedisOpt(conf)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      queues,
		Logger:      logrus.StandardLogger(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logrus.WithFields(logrus.Fields{"type": task.Type(), "retry": retried, "max_retry": maxRetry}).
				WithError(err).Warn("task failed")
		}),
	}), nil
}

func initializeTaskHandlers(conf *config.Configuration, mux *asynq.ServeMux) {
	mux.HandleFunc(conf.Queue.WebhookQueue, shadowpay.ProcessWebhook)
}

// workerCommands starts the webhook delivery workers and the asynqmon dashboard.
func workerCommands(app *shadowpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start shadowpay workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf := app.cnf
			if conf.Redis.Dns == "" {
				log.Fatal("redis dns is required for workers")
			}

			cleanup, err := initializeObservability(ctx, conf, "SHADOWPAY_WORKERS")
			if err != nil {
				log.Fatal(err)
			}
			defer cleanup()

			srv, err := initializeWorkerServer(conf, initializeQueues(conf))
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(conf, mux)

			redisOpt, _ := shadowpay.RedisOpt(conf)
			h := asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: redisOpt,
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				server := &http.Server{Addr: monitoringAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
				if err := server.ListenAndServe(); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
