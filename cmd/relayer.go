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
	"log"

	"github.com/shadowpay/shadowpay/internal/offload"
	"github.com/shadowpay/shadowpay/internal/privacypool"
	"github.com/shadowpay/shadowpay/relayer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// relayerCommands starts the custodial relayer. It refuses to start without an
// RPC URL and a keypair.
func relayerCommands(app *shadowpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relayer",
		Short: "start the custodial relayer",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := app.cnf

			if err := cfg.RequireRelayer(); err != nil {
				log.Fatal(err)
			}
			if cfg.RelayerService.AuthSecret == "" {
				logrus.Warn("relayer auth secret is empty: any caller can move funds")
			}

			cleanup, err := initializeObservability(ctx, cfg, "SHADOWPAY_RELAYER")
			if err != nil {
				log.Fatal(err)
			}
			defer cleanup()

			kp, err := privacypool.LoadKeypair(cfg.RelayerService.KeypairPath)
			if err != nil {
				log.Fatal(err)
			}
			runner, err := offload.NewRunner(offload.WithTimeouts(cfg.DepositTimeout(), cfg.WithdrawTimeout()))
			if err != nil {
				log.Fatal(err)
			}
			pool := privacypool.NewRPCClient(cfg.RelayerService.RpcUrl, kp)

			logrus.WithField("relayer", kp.Address()).Info("relayer keypair loaded")
			router := relayer.New(cfg, kp, pool, runner).Router()
			if err := startServer(router, cfg.Server, cfg.RelayerService.Port); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
