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
	"fmt"
	"log"
	"os"

	"github.com/shadowpay/shadowpay"
	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/database"
	redis_db "github.com/shadowpay/shadowpay/internal/redis-db"
	"github.com/shadowpay/shadowpay/internal/relayerclient"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ShadowPay is the CLI application.
type ShadowPay struct {
	cmd *cobra.Command
}

// shadowpayInstance carries what commands share once the config is loaded.
type shadowpayInstance struct {
	configFile string
	cnf        *config.Configuration
	db         database.IDataSource
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration. Services are built by the commands that need them.
func preRun(app *shadowpayInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(app.configFile); err != nil {
			log.Fatal("error loading config ", err)
		}
		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf
		return nil
	}
}

func (app *shadowpayInstance) datasource() (database.IDataSource, error) {
	if app.db != nil {
		return app.db, nil
	}
	db, err := database.NewDataSource(app.cnf)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}
	app.db = db
	return db, nil
}

func (app *shadowpayInstance) relayerClient() *relayerclient.Client {
	return relayerclient.New(app.cnf.Relayer.Url, app.cnf.Relayer.AuthSecret, app.cnf.RelayerCallTimeout())
}

// setupShadowPay builds the link service. Redis is optional and enables link
// locks, the read cache and webhook events.
func (app *shadowpayInstance) setupShadowPay() (*shadowpay.ShadowPay, func(), error) {
	db, err := app.datasource()
	if err != nil {
		return nil, nil, err
	}

	var opts []shadowpay.Option
	cleanup := func() {}
	if app.cnf.Redis.Dns != "" {
		client, err := redis_db.NewRedisClient([]string{app.cnf.Redis.Dns}, app.cnf.Redis.SkipTLSVerify)
		if err != nil {
			return nil, nil, fmt.Errorf("error connecting to redis: %v", err)
		}
		queue, err := shadowpay.NewQueue(app.cnf)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating queue: %v", err)
		}
		opts = append(opts, shadowpay.WithRedis(client.Client()), shadowpay.WithQueue(queue))
		cleanup = func() {
			_ = queue.Close()
			_ = client.Close()
		}
	} else {
		logrus.Warn("redis is not configured: link locks, cache and webhooks are disabled")
	}

	return shadowpay.NewShadowPay(app.cnf, db, app.relayerClient(), opts...), cleanup, nil
}

func NewCLI() *ShadowPay {
	app := &shadowpayInstance{}

	rootCmd := &cobra.Command{
		Use:   "shadowpay",
		Short: "Private payment links over a privacy pool",
		Run:   func(cmd *cobra.Command, args []string) {},
	}
	rootCmd.PersistentFlags().StringVar(&app.configFile, "config", "./shadowpay.json", "Configuration file for shadowpay")
	rootCmd.PersistentPreRunE = preRun(app)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(relayerCommands(app))
	rootCmd.AddCommand(offloadCommand())
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(backupCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &ShadowPay{cmd: rootCmd}
}

func (s ShadowPay) executeCLI() {
	if err := s.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
