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
	"encoding/json"
	"fmt"
	"log"

	"github.com/shadowpay/shadowpay/config"
	"github.com/spf13/cobra"
)

const redacted = "********"

// configCommands prints the computed configuration with secrets masked.
func configCommands(app *shadowpayInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "config outputs your instance's computed configuration",
		Run: func(cmd *cobra.Command, args []string) {
			data, err := json.MarshalIndent(redact(*app.cnf), "", "    ")
			if err != nil {
				log.Fatalf("Error printing config: %v\n", err)
			}
			fmt.Println(string(data))
		},
	}
}

func redact(cfg config.Configuration) config.Configuration {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&cfg.Auth.JWTSecret)
	mask(&cfg.Relayer.AuthSecret)
	mask(&cfg.RelayerService.AuthSecret)
	mask(&cfg.Backup.AwsSecretAccessKey)
	mask(&cfg.DataSource.Dns)
	mask(&cfg.Redis.Dns)
	mask(&cfg.Notification.Slack.WebhookUrl)
	return cfg
}
