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

	migrate "github.com/rubenv/sql-migrate"
	"github.com/shadowpay/shadowpay"
	"github.com/shadowpay/shadowpay/database"
	"github.com/spf13/cobra"
)

func migrateCommands(app *shadowpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run shadowpay database migrations",
	}

	cmd.AddCommand(migrateDirectionCommand(app, "up", migrate.Up))
	cmd.AddCommand(migrateDirectionCommand(app, "down", migrate.Down))

	return cmd
}

func migrateDirectionCommand(app *shadowpayInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use: use,
		Run: func(cmd *cobra.Command, args []string) {
			if app.cnf.DataSource.Dns == "" {
				log.Fatal("data source dns is required for migrations; the links file needs none")
			}

			migrations := migrate.EmbedFileSystemMigrationSource{
				FileSystem: shadowpay.SQLFiles,
				Root:       "sql",
			}

			db, dialect, err := database.ConnectDB(app.cnf.DataSource.Dns)
			if err != nil {
				log.Fatalf("Error connecting to database: %v", err)
			}
			defer db.Close()

			n, err := migrate.Exec(db, dialect, migrations, direction)
			if err != nil {
				log.Fatalf("Error migrating %s: %v", use, err)
			}
			fmt.Printf("Applied %d migrations %s!\n", n, use)
		},
	}
}
