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

	"github.com/shadowpay/shadowpay/internal/backups"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func backupCommands(app *shadowpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "export payment links",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "drive",
		Short: "write a JSON export to the backup directory",
		Run: func(cmd *cobra.Command, args []string) {
			bm, err := backupManager(app)
			if err != nil {
				logrus.Error(err)
				return
			}
			path, err := bm.BackupToDisk(context.Background())
			if err != nil {
				logrus.Error(err)
				return
			}
			fmt.Println("Backup written to", path)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "s3",
		Short: "export, zip and upload the day's backups to S3",
		Run: func(cmd *cobra.Command, args []string) {
			bm, err := backupManager(app)
			if err != nil {
				logrus.Error(err)
				return
			}
			key, err := bm.BackupToS3(context.Background())
			if err != nil {
				logrus.Error(err)
				return
			}
			fmt.Println("Backup uploaded as", key)
		},
	})

	return cmd
}

func backupManager(app *shadowpayInstance) (*backups.BackupManager, error) {
	db, err := app.datasource()
	if err != nil {
		return nil, err
	}
	return backups.NewBackupManager(app.cnf, db), nil
}
