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

// Package backups exports payment links to dated JSON files and ships a day's
// exports to S3 as a zip archive.
package backups

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/model"
	"github.com/sirupsen/logrus"
)

// LinkSource is the read side of the link store.
type LinkSource interface {
	GetAllLinks(ctx context.Context) ([]model.Link, error)
}

type BackupManager struct {
	Config   *config.Configuration
	Source   LinkSource
	Uploader s3manageriface.UploaderAPI
	now      func() time.Time
}

type snapshot struct {
	ExportedAt time.Time    `json:"exported_at"`
	Count      int          `json:"count"`
	Links      []model.Link `json:"links"`
}

func NewBackupManager(cfg *config.Configuration, source LinkSource) *BackupManager {
	return &BackupManager{Config: cfg, Source: source, now: time.Now}
}

func (b *BackupManager) dayDir(day time.Time) string {
	return filepath.Join(b.Config.Backup.Dir, day.Format("2006-01-02"))
}

// BackupToDisk writes every link to <backup dir>/<date>/links-<HHMMSS>.json.
func (b *BackupManager) BackupToDisk(ctx context.Context) (string, error) {
	links, err := b.Source.GetAllLinks(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to read links")
	}

	now := b.now().UTC()
	dir := b.dayDir(now)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create backup directory")
	}

	path := filepath.Join(dir, fmt.Sprintf("links-%s.json", now.Format("150405")))
	data, err := json.MarshalIndent(snapshot{ExportedAt: now, Count: len(links), Links: links}, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.Wrap(err, "failed to write backup")
	}

	logrus.WithFields(logrus.Fields{"path": path, "links": len(links)}).Info("backup written")
	return path, nil
}

// BackupToS3 takes a fresh disk backup, zips the day's directory and uploads it.
func (b *BackupManager) BackupToS3(ctx context.Context) (string, error) {
	if b.Config.Backup.S3BucketName == "" {
		return "", errors.New("s3 bucket is not configured")
	}
	if _, err := b.BackupToDisk(ctx); err != nil {
		return "", err
	}

	day := b.now().UTC()
	zipPath := filepath.Join(b.Config.Backup.Dir, day.Format("2006-01-02")+".zip")
	if err := zipDir(b.dayDir(day), zipPath); err != nil {
		return "", errors.Wrap(err, "failed to zip backups")
	}
	defer os.Remove(zipPath)

	uploader, err := b.uploader()
	if err != nil {
		return "", err
	}

	file, err := os.Open(zipPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := filepath.Base(zipPath)
	out, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(b.Config.Backup.S3BucketName),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to upload backup")
	}

	logrus.WithField("location", out.Location).Info("backup uploaded to s3")
	return key, nil
}

func (b *BackupManager) uploader() (s3manageriface.UploaderAPI, error) {
	if b.Uploader != nil {
		return b.Uploader, nil
	}
	cfg := b.Config.Backup
	awsConfig := &aws.Config{
		Region:      aws.String(cfg.S3Region),
		Credentials: credentials.NewStaticCredentials(cfg.AwsAccessKeyId, cfg.AwsSecretAccessKey, ""),
	}
	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create aws session")
	}
	b.Uploader = s3manager.NewUploader(sess)
	return b.Uploader, nil
}

func zipDir(srcDir, destZip string) error {
	zipFile, err := os.Create(destZip)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	writer := zip.NewWriter(zipFile)
	defer writer.Close()

	return filepath.Walk(srcDir, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(srcDir, filePath)
		if err != nil {
			return err
		}
		entry, err := writer.Create(relPath)
		if err != nil {
			return err
		}

		srcFile, err := os.Open(filePath)
		if err != nil {
			return err
		}
		defer srcFile.Close()

		_, err = io.Copy(entry, srcFile)
		return err
	})
}
