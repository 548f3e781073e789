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

package database

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shadowpay/shadowpay/config"
	"github.com/sirupsen/logrus"
)

const sqlitePrefix = "sqlite3://"

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn    *sql.DB
	Dialect string
}

// NewDataSource returns the SQL datasource when a DSN is configured and the
// links file store otherwise.
func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	if configuration.DataSource.Dns == "" {
		return NewFileStore(configuration.LinksFile)
	}
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, dialect, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Dialect: dialect}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Driver maps a DSN to its database/sql driver name and driver-specific DSN.
// "sqlite3://path" selects SQLite; anything else is handed to Postgres.
func Driver(dsn string) (driver, source string) {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return "sqlite3", strings.TrimPrefix(dsn, sqlitePrefix)
	}
	return "postgres", dsn
}

// ConnectDB opens the database and waits for it to answer a ping, retrying
// with exponential backoff for up to a minute.
func ConnectDB(dsn string) (*sql.DB, string, error) {
	driver, source := Driver(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, "", err
	}
	if driver == "sqlite3" {
		// a single writer keeps the conditional updates serialised
		db.SetMaxOpenConns(1)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = time.Minute
	err = backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}, policy, func(err error, next time.Duration) {
		logrus.WithError(err).Warnf("database not ready, retrying in %s", next)
	})
	if err != nil {
		logrus.WithError(err).Error("database connection error")
		_ = db.Close()
		return nil, "", err
	}
	return db, driver, nil
}
