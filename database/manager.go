/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

const (
	defaultConnectTimeout = 30 * time.Second
	healthCheckTimeout    = 5 * time.Second
)

var errNotConnected = errors.New("database not connected")

// sqlDriver binds a backend type to its database/sql driver, DSN and bun dialect.
type sqlDriver struct {
	name    string
	dsn     func(*ConnectionConfig) string
	dialect func() schema.Dialect
}

var sqlDrivers = map[string]sqlDriver{
	TypeMySQL: {
		name:    "mysql",
		dsn:     MySQLDSN,
		dialect: func() schema.Dialect { return mysqldialect.New() },
	},
	TypePostgres: {
		name:    "postgres",
		dsn:     PostgresDSN,
		dialect: func() schema.Dialect { return pgdialect.New() },
	},
	TypeSQLite: {
		name:    sqliteshim.ShimName,
		dsn:     func(c *ConnectionConfig) string { return SQLiteDSN(c.DBName) },
		dialect: func() schema.Dialect { return sqlitedialect.New() },
	},
}

// sqlDatabaseManager owns one bun.DB for the document tables of a SQL backend.
type sqlDatabaseManager struct {
	config *ConnectionConfig

	mu     sync.RWMutex
	db     *bun.DB
	logger Logger
	stop   chan struct{}
}

// NewDatabaseManager returns a SQLDatabaseManager backed by Bun.
// If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig) SQLDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &sqlDatabaseManager{config: config, logger: GetLogger()}
}

func (dm *sqlDatabaseManager) Type() string { return dm.config.NormalizedType() }

func (dm *sqlDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.db != nil {
		return nil
	}
	db, err := dm.open(ctx)
	if err != nil {
		return err
	}
	dm.db = db

	if interval := dm.config.HealthCheckInterval; interval > 0 {
		dm.stop = make(chan struct{})
		go dm.watch(dm.stop, interval)
	}
	dm.logger.Info("Document store connected", "type", dm.Type(), "host", dm.config.Host, "dbname", dm.config.DBName)
	return nil
}

// open builds and pings a new pool. Callers hold dm.mu.
func (dm *sqlDatabaseManager) open(ctx context.Context) (*bun.DB, error) {
	driver, ok := sqlDrivers[dm.Type()]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}
	sqlDB, err := sql.Open(driver.name, driver.dsn(dm.config))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	dm.configurePool(sqlDB)

	db := bun.NewDB(sqlDB, driver.dialect())
	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{slowTime: dm.config.SlowQueryTime, logger: dm.logger})
	}

	timeout := dm.config.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}
	return db, nil
}

// configurePool applies the pool limits. An in-memory sqlite database lives
// inside a single connection, so its pool is pinned to one.
func (dm *sqlDatabaseManager) configurePool(sqlDB *sql.DB) {
	if dm.Type() == TypeSQLite && SQLiteDSN(dm.config.DBName) == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

// MySQLDSN renders the go-sql-driver DSN for cfg. Times are read back as UTC.
func MySQLDSN(cfg *ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = hostPort(cfg, 3306)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// PostgresDSN renders a lib/pq connection URL for cfg.
func PostgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     hostPort(cfg, 5432),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}

// SQLiteDSN maps a configured database name to a sqlite DSN: ":memory:" stays
// in memory, names without an extension get ".db".
func SQLiteDSN(name string) string {
	switch {
	case name == "" || name == ":memory:":
		return ":memory:"
	case strings.HasPrefix(name, "file:"), strings.Contains(name, "."):
		return name
	default:
		return name + ".db"
	}
}

func hostPort(cfg *ConnectionConfig, defaultPort int) string {
	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (dm *sqlDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.stop != nil {
		close(dm.stop)
		dm.stop = nil
	}
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db = nil
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	dm.logger.Info("Database connection closed", "type", dm.Type())
	return nil
}

func (dm *sqlDatabaseManager) Reconnect(ctx context.Context) error {
	dm.logger.Info("Attempting to reconnect to the database", "type", dm.Type())
	if err := dm.Disconnect(); err != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.Connect(ctx)
}

func (dm *sqlDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return errNotConnected
	}
	return db.PingContext(ctx)
}

func (dm *sqlDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *sqlDatabaseManager) GetSQLDB() *sql.DB {
	if db := dm.GetDB(); db != nil {
		return db.DB
	}
	return nil
}

func (dm *sqlDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{Backend: dm.Type(), LastCheckTime: start}

	db := dm.GetDB()
	if db == nil {
		status.LastError = errNotConnected.Error()
		return status
	}
	status.Connected = true

	pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		status.Connected = false
		status.LastError = err.Error()
	} else {
		status.Healthy = true
	}
	status.ResponseTime = time.Since(start)

	stats := db.DB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

// watch pings the pool every interval until stop is closed and reopens it
// when a check fails and reconnects are enabled.
func (dm *sqlDatabaseManager) watch(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		status := dm.HealthCheck(ctx)
		cancel()
		if !status.Healthy && dm.config.EnableReconnect {
			dm.retryConnect(stop)
		}
	}
}

func (dm *sqlDatabaseManager) retryConnect(stop <-chan struct{}) {
	for try := 1; try <= dm.config.MaxReconnectTries; try++ {
		select {
		case <-stop:
			return
		case <-time.After(dm.config.ReconnectInterval):
		}
		ctx, cancel := context.WithTimeout(context.Background(), dm.config.ConnectTimeout)
		err := dm.reopen(ctx)
		cancel()
		if err == nil {
			dm.logger.Info("Reconnect succeeded", "try", try)
			return
		}
		dm.logger.Error("Reconnect failed", "error", err, "try", try)
	}
	dm.logger.Error("Max reconnect attempts reached, stopping", "tries", dm.config.MaxReconnectTries)
}

// reopen swaps the pool for a fresh one while keeping the watcher running.
func (dm *sqlDatabaseManager) reopen(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.stop == nil {
		return errNotConnected
	}
	db, err := dm.open(ctx)
	if err != nil {
		return err
	}
	if dm.db != nil {
		_ = dm.db.Close()
	}
	dm.db = db
	return nil
}

func (dm *sqlDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *sqlDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if logger != nil {
		dm.logger = logger
	}
}
