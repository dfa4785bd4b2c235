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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// BaseDatabaseFactory creates the manager matching a connection config and
// wraps initialization, health checks and statistics around it.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// CreateFromConfig applies environment overrides to cfg, validates it and
// builds the manager for its backend type. Nothing is connected yet.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	f.overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var manager AbstractDatabaseManager
	switch cfg.NormalizedType() {
	case TypeMySQL, TypePostgres, TypeSQLite:
		manager = NewDatabaseManager(cfg)
	case TypeMongoDB:
		manager = NewMongoDatabaseManager(cfg)
	case TypeMemory:
		manager = NewMemoryDatabaseManager()
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

func envInt(key string, set func(int)) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			set(n)
		}
	}
}

func envString(key string, set func(string)) {
	if v := os.Getenv(key); v != "" {
		set(v)
	}
}

// overrideFromEnv overrides configuration values from DB_* environment variables.
func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	envString("DB_TYPE", func(v string) { cfg.Type = v })
	envString("DB_URI", func(v string) { cfg.URI = v })
	envString("DB_HOST", func(v string) { cfg.Host = v })
	envInt("DB_PORT", func(v int) { cfg.Port = v })
	envString("DB_USERNAME", func(v string) { cfg.Username = v })
	envString("DB_PASSWORD", func(v string) { cfg.Password = v })
	envString("DB_NAME", func(v string) { cfg.DBName = v })
	envString("DB_SSLMODE", func(v string) { cfg.SSLMode = v })

	// Connection pool config
	envInt("DB_MAX_IDLE_CONNS", func(v int) { cfg.MaxIdleConns = v })
	envInt("DB_MAX_OPEN_CONNS", func(v int) { cfg.MaxOpenConns = v })
	envInt("DB_CONN_MAX_LIFETIME", func(v int) { cfg.ConnMaxLifetime = time.Duration(v) * time.Second })

	envString("DB_ENABLE_RECONNECT", func(v string) { cfg.EnableReconnect = v == "true" })
	envInt("DB_RECONNECT_INTERVAL", func(v int) { cfg.ReconnectInterval = time.Duration(v) * time.Second })
	envString("DB_ENABLE_QUERY_LOG", func(v string) { cfg.EnableQueryLog = v == "true" })
}

// InitializeDatabase connects the manager created by CreateFromConfig.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.logger.Info("Database initialization completed", "type", f.manager.Type())
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil for non-SQL backends.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if m, ok := f.manager.(SQLDatabaseManager); ok {
		return m.GetDB()
	}
	return nil
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the connection managed by the factory.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

// GetHealthStatus returns the current health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns pool statistics for SQL backends and zero stats otherwise.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if m, ok := f.manager.(SQLDatabaseManager); ok {
		return m.GetStats()
	}
	return &DBStats{}
}
