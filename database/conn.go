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
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
	globalConfig  *Config
)

// InitDB creates and connects the process-wide database manager.
func InitDB(ctx context.Context, cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	globalMu.Lock()
	previous := globalFactory
	globalFactory, globalConfig = factory, cfg
	globalMu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return manager, nil
}

func current() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// GetConfig returns the configuration passed to InitDB.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// GetDatabaseManager returns the global database manager, or nil.
func GetDatabaseManager() AbstractDatabaseManager {
	if f := current(); f != nil {
		return f.GetManager()
	}
	return nil
}

// GetDB returns the global Bun database instance when the backend is SQL.
func GetDB() *bun.DB {
	if f := current(); f != nil {
		return f.GetDB()
	}
	return nil
}

// CloseDB closes and forgets the global database connection.
func CloseDB() error {
	globalMu.Lock()
	f := globalFactory
	globalFactory, globalConfig = nil, nil
	globalMu.Unlock()

	if f != nil {
		return f.Close()
	}
	return nil
}

// GetHealthStatus returns the current global database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := current(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "Database not initialized"}
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	if f := current(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}
