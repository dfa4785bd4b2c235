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
	"time"
)

// MemoryDatabaseManager keeps process-local collections alive for as long as
// the manager is connected.
type MemoryDatabaseManager struct {
	mu          sync.Mutex
	connected   bool
	logger      Logger
	collections map[string]any
}

// NewMemoryDatabaseManager returns a disconnected in-memory manager.
func NewMemoryDatabaseManager() *MemoryDatabaseManager {
	return &MemoryDatabaseManager{
		logger:      GetLogger(),
		collections: make(map[string]any),
	}
}

func (m *MemoryDatabaseManager) Type() string { return TypeMemory }

func (m *MemoryDatabaseManager) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

// Disconnect drops every collection held by the manager.
func (m *MemoryDatabaseManager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.collections = make(map[string]any)
	return nil
}

func (m *MemoryDatabaseManager) Reconnect(ctx context.Context) error {
	_ = m.Disconnect()
	return m.Connect(ctx)
}

func (m *MemoryDatabaseManager) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("database not connected")
	}
	return nil
}

func (m *MemoryDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{Backend: TypeMemory, LastCheckTime: time.Now()}
	if err := m.Ping(ctx); err != nil {
		status.LastError = err.Error()
		return status
	}
	status.Connected = true
	status.Healthy = true
	return status
}

func (m *MemoryDatabaseManager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger != nil {
		m.logger = logger
	}
}

// Shared returns the value registered under key, calling create on first use.
func (m *MemoryDatabaseManager) Shared(key string, create func() any) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.collections[key]; ok {
		return v
	}
	v := create()
	m.collections[key] = v
	m.logger.Debug("Memory collection created", "key", key)
	return v
}
