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
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoDatabaseManager struct {
	config    *ConnectionConfig
	client    *mongo.Client
	logger    Logger
	mu        sync.RWMutex
	connected bool
	lastError error
}

// NewMongoDatabaseManager returns a MongoDatabaseManager for cfg.
func NewMongoDatabaseManager(config *ConnectionConfig) MongoDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
		config.Type = TypeMongoDB
	}
	return &mongoDatabaseManager{
		config: config,
		logger: GetLogger(),
	}
}

// MongoURI returns cfg.URI or builds one from host, port and credentials.
func MongoURI(cfg *ConnectionConfig) string {
	if cfg.URI != "" {
		return cfg.URI
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	u := url.URL{Scheme: "mongodb", Host: net.JoinHostPort(host, strconv.Itoa(port))}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}

func (m *mongoDatabaseManager) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(MongoURI(m.config)).
		SetMonitor(newCommandMonitor(m.config, m.logger).Monitor())
	if m.config.MaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(m.config.MaxOpenConns))
	}
	if m.config.MaxIdleConns > 0 {
		opts.SetMinPoolSize(uint64(m.config.MaxIdleConns))
	}
	if m.config.ConnMaxIdleTime > 0 {
		opts.SetMaxConnIdleTime(m.config.ConnMaxIdleTime)
	}
	if m.config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(m.config.ConnectTimeout)
		opts.SetServerSelectionTimeout(m.config.ConnectTimeout)
	}
	return opts
}

func (m *mongoDatabaseManager) Type() string { return TypeMongoDB }

func (m *mongoDatabaseManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected && m.client != nil {
		return nil
	}

	client, err := mongo.Connect(ctx, m.clientOptions())
	if err != nil {
		m.lastError = err
		return fmt.Errorf("failed to create mongodb client: %w", err)
	}

	timeout := m.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctxTimeout, readpref.Primary()); err != nil {
		m.lastError = err
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongodb connection test failed: %w", err)
	}

	m.client = client
	m.connected = true
	m.lastError = nil
	m.logger.Info("MongoDB connected successfully", "host", m.config.Host)
	return nil
}

func (m *mongoDatabaseManager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	m.client = nil
	m.connected = false
	if err != nil {
		m.logger.Error("Failed to close mongodb connection", "error", err)
	} else {
		m.logger.Info("MongoDB connection closed")
	}
	return err
}

func (m *mongoDatabaseManager) Reconnect(ctx context.Context) error {
	m.logger.Info("Attempting to reconnect to mongodb")
	if err := m.Disconnect(); err != nil {
		m.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return m.Connect(ctx)
}

func (m *mongoDatabaseManager) Ping(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("database not connected")
	}
	return client.Ping(ctx, readpref.Primary())
}

func (m *mongoDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		Backend:       TypeMongoDB,
		LastCheckTime: start,
	}

	m.mu.RLock()
	status.Connected = m.connected
	m.mu.RUnlock()

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := m.Ping(ctxTimeout)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}

	m.mu.Lock()
	m.lastError = err
	m.mu.Unlock()
	return status
}

func (m *mongoDatabaseManager) GetClient() *mongo.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Database returns the named database, or nil before Connect.
func (m *mongoDatabaseManager) Database(name string) *mongo.Database {
	client := m.GetClient()
	if client == nil {
		return nil
	}
	return client.Database(name)
}

func (m *mongoDatabaseManager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger != nil {
		m.logger = logger
	}
}
