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
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v3"
)

// Supported backend types.
const (
	TypeMongoDB  = "mongodb"
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
	TypeMemory   = "memory"
)

// AbstractDatabaseManager defines the operations shared by every backend
// connection: connecting, health reporting and logging.
type AbstractDatabaseManager interface {
	Type() string
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	SetLogger(logger Logger)
}

// SQLDatabaseManager is implemented by the bun-backed managers.
type SQLDatabaseManager interface {
	AbstractDatabaseManager
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	GetStats() *DBStats
}

// MongoDatabaseManager is implemented by the MongoDB manager.
type MongoDatabaseManager interface {
	AbstractDatabaseManager
	GetClient() *mongo.Client
	Database(name string) *mongo.Database
}

// AbstractDatabaseConfigProvider exposes configuration loading.
type AbstractDatabaseConfigProvider interface {
	ConfigLoader() *Config
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	Backend       string        `json:"backend"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the SQL managers.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to reach a backend and tune its pool.
type ConnectionConfig struct {
	Type                string        `json:"type" yaml:"type" validate:"required,oneof=mongodb postgres postgresql mysql sqlite sqlite3 memory"`
	URI                 string        `json:"uri" yaml:"uri" validate:"omitempty,url"` // mongodb only; wins over host/port
	Host                string        `json:"host" yaml:"host"`
	Port                int           `json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Username            string        `json:"username" yaml:"username"`
	Password            string        `json:"password" yaml:"password"`
	DBName              string        `json:"dbname" yaml:"dbname"` // SQL database; sqlite file name or ":memory:"
	SSLMode             string        `json:"sslmode" yaml:"sslmode"`
	MaxIdleConns        int           `json:"max_idle_conns" yaml:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns        int           `json:"max_open_conns" yaml:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime     time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime     time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnectTimeout      time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout         time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout" yaml:"write_timeout"`
	EnableReconnect     bool          `json:"enable_reconnect" yaml:"enable_reconnect"`
	ReconnectInterval   time.Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
	MaxReconnectTries   int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries" validate:"gte=0"`
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	EnableQueryLog      bool          `json:"enable_query_log" yaml:"enable_query_log"`
	SlowQueryTime       time.Duration `json:"slow_query_time" yaml:"slow_query_time"`
}

// NormalizedType folds type aliases to the Type* constants.
func (c *ConnectionConfig) NormalizedType() string {
	switch t := strings.ToLower(strings.TrimSpace(c.Type)); t {
	case "postgresql":
		return TypePostgres
	case "sqlite3":
		return TypeSQLite
	default:
		return t
	}
}

// MetricsConfig controls Prometheus instrumentation of collections.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// Config aggregates connection and instrumentation settings.
type Config struct {
	Connection ConnectionConfig `json:"connection" yaml:"connection"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		EnableQueryLog:      false,
		SlowQueryTime:       time.Second * 2,
	}
}

// DefaultConfig returns a Config with DefaultConnectionConfig and metrics off.
func DefaultConfig() *Config {
	return &Config{
		Connection: *DefaultConnectionConfig(),
		Metrics:    MetricsConfig{Namespace: "docrepo"},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Durations use Go syntax ("30s").
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks the struct tags of the connection settings.
func (c *Config) Validate() error {
	return c.Connection.Validate()
}

func (c *ConnectionConfig) Validate() error {
	validateOnce.Do(func() { validate = validator.New() })
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	return nil
}
