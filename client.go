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

package docrepo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tomoncle/docrepo/database"
	"github.com/tomoncle/docrepo/metrics"
	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/repository"
	"github.com/tomoncle/docrepo/store"
	"github.com/tomoncle/docrepo/store/memstore"
	"github.com/tomoncle/docrepo/store/mongostore"
	"github.com/tomoncle/docrepo/store/sqlstore"
)

// Client is a connected backend from which collections and repositories are
// opened.
type Client struct {
	config  *database.Config
	manager database.AbstractDatabaseManager
	metrics *metrics.Collector
	logger  database.Logger
}

// Open creates the manager for cfg, connects it and sets up metrics when
// enabled. Environment overrides are applied to cfg.
func Open(ctx context.Context, cfg *database.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: database configuration cannot be empty", store.ErrInvalidArgument)
	}
	factory := database.NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidArgument, err)
	}
	if err := factory.InitializeDatabase(ctx); err != nil {
		return nil, err
	}
	c, err := NewClient(manager, cfg)
	if err != nil {
		_ = manager.Disconnect()
		return nil, err
	}
	return c, nil
}

// Default returns a Client over the manager set up by database.InitDB.
func Default() (*Client, error) {
	manager := database.GetDatabaseManager()
	if manager == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return NewClient(manager, database.GetConfig())
}

// NewClient wraps an already connected manager.
func NewClient(manager database.AbstractDatabaseManager, cfg *database.Config) (*Client, error) {
	if manager == nil {
		return nil, fmt.Errorf("%w: database manager cannot be nil", store.ErrInvalidArgument)
	}
	if cfg == nil {
		cfg = database.DefaultConfig()
	}
	c := &Client{config: cfg, manager: manager, logger: database.GetLogger()}
	if cfg.Metrics.Enabled {
		m, err := metrics.NewCollector(cfg.Metrics.Namespace, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		c.metrics = m
	}
	return c, nil
}

func (c *Client) Manager() database.AbstractDatabaseManager { return c.manager }

func (c *Client) Config() *database.Config { return c.config }

// Health pings the backend.
func (c *Client) Health(ctx context.Context) *database.HealthStatus {
	return c.manager.HealthCheck(ctx)
}

// Close disconnects the backend. Collections opened from c fail until the
// manager connects again.
func (c *Client) Close() error {
	return c.manager.Disconnect()
}

// Collection opens collectionName in databaseName on the client's backend.
// Both names are required.
func Collection[T any](ctx context.Context, c *Client, databaseName, collectionName string) (store.Collection[T], error) {
	if c == nil {
		return nil, fmt.Errorf("%w: client cannot be nil", store.ErrInvalidArgument)
	}
	if databaseName == "" {
		return nil, fmt.Errorf("%w: database name cannot be empty", store.ErrInvalidArgument)
	}
	if collectionName == "" {
		return nil, fmt.Errorf("%w: collection name cannot be empty", store.ErrInvalidArgument)
	}

	var (
		coll store.Collection[T]
		err  error
	)
	switch m := c.manager.(type) {
	case database.MongoDatabaseManager:
		coll, err = mongostore.Open[T](func() *mongo.Database { return m.Database(databaseName) }, collectionName)
	case database.SQLDatabaseManager:
		coll, err = sqlstore.Open[T](ctx, m, databaseName, collectionName)
	case *database.MemoryDatabaseManager:
		coll, err = sharedMemoryCollection[T](m, databaseName, collectionName)
	default:
		err = fmt.Errorf("unsupported database manager %T", c.manager)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Collection opened", "backend", c.manager.Type(), "database", databaseName, "collection", collectionName)
	if c.metrics != nil {
		return metrics.Instrument(coll, c.metrics), nil
	}
	return coll, nil
}

func sharedMemoryCollection[T any](m *database.MemoryDatabaseManager, databaseName, collectionName string) (store.Collection[T], error) {
	var createErr error
	v := m.Shared(databaseName+"."+collectionName, func() any {
		coll, err := memstore.New[T](collectionName)
		createErr = err
		return coll
	})
	if createErr != nil {
		return nil, createErr
	}
	coll, ok := v.(*memstore.Collection[T])
	if !ok {
		return nil, fmt.Errorf("%w: collection %s.%s is open with another document type", store.ErrInvalidArgument, databaseName, collectionName)
	}
	return coll, nil
}

// NewRepository opens a collection and returns a Repository over it.
func NewRepository[T model.Entity](ctx context.Context, c *Client, databaseName, collectionName string, validateCreate repository.CreateValidator[T], opts ...repository.Option) (*repository.Repository[T], error) {
	coll, err := Collection[T](ctx, c, databaseName, collectionName)
	if err != nil {
		return nil, err
	}
	return repository.New[T](coll, validateCreate, opts...)
}
