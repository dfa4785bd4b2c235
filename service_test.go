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
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/docrepo/database"
	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/repository"
	"github.com/tomoncle/docrepo/store"
	"github.com/tomoncle/docrepo/store/memstore"
	"github.com/tomoncle/docrepo/types"
)

type customer struct {
	model.Model `bson:",inline"`
	Name        string `bson:"name"`
	Tier        int    `bson:"tier"`
}

func newCustomer(name string, tier int) *customer {
	return &customer{Model: model.NewModel(), Name: name, Tier: tier}
}

func config(backend string) *database.Config {
	cfg := database.DefaultConfig()
	cfg.Connection.Type = backend
	cfg.Connection.HealthCheckInterval = 0
	if backend == database.TypeSQLite {
		cfg.Connection.DBName = ":memory:"
	}
	return cfg
}

func open(t *testing.T, backend string) *Client {
	t.Helper()
	c, err := Open(context.Background(), config(backend))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenRejectsBadConfig(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = Open(context.Background(), config("cassandra"))
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestCollectionRequiresNames(t *testing.T) {
	c := open(t, database.TypeMemory)
	ctx := context.Background()

	_, err := Collection[*customer](ctx, c, "", "customers")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
	_, err = Collection[*customer](ctx, c, "crm", "")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
	_, err = Collection[*customer](ctx, nil, "crm", "customers")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestMemoryCollectionsAreShared(t *testing.T) {
	c := open(t, database.TypeMemory)
	ctx := context.Background()

	a, err := Collection[*customer](ctx, c, "crm", "customers")
	require.NoError(t, err)
	b, err := Collection[*customer](ctx, c, "crm", "customers")
	require.NoError(t, err)
	assert.Same(t, a, b)

	other, err := Collection[*customer](ctx, c, "archive", "customers")
	require.NoError(t, err)
	assert.NotSame(t, a, other)

	_, err = Collection[*model.Model](ctx, c, "crm", "customers")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestHealthAndClose(t *testing.T) {
	c, err := Open(context.Background(), config(database.TypeMemory))
	require.NoError(t, err)

	status := c.Health(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, database.TypeMemory, status.Backend)
	assert.Equal(t, database.TypeMemory, c.Manager().Type())

	require.NoError(t, c.Close())
	assert.False(t, c.Health(context.Background()).Healthy)
}

func TestMetricsWrapCollections(t *testing.T) {
	cfg := config(database.TypeMemory)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "docrepo_service_test"
	c, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	coll, err := Collection[*customer](context.Background(), c, "crm", "customers")
	require.NoError(t, err)
	_, isRaw := coll.(*memstore.Collection[*customer])
	assert.False(t, isRaw)
	assert.Equal(t, "customers", coll.Name())
}

func TestDefaultRequiresInitDB(t *testing.T) {
	_, err := Default()
	assert.Error(t, err)

	_, err = database.InitDB(context.Background(), config(database.TypeMemory))
	require.NoError(t, err)
	defer database.CloseDB()

	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, database.TypeMemory, c.Manager().Type())
}

func TestNewRepository(t *testing.T) {
	c := open(t, database.TypeMemory)
	ctx := context.Background()

	_, err := NewRepository[*customer](ctx, c, "crm", "customers", nil)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	r, err := NewRepository[*customer](ctx, c, "crm", "customers", repository.AllowAll[*customer]())
	require.NoError(t, err)
	require.NoError(t, r.Add(newCustomer("ada", 1)))
	require.NoError(t, r.SaveChanges(ctx))

	ok, err := r.Any(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func testServiceLifecycle(t *testing.T, backend string) {
	c := open(t, backend)
	ctx := context.Background()

	svc, err := OpenService[*customer](ctx, c, "crm", "customers", nil)
	require.NoError(t, err)

	ada := newCustomer("ada", 1)
	grace := newCustomer("grace", 2)
	require.NoError(t, svc.Save(ctx, ada, grace))

	got, err := svc.Get(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Name)
	assert.True(t, got.CreatedDate.Equal(ada.CreatedDate))

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	before := got.ModifiedDate
	got.Tier = 3
	require.NoError(t, svc.Update(ctx, got))
	got, err = svc.Get(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Tier)
	assert.True(t, got.ModifiedDate.After(before))
	assert.False(t, got.ModifiedDate.Before(got.CreatedDate))

	list, err := svc.List(ctx, &types.Filter{Exclude: []string{grace.ID}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ada.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, grace.ID, "missing"))
	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestServiceLifecycleMemory(t *testing.T) {
	testServiceLifecycle(t, database.TypeMemory)
}

func TestServiceLifecycleSQLite(t *testing.T) {
	testServiceLifecycle(t, database.TypeSQLite)
}

func TestServicePage(t *testing.T) {
	c := open(t, database.TypeSQLite)
	ctx := context.Background()
	svc, err := OpenService[*customer](ctx, c, "crm", "customers", nil)
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	batch := make([]*customer, 0, 25)
	for i := 0; i < 25; i++ {
		cu := newCustomer(fmt.Sprintf("c%02d", i), i%3)
		cu.CreatedDate = base.Add(time.Duration(i) * time.Minute)
		cu.ModifiedDate = cu.CreatedDate
		batch = append(batch, cu)
	}
	require.NoError(t, svc.Save(ctx, batch...))

	first, err := svc.Page(ctx, nil, types.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	assert.True(t, first.HasNextPage)

	last, err := svc.Page(ctx, nil, types.NewPageRequest(3, 10))
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.False(t, last.HasNextPage)

	desc := types.DirectionRef(types.Descending)
	newest, err := svc.Page(ctx, &types.Filter{OrderByDate: desc}, types.NewPageRequest(1, 1))
	require.NoError(t, err)
	require.Len(t, newest.Items, 1)
	assert.Equal(t, batch[24].ID, newest.Items[0].ID)

	_, err = svc.Page(ctx, nil, types.NewPageRequest(1, 0))
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
	_, err = svc.Page(ctx, nil, nil)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestServiceDoCommitsNothingOnError(t *testing.T) {
	c := open(t, database.TypeMemory)
	ctx := context.Background()
	svc, err := OpenService[*customer](ctx, c, "crm", "customers", nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = svc.Do(ctx, func(r *repository.Repository[*customer]) error {
		require.NoError(t, r.Add(newCustomer("ada", 1)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := svc.Collection().Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestServiceBeginIsolatesQueryState(t *testing.T) {
	c := open(t, database.TypeMemory)
	ctx := context.Background()
	svc, err := OpenService[*customer](ctx, c, "crm", "customers", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx, newCustomer("ada", 1), newCustomer("grace", 2)))

	r1, err := svc.Begin()
	require.NoError(t, err)
	n, err := r1.Count(ctx, query.Eq("tier", 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	r2, err := svc.Begin()
	require.NoError(t, err)
	n, err = r2.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestServiceCreateValidator(t *testing.T) {
	c := open(t, database.TypeMemory)
	ctx := context.Background()
	onlyNamed := func(pending []*customer) bool {
		for _, p := range pending {
			if p.Name == "" {
				return false
			}
		}
		return true
	}
	svc, err := OpenService[*customer](ctx, c, "crm", "customers", onlyNamed)
	require.NoError(t, err)

	require.NoError(t, svc.Save(ctx, newCustomer("", 1)))
	n, err := svc.Collection().Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "a rejected batch is skipped without error")

	_, err = NewService[*customer](nil, nil)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestModelTimestampsSurviveSQLite(t *testing.T) {
	c := open(t, database.TypeSQLite)
	ctx := context.Background()
	svc, err := OpenService[*customer](ctx, c, "crm", "customers", nil)
	require.NoError(t, err)

	old := newCustomer("old", 1)
	old.CreatedDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	old.ModifiedDate = old.CreatedDate
	require.NoError(t, svc.Save(ctx, old, newCustomer("new", 1)))

	list, err := svc.List(ctx, &types.Filter{CreatedDateTo: types.TimeRef(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "old", list[0].Name)
}

func TestCollectionsSurviveReconnect(t *testing.T) {
	ctx := context.Background()
	cfg := config(database.TypeSQLite)
	cfg.Connection.DBName = filepath.Join(t.TempDir(), "crm.db")
	c, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	svc, err := OpenService[*customer](ctx, c, "crm", "customers", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx, newCustomer("ada", 1)))

	require.NoError(t, c.Manager().Reconnect(ctx))
	require.True(t, c.Health(ctx).Healthy)

	require.NoError(t, svc.Save(ctx, newCustomer("bob", 2)))
	list, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, c.Manager().Disconnect())
	_, err = svc.List(ctx, nil)
	assert.Error(t, err)
}

func TestDateBoundsAgreeAcrossBackends(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{database.TypeMemory, database.TypeSQLite} {
		c := open(t, backend)
		svc, err := OpenService[*customer](ctx, c, "crm", "bounds", nil)
		require.NoError(t, err)
		e := newCustomer("ada", 1)
		require.NoError(t, svc.Save(ctx, e))

		bound := e.CreatedDate.Add(500 * time.Microsecond)
		r, err := svc.Begin()
		require.NoError(t, err)
		n, err := r.FromDate(bound).ToDate(bound).Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n, backend)
	}
}
