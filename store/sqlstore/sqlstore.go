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

// Package sqlstore keeps documents in one SQL table per collection through
// Bun. Each row holds the document as relaxed extended JSON next to indexed
// copies of its id and timestamps; predicates on other fields are translated
// to the dialect's JSON extraction functions.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tomoncle/docrepo/database"
	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/store"
	"github.com/tomoncle/docrepo/types"
)

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`

	ID           string         `bun:"id,pk,type:varchar(64)"`
	CreatedDate  time.Time      `bun:"created_date,notnull"`
	ModifiedDate time.Time      `bun:"modified_date,notnull"`
	Data         types.JSONText `bun:"data,type:json,notnull"`
}

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableName returns the table backing collection in database.
func TableName(database, collection string) (string, error) {
	name := database + "_" + collection
	if database == "" || collection == "" || !tablePattern.MatchString(name) || len(name) > 63 {
		return "", fmt.Errorf("%w: invalid collection %q in database %q", store.ErrInvalidArgument, collection, database)
	}
	return name, nil
}

var errNotConnected = errors.New("database is not connected")

// DB yields the current connection pool. database.SQLDatabaseManager
// satisfies it, so a collection keeps working after its manager reconnects.
type DB interface {
	GetDB() *bun.DB
}

type staticDB struct{ db *bun.DB }

func (s staticDB) GetDB() *bun.DB { return s.db }

type Collection[T any] struct {
	db      DB
	name    string
	table   string
	dialect dialectExpr
}

var _ store.Collection[any] = (*Collection[any])(nil)

// New returns the collection on a fixed pool, creating its table when it does
// not exist.
func New[T any](ctx context.Context, db *bun.DB, databaseName, collectionName string) (*Collection[T], error) {
	if db == nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidArgument, errNotConnected)
	}
	return Open[T](ctx, staticDB{db}, databaseName, collectionName)
}

// Open is New over a pool resolved from src on every operation.
func Open[T any](ctx context.Context, src DB, databaseName, collectionName string) (*Collection[T], error) {
	if src == nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidArgument, errNotConnected)
	}
	db := src.GetDB()
	if db == nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidArgument, errNotConnected)
	}
	table, err := TableName(databaseName, collectionName)
	if err != nil {
		return nil, err
	}
	d, err := dialectFor(db.Dialect().Name())
	if err != nil {
		return nil, err
	}
	c := &Collection[T]{db: src, name: collectionName, table: table, dialect: d}

	_, err = db.NewCreateTable().
		Model((*documentRow)(nil)).
		ModelTableExpr("?", bun.Ident(table)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return c, nil
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) conn() (*bun.DB, error) {
	if db := c.db.GetDB(); db != nil {
		return db, nil
	}
	return nil, fmt.Errorf("failed to reach %s: %w", c.name, errNotConnected)
}

// Table returns the name of the backing table.
func (c *Collection[T]) Table() string { return c.table }

func (c *Collection[T]) InsertOne(ctx context.Context, doc T) error {
	return c.InsertMany(ctx, []T{doc})
}

// InsertMany inserts every document or none of them.
func (c *Collection[T]) InsertMany(ctx context.Context, docs []T) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]documentRow, 0, len(docs))
	for _, doc := range docs {
		row, err := encode(doc)
		if err != nil {
			return err
		}
		rows = append(rows, *row)
	}

	db, err := c.conn()
	if err != nil {
		return err
	}
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			ModelTableExpr("?", bun.Ident(c.table)).
			Exec(ctx)
		return err
	})
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return errors.Join(store.ErrDuplicateID, err)
		}
		return fmt.Errorf("failed to insert into %s: %w", c.name, err)
	}
	return nil
}

func (c *Collection[T]) ReplaceOne(ctx context.Context, id string, doc T) error {
	row, err := encode(doc)
	if err != nil {
		return err
	}
	if row.ID != id {
		return fmt.Errorf("%w: replacement id %s does not match %s", store.ErrInvalidArgument, row.ID, id)
	}
	db, err := c.conn()
	if err != nil {
		return err
	}
	_, err = db.NewUpdate().
		TableExpr("?", bun.Ident(c.table)).
		Set("created_date = ?", row.CreatedDate).
		Set("modified_date = ?", row.ModifiedDate).
		Set("data = ?", row.Data).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to replace %s in %s: %w", id, c.name, err)
	}
	return nil
}

func (c *Collection[T]) DeleteOne(ctx context.Context, id string) error {
	db, err := c.conn()
	if err != nil {
		return err
	}
	_, err = db.NewDelete().
		TableExpr("?", bun.Ident(c.table)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %s from %s: %w", id, c.name, err)
	}
	return nil
}

func (c *Collection[T]) selectQuery(dest any, filter query.Filter) (*bun.SelectQuery, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	q := db.NewSelect().
		Model(dest).
		ModelTableExpr("? AS doc", bun.Ident(c.table))
	for _, p := range filter {
		cl, err := c.dialect.compile(p)
		if err != nil {
			return nil, err
		}
		q = q.Where(cl.query, cl.args...)
	}
	return q, nil
}

func (c *Collection[T]) Find(ctx context.Context, spec query.Spec) ([]T, error) {
	if err := store.ValidateSpec(spec); err != nil {
		return nil, err
	}
	var rows []documentRow
	q, err := c.selectQuery(&rows, spec.Filter)
	if err != nil {
		return nil, err
	}
	q = q.Column("data")
	if s := spec.Sort; s != nil {
		dir := " ASC"
		if s.Descending {
			dir = " DESC"
		}
		q = q.OrderExpr(c.dialect.sortExpr(s.Field) + dir)
	}
	q = q.OrderExpr("id ASC")
	if spec.Limit > 0 {
		q = q.Limit(int(spec.Limit))
	} else if spec.Skip > 0 {
		// OFFSET without LIMIT is rejected by MySQL and SQLite
		q = q.Limit(math.MaxInt32)
	}
	if spec.Skip > 0 {
		q = q.Offset(int(spec.Skip))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.name, err)
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := bson.UnmarshalExtJSON(row.Data, false, &v); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Collection[T]) Count(ctx context.Context, filter query.Filter) (int64, error) {
	if err := store.ValidateFilter(filter); err != nil {
		return 0, err
	}
	q, err := c.selectQuery((*documentRow)(nil), filter)
	if err != nil {
		return 0, err
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	return int64(n), nil
}

func (c *Collection[T]) Any(ctx context.Context, filter query.Filter) (bool, error) {
	if err := store.ValidateFilter(filter); err != nil {
		return false, err
	}
	q, err := c.selectQuery((*documentRow)(nil), filter)
	if err != nil {
		return false, err
	}
	ok, err := q.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	return ok, nil
}

func encode(doc any) (*documentRow, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, errors.Join(store.ErrInvalidArgument, err)
	}
	r := bson.Raw(raw)
	id, ok := r.Lookup(model.FieldID).StringValueOK()
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: document has no string %s", store.ErrInvalidArgument, model.FieldID)
	}
	created, _ := r.Lookup(model.FieldCreatedDate).TimeOK()
	modified, _ := r.Lookup(model.FieldModifiedDate).TimeOK()

	data, err := bson.MarshalExtJSON(r, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", id, err)
	}
	return &documentRow{
		ID:           id,
		CreatedDate:  created.UTC(),
		ModifiedDate: modified.UTC(),
		Data:         data,
	}, nil
}
