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

// Package mongostore maps collections onto MongoDB collections. Predicates
// translate one to one into MongoDB query operators.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/store"
)

var errNotConnected = errors.New("database is not connected")

type Collection[T any] struct {
	name string
	db   func() *mongo.Database
}

var _ store.Collection[any] = (*Collection[any])(nil)

// New wraps the named collection of db.
func New[T any](db *mongo.Database, name string) (*Collection[T], error) {
	if db == nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidArgument, errNotConnected)
	}
	return Open[T](func() *mongo.Database { return db }, name)
}

// Open wraps the named collection of the database returned by db, which is
// called on every operation so a reconnected client is picked up.
func Open[T any](db func() *mongo.Database, name string) (*Collection[T], error) {
	if db == nil || db() == nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidArgument, errNotConnected)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: collection name cannot be empty", store.ErrInvalidArgument)
	}
	return &Collection[T]{name: name, db: db}, nil
}

func (c *Collection[T]) collection() (*mongo.Collection, error) {
	if db := c.db(); db != nil {
		return db.Collection(c.name), nil
	}
	return nil, fmt.Errorf("failed to reach %s: %w", c.name, errNotConnected)
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) InsertOne(ctx context.Context, doc T) error {
	coll, err := c.collection()
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return c.insertError(err)
	}
	return nil
}

// InsertMany refuses a batch that repeats an id. Otherwise the documents are
// written in order and the write stops at the first stored id; documents
// before it stay inserted and ErrDuplicateID is returned.
func (c *Collection[T]) InsertMany(ctx context.Context, docs []T) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		id, err := documentID(doc)
		if err != nil {
			return err
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
		batch = append(batch, doc)
	}

	coll, err := c.collection()
	if err != nil {
		return err
	}
	if _, err := coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(true)); err != nil {
		return c.insertError(err)
	}
	return nil
}

func (c *Collection[T]) insertError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return errors.Join(store.ErrDuplicateID, err)
	}
	return fmt.Errorf("failed to insert into %s: %w", c.name, err)
}

func (c *Collection[T]) ReplaceOne(ctx context.Context, id string, doc T) error {
	docID, err := documentID(doc)
	if err != nil {
		return err
	}
	if docID != id {
		return fmt.Errorf("%w: replacement id %s does not match %s", store.ErrInvalidArgument, docID, id)
	}
	coll, err := c.collection()
	if err != nil {
		return err
	}
	if _, err := coll.ReplaceOne(ctx, bson.D{{Key: model.FieldID, Value: id}}, doc); err != nil {
		return fmt.Errorf("failed to replace %s in %s: %w", id, c.name, err)
	}
	return nil
}

func (c *Collection[T]) DeleteOne(ctx context.Context, id string) error {
	coll, err := c.collection()
	if err != nil {
		return err
	}
	if _, err := coll.DeleteOne(ctx, bson.D{{Key: model.FieldID, Value: id}}); err != nil {
		return fmt.Errorf("failed to delete %s from %s: %w", id, c.name, err)
	}
	return nil
}

func (c *Collection[T]) Find(ctx context.Context, spec query.Spec) ([]T, error) {
	if err := store.ValidateSpec(spec); err != nil {
		return nil, err
	}
	coll, err := c.collection()
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, Filter(spec.Filter), FindOptions(spec))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.name, err)
	}
	return out, nil
}

func (c *Collection[T]) Count(ctx context.Context, filter query.Filter) (int64, error) {
	if err := store.ValidateFilter(filter); err != nil {
		return 0, err
	}
	coll, err := c.collection()
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, Filter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	return n, nil
}

func (c *Collection[T]) Any(ctx context.Context, filter query.Filter) (bool, error) {
	if err := store.ValidateFilter(filter); err != nil {
		return false, err
	}
	coll, err := c.collection()
	if err != nil {
		return false, err
	}
	n, err := coll.CountDocuments(ctx, Filter(filter), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	return n > 0, nil
}

// Filter translates a conjunction into a MongoDB query document.
func Filter(filter query.Filter) bson.D {
	switch len(filter) {
	case 0:
		return bson.D{}
	case 1:
		return bson.D{condition(filter[0])}
	}
	clauses := make(bson.A, 0, len(filter))
	for _, p := range filter {
		clauses = append(clauses, bson.D{condition(p)})
	}
	return bson.D{{Key: "$and", Value: clauses}}
}

func condition(p query.Predicate) bson.E {
	value := p.Value
	if p.Op == query.OpIn || p.Op == query.OpNin {
		value = bson.A(query.Values(p.Value))
	}
	return bson.E{Key: p.Field, Value: bson.D{{Key: string(p.Op), Value: value}}}
}

// FindOptions carries the sort, skip and limit of spec.
func FindOptions(spec query.Spec) *options.FindOptions {
	opts := options.Find()
	if s := spec.Sort; s != nil {
		dir := 1
		if s.Descending {
			dir = -1
		}
		sort := bson.D{{Key: s.Field, Value: dir}}
		if s.Field != model.FieldID {
			sort = append(sort, bson.E{Key: model.FieldID, Value: 1})
		}
		opts.SetSort(sort)
	}
	if spec.Skip > 0 {
		opts.SetSkip(spec.Skip)
	}
	if spec.Limit > 0 {
		opts.SetLimit(spec.Limit)
	}
	return opts
}

func documentID(doc any) (string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", errors.Join(store.ErrInvalidArgument, err)
	}
	id, ok := bson.Raw(raw).Lookup(model.FieldID).StringValueOK()
	if !ok || id == "" {
		return "", fmt.Errorf("%w: document has no string %s", store.ErrInvalidArgument, model.FieldID)
	}
	return id, nil
}
