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

// Package memstore is an in-process document collection. Documents are kept
// BSON-encoded so callers never share memory with the store, and queries are
// evaluated with query.Match.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/store"
)

type Collection[T any] struct {
	name  string
	mu    sync.RWMutex
	order []string
	docs  map[string]bson.Raw
}

var _ store.Collection[any] = (*Collection[any])(nil)

// New returns an empty collection.
func New[T any](name string) (*Collection[T], error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name cannot be empty", store.ErrInvalidArgument)
	}
	return &Collection[T]{name: name, docs: make(map[string]bson.Raw)}, nil
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) InsertOne(ctx context.Context, doc T) error {
	return c.InsertMany(ctx, []T{doc})
}

func (c *Collection[T]) InsertMany(ctx context.Context, docs []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded := make([]bson.Raw, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		raw, id, err := encode(doc)
		if err != nil {
			return err
		}
		encoded = append(encoded, raw)
		ids = append(ids, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	batch := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.docs[id]; ok {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, id)
		}
		if _, ok := batch[id]; ok {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, id)
		}
		batch[id] = struct{}{}
	}
	for i, id := range ids {
		c.docs[id] = encoded[i]
		c.order = append(c.order, id)
	}
	return nil
}

func (c *Collection[T]) ReplaceOne(ctx context.Context, id string, doc T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, docID, err := encode(doc)
	if err != nil {
		return err
	}
	if docID != id {
		return fmt.Errorf("%w: replacement id %s does not match %s", store.ErrInvalidArgument, docID, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; ok {
		c.docs[id] = raw
	}
	return nil
}

func (c *Collection[T]) DeleteOne(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Collection[T]) Find(ctx context.Context, spec query.Spec) ([]T, error) {
	if err := store.ValidateSpec(spec); err != nil {
		return nil, err
	}
	matched, err := c.match(ctx, spec.Filter)
	if err != nil {
		return nil, err
	}

	if s := spec.Sort; s != nil {
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := query.Lookup(matched[i].fields, s.Field)
			b, _ := query.Lookup(matched[j].fields, s.Field)
			if s.Descending {
				return query.CompareValues(a, b) > 0
			}
			return query.CompareValues(a, b) < 0
		})
	}

	if spec.Skip >= int64(len(matched)) {
		matched = nil
	} else {
		matched = matched[spec.Skip:]
	}
	if spec.Limit > 0 && int64(len(matched)) > spec.Limit {
		matched = matched[:spec.Limit]
	}

	out := make([]T, 0, len(matched))
	for _, m := range matched {
		var v T
		if err := bson.Unmarshal(m.raw, &v); err != nil {
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
	matched, err := c.match(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (c *Collection[T]) Any(ctx context.Context, filter query.Filter) (bool, error) {
	n, err := c.Count(ctx, filter)
	return n > 0, err
}

// Len returns the number of stored documents.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

type entry struct {
	raw    bson.Raw
	fields bson.M
}

func (c *Collection[T]) match(ctx context.Context, filter query.Filter) ([]entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	snapshot := make([]bson.Raw, 0, len(c.order))
	for _, id := range c.order {
		snapshot = append(snapshot, c.docs[id])
	}
	c.mu.RUnlock()

	var out []entry
	for _, raw := range snapshot {
		var fields bson.M
		if err := bson.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		if filter.Match(fields) {
			out = append(out, entry{raw: raw, fields: fields})
		}
	}
	return out, nil
}

func encode(doc any) (bson.Raw, string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, "", errors.Join(store.ErrInvalidArgument, err)
	}
	id, ok := bson.Raw(raw).Lookup(model.FieldID).StringValueOK()
	if !ok || id == "" {
		return nil, "", fmt.Errorf("%w: document has no string %s", store.ErrInvalidArgument, model.FieldID)
	}
	return raw, id, nil
}
