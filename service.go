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

	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/repository"
	"github.com/tomoncle/docrepo/store"
	"github.com/tomoncle/docrepo/types"
)

// Service hands out one Repository per unit of work over a shared collection
// and wraps the common single-step operations.
type Service[T model.Entity] struct {
	coll           store.Collection[T]
	validateCreate repository.CreateValidator[T]
	opts           []repository.Option
}

// NewService returns a Service over coll; a nil validateCreate accepts every
// insert batch.
func NewService[T model.Entity](coll store.Collection[T], validateCreate repository.CreateValidator[T], opts ...repository.Option) (*Service[T], error) {
	if coll == nil {
		return nil, fmt.Errorf("%w: collection cannot be nil", store.ErrInvalidArgument)
	}
	if validateCreate == nil {
		validateCreate = repository.AllowAll[T]()
	}
	return &Service[T]{coll: coll, validateCreate: validateCreate, opts: opts}, nil
}

// OpenService opens databaseName.collectionName on c and returns a Service over it.
func OpenService[T model.Entity](ctx context.Context, c *Client, databaseName, collectionName string, validateCreate repository.CreateValidator[T], opts ...repository.Option) (*Service[T], error) {
	coll, err := Collection[T](ctx, c, databaseName, collectionName)
	if err != nil {
		return nil, err
	}
	return NewService[T](coll, validateCreate, opts...)
}

func (s *Service[T]) Collection() store.Collection[T] { return s.coll }

// Begin returns a fresh Repository with empty staging and query state.
func (s *Service[T]) Begin() (*repository.Repository[T], error) {
	return repository.New[T](s.coll, s.validateCreate, s.opts...)
}

// Do runs fn against a fresh Repository and commits what it staged. Nothing
// is committed when fn fails.
func (s *Service[T]) Do(ctx context.Context, fn func(r *repository.Repository[T]) error) error {
	r, err := s.Begin()
	if err != nil {
		return err
	}
	if err := fn(r); err != nil {
		return err
	}
	return r.SaveChanges(ctx)
}

// Save inserts entities in one commit.
func (s *Service[T]) Save(ctx context.Context, entities ...T) error {
	return s.Do(ctx, func(r *repository.Repository[T]) error {
		for _, e := range entities {
			if err := r.Add(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update replaces the stored documents of entities in one commit.
func (s *Service[T]) Update(ctx context.Context, entities ...T) error {
	return s.Do(ctx, func(r *repository.Repository[T]) error {
		for _, e := range entities {
			if err := r.Update(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the documents with the given ids in one commit.
func (s *Service[T]) Delete(ctx context.Context, ids ...string) error {
	return s.Do(ctx, func(r *repository.Repository[T]) error {
		for _, id := range ids {
			r.Delete(id)
		}
		return nil
	})
}

// Get returns the document with id or ErrNotFound.
func (s *Service[T]) Get(ctx context.Context, id string) (T, error) {
	r, err := s.Begin()
	if err != nil {
		var zero T
		return zero, err
	}
	return r.First(ctx, query.Eq(model.FieldID, id))
}

// List returns every document matching filter; a nil filter matches all.
func (s *Service[T]) List(ctx context.Context, filter *types.Filter) ([]T, error) {
	r, err := s.Begin()
	if err != nil {
		return nil, err
	}
	return r.Filter(filter).ToList(ctx)
}

// Page returns one page of the documents matching filter.
func (s *Service[T]) Page(ctx context.Context, filter *types.Filter, page *types.PageRequest) (*types.PageResponse[T], error) {
	if page == nil {
		return nil, fmt.Errorf("%w: page request cannot be nil", store.ErrInvalidArgument)
	}
	r, err := s.Begin()
	if err != nil {
		return nil, err
	}
	return r.Filter(filter).Paginate(ctx, page.GetPageSize(), page.GetPage())
}
