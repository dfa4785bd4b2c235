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

package repository

import (
	"context"

	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/store"
	"github.com/tomoncle/docrepo/types"
)

var (
	ErrInvalidArgument = store.ErrInvalidArgument
	ErrNotFound        = store.ErrNotFound
)

// CreateValidator decides whether the staged inserts may be committed. Each
// concrete repository supplies its own.
type CreateValidator[T any] func(pending []T) bool

// AllowAll returns a CreateValidator that accepts every batch.
func AllowAll[T any]() CreateValidator[T] {
	return func([]T) bool { return true }
}

// UnitOfWork stages mutations in memory and commits them together.
type UnitOfWork[T model.Entity] interface {
	Add(entity T) error

	Update(entity T) error

	Delete(id string)

	ValidateCreate() bool

	ValidateUpdate() bool

	// SaveChanges commits staged inserts, then updates, then deletes.
	SaveChanges(ctx context.Context) error

	// Reset drops staged mutations and query state.
	Reset()
}

// Querier executes the accumulated predicates and sort. Predicates passed to
// a terminal call are added to the query state and stay there.
type Querier[T model.Entity] interface {
	Any(ctx context.Context, preds ...query.Predicate) (bool, error)

	Count(ctx context.Context, preds ...query.Predicate) (int64, error)

	// First fails with ErrNotFound when nothing matches.
	First(ctx context.Context, preds ...query.Predicate) (T, error)

	// FirstOrDefault returns the zero T when nothing matches.
	FirstOrDefault(ctx context.Context, preds ...query.Predicate) (T, error)

	ToList(ctx context.Context) ([]T, error)

	// Paginate returns a 1-indexed page of the matching documents.
	Paginate(ctx context.Context, pageSize int, pageNumber int) (*types.PageResponse[T], error)
}

// DocumentRepository combines staging and querying.
type DocumentRepository[T model.Entity] interface {
	UnitOfWork[T]
	Querier[T]
}

var _ DocumentRepository[*model.Model] = (*Repository[*model.Model])(nil)
