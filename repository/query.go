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
	"fmt"
	"time"

	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/types"
)

// Where adds predicates to the query. All predicates are AND-ed.
func (r *Repository[T]) Where(preds ...query.Predicate) *Repository[T] {
	if len(preds) > 0 {
		r.spec = r.spec.Where(preds...)
	}
	return r
}

// OrderBy sorts ascending by field, replacing any previous sort.
func (r *Repository[T]) OrderBy(field string) *Repository[T] {
	r.spec = r.spec.OrderBy(field)
	return r
}

// OrderByDescending sorts descending by field, replacing any previous sort.
func (r *Repository[T]) OrderByDescending(field string) *Repository[T] {
	r.spec = r.spec.OrderByDescending(field)
	return r
}

// OrderByDate sorts by createdDate, replacing any previous sort.
func (r *Repository[T]) OrderByDate(direction types.OrderDirection) *Repository[T] {
	if direction == types.Descending {
		return r.OrderByDescending(model.FieldCreatedDate)
	}
	return r.OrderBy(model.FieldCreatedDate)
}

// FromDate keeps documents created at or after d.
func (r *Repository[T]) FromDate(d time.Time) *Repository[T] {
	return r.Where(query.Gte(model.FieldCreatedDate, d))
}

// ToDate keeps documents created at or before d.
func (r *Repository[T]) ToDate(d time.Time) *Repository[T] {
	return r.Where(query.Lte(model.FieldCreatedDate, d))
}

// FromModifiedDate keeps documents modified at or after d.
func (r *Repository[T]) FromModifiedDate(d time.Time) *Repository[T] {
	return r.Where(query.Gte(model.FieldModifiedDate, d))
}

// ToModifiedDate keeps documents modified at or before d.
func (r *Repository[T]) ToModifiedDate(d time.Time) *Repository[T] {
	return r.Where(query.Lte(model.FieldModifiedDate, d))
}

// HasIds keeps documents whose id is one of ids.
func (r *Repository[T]) HasIds(ids ...string) *Repository[T] {
	return r.Where(query.In(model.FieldID, ids...))
}

// HasNotIds drops documents whose id is one of ids.
func (r *Repository[T]) HasNotIds(ids ...string) *Repository[T] {
	return r.Where(query.Nin(model.FieldID, ids...))
}

// Filter applies every set field of f. The date ordering is applied last and
// so overrides an earlier OrderBy.
func (r *Repository[T]) Filter(f *types.Filter) *Repository[T] {
	if f == nil {
		return r
	}
	if f.CreatedDateTo != nil {
		r.ToDate(*f.CreatedDateTo)
	}
	if f.CreatedDateFrom != nil {
		r.FromDate(*f.CreatedDateFrom)
	}
	if f.ModifiedDateFrom != nil {
		r.FromModifiedDate(*f.ModifiedDateFrom)
	}
	if f.ModifiedDateTo != nil {
		r.ToModifiedDate(*f.ModifiedDateTo)
	}
	if f.Ids != nil {
		r.HasIds(f.Ids...)
	}
	if f.Exclude != nil {
		r.HasNotIds(f.Exclude...)
	}
	if f.OrderByDate != nil {
		r.OrderByDate(*f.OrderByDate)
	}
	return r
}

// Spec returns a snapshot of the accumulated query.
func (r *Repository[T]) Spec() query.Spec {
	return r.spec
}

// ResetQuery clears predicates and sort.
func (r *Repository[T]) ResetQuery() {
	r.spec = query.Spec{}
}

// Any stages preds and reports whether a document matches.
func (r *Repository[T]) Any(ctx context.Context, preds ...query.Predicate) (bool, error) {
	r.Where(preds...)
	return r.coll.Any(ctx, r.spec.Filter)
}

// Count stages preds and counts the matching documents.
func (r *Repository[T]) Count(ctx context.Context, preds ...query.Predicate) (int64, error) {
	r.Where(preds...)
	return r.coll.Count(ctx, r.spec.Filter)
}

// First stages preds and returns the first match in sort order, or
// ErrNotFound.
func (r *Repository[T]) First(ctx context.Context, preds ...query.Predicate) (T, error) {
	v, found, err := r.first(ctx, preds)
	if err != nil {
		return v, err
	}
	if !found {
		return v, fmt.Errorf("%w: no document in %s matches the query", ErrNotFound, r.coll.Name())
	}
	return v, nil
}

// FirstOrDefault is First returning the zero T when nothing matches.
func (r *Repository[T]) FirstOrDefault(ctx context.Context, preds ...query.Predicate) (T, error) {
	v, _, err := r.first(ctx, preds)
	return v, err
}

func (r *Repository[T]) first(ctx context.Context, preds []query.Predicate) (T, bool, error) {
	var zero T
	r.Where(preds...)
	docs, err := r.coll.Find(ctx, r.spec.Page(0, 1))
	if err != nil || len(docs) == 0 {
		return zero, false, err
	}
	return docs[0], true, nil
}

// ToList returns every match in sort order.
func (r *Repository[T]) ToList(ctx context.Context) ([]T, error) {
	return r.coll.Find(ctx, r.spec)
}

// Paginate returns page pageNumber (1-indexed) of pageSize documents.
// HasNextPage is floor(total/pageSize) > pageNumber.
func (r *Repository[T]) Paginate(ctx context.Context, pageSize int, pageNumber int) (*types.PageResponse[T], error) {
	page := types.NewPageRequest(pageNumber, pageSize)
	if err := page.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	items, err := r.coll.Find(ctx, r.spec.Page(page.GetOffset(), int64(page.GetPageSize())))
	if err != nil {
		return nil, err
	}
	total, err := r.coll.Count(ctx, r.spec.Filter)
	if err != nil {
		return nil, err
	}
	return types.NewPageResponse(items, page.HasNextPage(total)), nil
}
