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
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/store"
)

// Repository is a unit of work plus query builder over one collection.
//
// A Repository is owned by a single logical unit of work and is not safe for
// concurrent use. Builder methods mutate its query state and return the same
// Repository for chaining; terminal operations do not reset that state, so two
// terminal calls in a row run the same filters and sort. Call ResetQuery, Reset
// or take a fresh Repository to start over.
type Repository[T model.Entity] struct {
	coll           store.Collection[T]
	validateCreate CreateValidator[T]
	opts           *options

	pendingInserts []T
	pendingUpdates []T
	pendingDeletes []string

	spec query.Spec
}

// New returns a Repository over coll. validateCreate gates the insert phase of
// every commit.
func New[T model.Entity](coll store.Collection[T], validateCreate CreateValidator[T], opts ...Option) (*Repository[T], error) {
	if coll == nil || isNil(coll) {
		return nil, fmt.Errorf("%w: collection cannot be nil", ErrInvalidArgument)
	}
	if validateCreate == nil {
		return nil, fmt.Errorf("%w: create validator cannot be nil", ErrInvalidArgument)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Repository[T]{coll: coll, validateCreate: validateCreate, opts: o}, nil
}

// Collection returns the underlying store collection.
func (r *Repository[T]) Collection() store.Collection[T] { return r.coll }

// Add stages entity for insertion, assigning an id first if it has none.
func (r *Repository[T]) Add(entity T) error {
	if isNil(entity) {
		return fmt.Errorf("%w: entity to add cannot be nil", ErrInvalidArgument)
	}
	if entity.GetID() == "" {
		entity.SetID(r.opts.ids.NewID())
	}
	r.pendingInserts = append(r.pendingInserts, entity)
	return nil
}

// Update stages entity for replacement of the stored document with its id.
func (r *Repository[T]) Update(entity T) error {
	if isNil(entity) {
		return fmt.Errorf("%w: entity to update cannot be nil", ErrInvalidArgument)
	}
	r.pendingUpdates = append(r.pendingUpdates, entity)
	return nil
}

// Delete stages id for deletion. Existence is not checked.
func (r *Repository[T]) Delete(id string) {
	r.pendingDeletes = append(r.pendingDeletes, id)
}

// ValidateCreate runs the create validator over a copy of the staged inserts.
func (r *Repository[T]) ValidateCreate() bool {
	pending := make([]T, len(r.pendingInserts))
	copy(pending, r.pendingInserts)
	return r.validateCreate(pending)
}

// ValidateUpdate fails if any staged update has no id.
func (r *Repository[T]) ValidateUpdate() bool {
	for _, e := range r.pendingUpdates {
		if e.GetID() == "" {
			return false
		}
	}
	return true
}

// Pending returns the number of staged inserts, updates and deletes.
func (r *Repository[T]) Pending() (inserts, updates, deletes int) {
	return len(r.pendingInserts), len(r.pendingUpdates), len(r.pendingDeletes)
}

// SaveChanges commits staged inserts, then updates, then deletes.
//
// A phase whose validation fails is skipped without error and keeps its
// staged entries. An insert failure stops the commit. Updates and deletes are
// sent one document at a time; a failure on one document does not stop the
// others in the same phase, but failed updates stop the commit before the
// delete phase. Committed entries are unstaged unless WithRetainStaged is set;
// failed ones stay staged.
func (r *Repository[T]) SaveChanges(ctx context.Context) error {
	if err := r.commitInserts(ctx); err != nil {
		return err
	}
	if err := r.commitUpdates(ctx); err != nil {
		return err
	}
	return r.commitDeletes(ctx)
}

func (r *Repository[T]) commitInserts(ctx context.Context) error {
	n := len(r.pendingInserts)
	if n == 0 {
		return nil
	}
	if !r.ValidateCreate() {
		r.opts.logger.Warn("Create validation failed, staged inserts skipped", "collection", r.coll.Name(), "pending", n)
		return nil
	}

	var err error
	if n == 1 {
		err = r.coll.InsertOne(ctx, r.pendingInserts[0])
	} else {
		err = r.coll.InsertMany(ctx, r.pendingInserts)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %d documents into %s: %w", n, r.coll.Name(), err)
	}

	r.opts.logger.Debug("Inserted staged documents", "collection", r.coll.Name(), "count", n)
	if !r.opts.retainStaged {
		r.pendingInserts = nil
	}
	return nil
}

func (r *Repository[T]) commitUpdates(ctx context.Context) error {
	n := len(r.pendingUpdates)
	if n == 0 {
		return nil
	}
	if !r.ValidateUpdate() {
		r.opts.logger.Warn("Update validation failed, staged updates skipped", "collection", r.coll.Name(), "pending", n)
		return nil
	}

	var errs []error
	var failed []T
	for _, e := range r.pendingUpdates {
		e.SetModifiedDate(r.nextModifiedDate(e))
		if err := r.coll.ReplaceOne(ctx, e.GetID(), e); err != nil {
			errs = append(errs, fmt.Errorf("failed to replace document %s in %s: %w", e.GetID(), r.coll.Name(), err))
			failed = append(failed, e)
		}
	}

	r.opts.logger.Debug("Replaced staged documents", "collection", r.coll.Name(), "count", n-len(failed), "failed", len(failed))
	if !r.opts.retainStaged {
		r.pendingUpdates = failed
	}
	return errors.Join(errs...)
}

func (r *Repository[T]) commitDeletes(ctx context.Context) error {
	n := len(r.pendingDeletes)
	if n == 0 {
		return nil
	}

	var errs []error
	var failed []string
	for _, id := range r.pendingDeletes {
		if err := r.coll.DeleteOne(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete document %s from %s: %w", id, r.coll.Name(), err))
			failed = append(failed, id)
		}
	}

	r.opts.logger.Debug("Deleted staged documents", "collection", r.coll.Name(), "count", n-len(failed), "failed", len(failed))
	if !r.opts.retainStaged {
		r.pendingDeletes = failed
	}
	return errors.Join(errs...)
}

// nextModifiedDate returns the commit time at millisecond precision, moved
// forward when needed so it is never before createdDate and always after the
// previous modifiedDate.
func (r *Repository[T]) nextModifiedDate(e T) time.Time {
	now := r.opts.clock().UTC().Truncate(time.Millisecond)
	if created := e.GetCreatedDate(); now.Before(created) {
		now = created
	}
	if prev := e.GetModifiedDate(); !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

// Reset drops every staged mutation and the query state.
func (r *Repository[T]) Reset() {
	r.pendingInserts = nil
	r.pendingUpdates = nil
	r.pendingDeletes = nil
	r.ResetQuery()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
