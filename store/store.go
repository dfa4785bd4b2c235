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

package store

import (
	"context"
	"errors"
	"regexp"

	"github.com/tomoncle/docrepo/query"
)

var (
	// ErrInvalidArgument reports a missing or malformed required input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound reports that a query expected to yield a document yielded none.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateID reports an insert whose id already exists in the collection.
	ErrDuplicateID = errors.New("duplicate document id")
)

// Collection is one named collection of documents of type T.
type Collection[T any] interface {
	// Name returns the collection name.
	Name() string

	InsertOne(ctx context.Context, doc T) error

	InsertMany(ctx context.Context, docs []T) error

	// ReplaceOne replaces the document stored under id. Replacing an absent id
	// is a no-op.
	ReplaceOne(ctx context.Context, id string, doc T) error

	// DeleteOne removes the document stored under id. Deleting an absent id is
	// a no-op.
	DeleteOne(ctx context.Context, id string) error

	// Find returns the documents matching spec, sorted and paged as spec says.
	Find(ctx context.Context, spec query.Spec) ([]T, error)

	Count(ctx context.Context, filter query.Filter) (int64, error)

	Any(ctx context.Context, filter query.Filter) (bool, error)
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidFieldName reports whether name is a plain, optionally dotted, field path.
func ValidFieldName(name string) bool {
	return fieldPattern.MatchString(name)
}

// ValidateSpec checks predicates and field names before a backend translates them.
func ValidateSpec(spec query.Spec) error {
	if err := ValidateFilter(spec.Filter); err != nil {
		return err
	}
	if spec.Sort != nil && !ValidFieldName(spec.Sort.Field) {
		return invalidField(spec.Sort.Field)
	}
	if spec.Skip < 0 || spec.Limit < 0 {
		return errors.Join(ErrInvalidArgument, errors.New("skip and limit cannot be negative"))
	}
	return nil
}

func ValidateFilter(filter query.Filter) error {
	if err := filter.Validate(); err != nil {
		return errors.Join(ErrInvalidArgument, err)
	}
	for _, p := range filter {
		if !ValidFieldName(p.Field) {
			return invalidField(p.Field)
		}
	}
	return nil
}

func invalidField(name string) error {
	return errors.Join(ErrInvalidArgument, errors.New("invalid field name: "+name))
}
