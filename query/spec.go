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

package query

// Filter is a conjunction of predicates. An empty Filter matches every document.
type Filter []Predicate

// And returns a new Filter with preds appended. The receiver is not modified.
func (f Filter) And(preds ...Predicate) Filter {
	out := make(Filter, 0, len(f)+len(preds))
	out = append(out, f...)
	return append(out, preds...)
}

func (f Filter) Validate() error {
	for _, p := range f {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Sort is the single active sort key of a query.
type Sort struct {
	Field      string
	Descending bool
}

// Spec is an immutable query description. Builder methods return a new Spec
// and never alias the receiver's predicate list.
type Spec struct {
	Filter Filter
	Sort   *Sort
	Skip   int64
	// Limit of zero means no limit.
	Limit int64
}

func (s Spec) Where(preds ...Predicate) Spec {
	s.Filter = s.Filter.And(preds...)
	return s
}

// OrderBy replaces any previous sort key.
func (s Spec) OrderBy(field string) Spec {
	s.Sort = &Sort{Field: field}
	return s
}

// OrderByDescending replaces any previous sort key.
func (s Spec) OrderByDescending(field string) Spec {
	s.Sort = &Sort{Field: field, Descending: true}
	return s
}

func (s Spec) Page(skip, limit int64) Spec {
	s.Skip = skip
	s.Limit = limit
	return s
}

func (s Spec) Validate() error {
	return s.Filter.Validate()
}
