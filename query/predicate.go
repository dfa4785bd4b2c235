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

import (
	"fmt"
	"reflect"
)

// Operator names mirror the MongoDB comparison operators.
type Operator string

const (
	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
	OpIn  Operator = "$in"
	OpNin Operator = "$nin"
)

func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNin:
		return true
	}
	return false
}

// Predicate is a single boolean condition on one stored field. For OpIn and
// OpNin, Value is a []any.
type Predicate struct {
	Field string
	Op    Operator
	Value any
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}

// Validate reports malformed predicates before they reach a store.
func (p Predicate) Validate() error {
	if p.Field == "" {
		return fmt.Errorf("predicate field cannot be empty")
	}
	if !p.Op.IsValid() {
		return fmt.Errorf("unsupported operator %q on field %s", p.Op, p.Field)
	}
	if p.Op == OpIn || p.Op == OpNin {
		if _, ok := p.Value.([]any); !ok {
			return fmt.Errorf("operator %s on field %s requires a list value", p.Op, p.Field)
		}
	}
	return nil
}

func Eq(field string, value any) Predicate { return Predicate{field, OpEq, value} }

func Ne(field string, value any) Predicate { return Predicate{field, OpNe, value} }

func Gt(field string, value any) Predicate { return Predicate{field, OpGt, value} }

func Gte(field string, value any) Predicate { return Predicate{field, OpGte, value} }

func Lt(field string, value any) Predicate { return Predicate{field, OpLt, value} }

func Lte(field string, value any) Predicate { return Predicate{field, OpLte, value} }

// In matches documents whose field equals any of values.
func In[V any](field string, values ...V) Predicate {
	return Predicate{field, OpIn, toAnySlice(values)}
}

// Nin matches documents whose field equals none of values.
func Nin[V any](field string, values ...V) Predicate {
	return Predicate{field, OpNin, toAnySlice(values)}
}

func toAnySlice[V any](values []V) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Values flattens a list operand, accepting []any or any other slice kind.
func Values(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
