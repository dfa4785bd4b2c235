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
	"math"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match reports whether doc satisfies every predicate of f.
func (f Filter) Match(doc bson.M) bool {
	for _, p := range f {
		if !p.Match(doc) {
			return false
		}
	}
	return true
}

// Match evaluates p against doc following MongoDB semantics: a missing field
// equals nil and never satisfies a range comparison.
func (p Predicate) Match(doc bson.M) bool {
	v, ok := Lookup(doc, p.Field)
	switch p.Op {
	case OpEq:
		return equalValues(v, p.Value)
	case OpNe:
		return !equalValues(v, p.Value)
	case OpIn:
		return containsValue(Values(p.Value), v)
	case OpNin:
		return !containsValue(Values(p.Value), v)
	}
	if !ok {
		return false
	}
	c, comparable := compareSameKind(v, p.Value)
	if !comparable {
		return false
	}
	switch p.Op {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

// Lookup resolves a dotted path inside doc.
func Lookup(doc bson.M, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case bson.M:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case bson.D:
			found := false
			for _, e := range node {
				if e.Key == part {
					cur, found = e.Value, true
					break
				}
			}
			if !found {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return cur, true
}

// CompareValues orders two field values the way MongoDB sorts mixed types:
// null, numbers, strings, other, booleans, dates.
func CompareValues(a, b any) int {
	ka, na := normalize(a)
	kb, nb := normalize(b)
	if ka != kb {
		return cmpInt(int64(ka), int64(kb))
	}
	c, _ := compareNormalized(ka, na, nb)
	return c
}

type valueKind int

const (
	kindNull valueKind = iota
	kindNumber
	kindString
	kindOther
	kindBool
	kindTime
)

func normalize(v any) (valueKind, any) {
	switch x := v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return kindNull, nil
	case string:
		return kindString, x
	case bool:
		return kindBool, x
	case time.Time:
		return kindTime, x.UnixMilli()
	case primitive.DateTime:
		return kindTime, int64(x)
	case *time.Time:
		if x == nil {
			return kindNull, nil
		}
		return kindTime, x.UnixMilli()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindNumber, float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindNumber, float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return kindNumber, rv.Float()
	case reflect.String:
		return kindString, rv.String()
	case reflect.Bool:
		return kindBool, rv.Bool()
	}
	return kindOther, v
}

func compareSameKind(a, b any) (int, bool) {
	ka, na := normalize(a)
	kb, nb := normalize(b)
	if ka != kb {
		return 0, false
	}
	return compareNormalized(ka, na, nb)
}

func compareNormalized(k valueKind, a, b any) (int, bool) {
	switch k {
	case kindNull:
		return 0, true
	case kindNumber:
		x, y := a.(float64), b.(float64)
		if math.IsNaN(x) || math.IsNaN(y) {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case kindString:
		return strings.Compare(a.(string), b.(string)), true
	case kindBool:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case kindTime:
		return cmpInt(a.(int64), b.(int64)), true
	}
	if reflect.DeepEqual(a, b) {
		return 0, true
	}
	return 0, false
}

func equalValues(a, b any) bool {
	c, ok := compareSameKind(a, b)
	return ok && c == 0
}

func containsValue(list []any, v any) bool {
	for _, candidate := range list {
		if equalValues(v, candidate) {
			return true
		}
	}
	return false
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
