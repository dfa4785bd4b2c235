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

package sqlstore

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/store"
)

// extDateLayout is the layout of relaxed extended JSON "$date" strings.
const extDateLayout = "2006-01-02T15:04:05.999Z07:00"

var baseColumns = map[string]string{
	model.FieldID:           "id",
	model.FieldCreatedDate:  "created_date",
	model.FieldModifiedDate: "modified_date",
}

type valueKind int

const (
	kindNull valueKind = iota
	kindBool
	kindNumber
	kindString
	kindTime
)

type clause struct {
	query string
	args  []any
}

type dialectExpr struct {
	name dialect.Name
}

func dialectFor(name dialect.Name) (dialectExpr, error) {
	switch name {
	case dialect.SQLite, dialect.PG, dialect.MySQL:
		return dialectExpr{name: name}, nil
	default:
		return dialectExpr{}, fmt.Errorf("unsupported dialect: %s", name)
	}
}

// classify reports the kind of v and the value to bind for it. Times are
// reduced to the millisecond precision at which documents store them.
func classify(v any) (valueKind, any, error) {
	switch x := v.(type) {
	case nil:
		return kindNull, nil, nil
	case time.Time:
		return kindTime, x.UTC().Truncate(time.Millisecond), nil
	case *time.Time:
		if x == nil {
			return kindNull, nil, nil
		}
		return kindTime, x.UTC().Truncate(time.Millisecond), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return kindBool, rv.Bool(), nil
	case reflect.String:
		return kindString, rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindNumber, rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindNumber, rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return kindNumber, rv.Float(), nil
	}
	return 0, nil, fmt.Errorf("%w: unsupported value %T", store.ErrInvalidArgument, v)
}

// jsonPath renders field as a path literal for the dialect; extra segments are
// appended after the field's own.
func (d dialectExpr) jsonPath(field string, extra ...string) string {
	parts := append(strings.Split(field, "."), extra...)
	if d.name == dialect.PG {
		return "'{" + strings.Join(parts, ",") + "}'"
	}
	var b strings.Builder
	b.WriteString("'$")
	for _, p := range parts {
		b.WriteByte('.')
		if strings.HasPrefix(p, "$") {
			b.WriteString(`"` + p + `"`)
		} else {
			b.WriteString(p)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// fieldExpr returns the SQL expression that yields field for comparisons
// against values of kind, and the argument converted for that expression.
func (d dialectExpr) fieldExpr(field string, kind valueKind, value any) (string, any) {
	if col, ok := baseColumns[field]; ok {
		return col, value
	}

	switch kind {
	case kindTime:
		value = value.(time.Time).Format(extDateLayout)
		return d.textExpr(field, "$date"), value
	case kindBool:
		if d.name == dialect.SQLite {
			return "json_extract(data, " + d.jsonPath(field) + ")", value
		}
		return d.textExpr(field), fmt.Sprint(value)
	case kindNumber:
		switch d.name {
		case dialect.PG:
			return "(data #>> " + d.jsonPath(field) + ")::numeric", value
		case dialect.MySQL:
			return "JSON_EXTRACT(data, " + d.jsonPath(field) + ")", value
		}
		return "json_extract(data, " + d.jsonPath(field) + ")", value
	default:
		return d.textExpr(field), value
	}
}

func (d dialectExpr) textExpr(field string, extra ...string) string {
	path := d.jsonPath(field, extra...)
	switch d.name {
	case dialect.PG:
		return "(data #>> " + path + ")"
	case dialect.MySQL:
		return "JSON_UNQUOTE(JSON_EXTRACT(data, " + path + "))"
	default:
		return "json_extract(data, " + path + ")"
	}
}

func (d dialectExpr) nullExpr(field string) string {
	if col, ok := baseColumns[field]; ok {
		return col + " IS NULL"
	}
	path := d.jsonPath(field)
	switch d.name {
	case dialect.PG:
		return "(data #>> " + path + ") IS NULL"
	case dialect.MySQL:
		return "(JSON_EXTRACT(data, " + path + ") IS NULL OR JSON_TYPE(JSON_EXTRACT(data, " + path + ")) = 'NULL')"
	default:
		return "json_extract(data, " + path + ") IS NULL"
	}
}

func (d dialectExpr) sortExpr(field string) string {
	if col, ok := baseColumns[field]; ok {
		return col
	}
	switch d.name {
	case dialect.PG:
		return "(data::jsonb #> " + d.jsonPath(field) + ")"
	case dialect.MySQL:
		return "JSON_EXTRACT(data, " + d.jsonPath(field) + ")"
	default:
		return "json_extract(data, " + d.jsonPath(field) + ")"
	}
}

var sqlOperators = map[query.Operator]string{
	query.OpEq:  "=",
	query.OpNe:  "<>",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// compile translates one predicate. Missing fields behave as null, so $ne
// and $nin also match documents without the field.
func (d dialectExpr) compile(p query.Predicate) (clause, error) {
	switch p.Op {
	case query.OpIn, query.OpNin:
		return d.compileList(p)
	}

	kind, value, err := classify(p.Value)
	if err != nil {
		return clause{}, err
	}
	if kind == kindNull {
		switch p.Op {
		case query.OpEq:
			return clause{query: d.nullExpr(p.Field)}, nil
		case query.OpNe:
			return clause{query: "NOT (" + d.nullExpr(p.Field) + ")"}, nil
		default:
			return clause{query: "1 = 0"}, nil
		}
	}

	expr, arg := d.fieldExpr(p.Field, kind, value)
	op, ok := sqlOperators[p.Op]
	if !ok {
		return clause{}, fmt.Errorf("%w: unsupported operator %s", store.ErrInvalidArgument, p.Op)
	}
	if p.Op == query.OpNe {
		return clause{
			query: "(" + d.nullExpr(p.Field) + " OR " + expr + " <> ?)",
			args:  []any{arg},
		}, nil
	}
	return clause{query: expr + " " + op + " ?", args: []any{arg}}, nil
}

func (d dialectExpr) compileList(p query.Predicate) (clause, error) {
	values := query.Values(p.Value)
	var (
		kind    = kindNull
		args    []any
		hasNull bool
	)
	for _, v := range values {
		k, conv, err := classify(v)
		if err != nil {
			return clause{}, err
		}
		if k == kindNull {
			hasNull = true
			continue
		}
		if kind != kindNull && k != kind {
			return clause{}, fmt.Errorf("%w: mixed value types in %s list for %s", store.ErrInvalidArgument, p.Op, p.Field)
		}
		kind = k
		args = append(args, conv)
	}

	in := p.Op == query.OpIn
	if len(args) == 0 {
		switch {
		case hasNull && in:
			return clause{query: d.nullExpr(p.Field)}, nil
		case hasNull:
			return clause{query: "NOT (" + d.nullExpr(p.Field) + ")"}, nil
		case in:
			return clause{query: "1 = 0"}, nil
		default:
			return clause{query: "1 = 1"}, nil
		}
	}

	var expr string
	for i, a := range args {
		expr, args[i] = d.fieldExpr(p.Field, kind, a)
	}
	list := bun.In(args)
	switch {
	case in && hasNull:
		return clause{query: "(" + d.nullExpr(p.Field) + " OR " + expr + " IN (?))", args: []any{list}}, nil
	case in:
		return clause{query: expr + " IN (?)", args: []any{list}}, nil
	case hasNull:
		return clause{query: "(NOT (" + d.nullExpr(p.Field) + ") AND " + expr + " NOT IN (?))", args: []any{list}}, nil
	default:
		return clause{query: "(" + d.nullExpr(p.Field) + " OR " + expr + " NOT IN (?))", args: []any{list}}, nil
	}
}
