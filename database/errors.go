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

package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = [...]string{
	UnknownErr:          "unknown",
	NoRowsErr:           "no rows",
	NoTableErr:          "no table",
	ExistTableErr:       "table exists",
	DuplicateKeyErr:     "duplicate key",
	NotNullViolationErr: "not null violation",
	DataTruncatedErr:    "data truncated",
	InvalidTypeCastErr:  "invalid type cast",
}

func (e SQLError) String() string {
	if e < 0 || int(e) >= len(sqlErrorNames) {
		return sqlErrorNames[UnknownErr]
	}
	return sqlErrorNames[e]
}

var mysqlErrorNumbers = map[uint16]SQLError{
	1062: DuplicateKeyErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1048: NotNullViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
	3140: InvalidTypeCastErr, // invalid JSON text
}

var pqErrorCodes = map[pq.ErrorCode]SQLError{
	"23505": DuplicateKeyErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"23502": NotNullViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
	"22P02": InvalidTypeCastErr,
}

// sqlite reports constraint failures through the message only.
var sqliteMessages = []struct {
	fragment string
	kind     SQLError
}{
	{"unique constraint failed", DuplicateKeyErr},
	{"duplicate key value", DuplicateKeyErr},
	{"no such table", NoTableErr},
	{"undefined table", NoTableErr},
	{"not null constraint failed", NotNullViolationErr},
	{"malformed json", InvalidTypeCastErr},
}

// IsSqlError classifies driver errors from MySQL, PostgreSQL and SQLite.
// is reports whether err came from a SQL driver at all.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return true, mysqlErrorNumbers[mysqlErr.Number]
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true, pqErrorCodes[pqErr.Code]
	}

	msg := strings.ToLower(err.Error())
	for _, m := range sqliteMessages {
		if strings.Contains(msg, m.fragment) {
			return true, m.kind
		}
	}
	if strings.Contains(msg, "already exists") && strings.Contains(msg, "table") {
		return true, ExistTableErr
	}
	return false, UnknownErr
}

// IsDuplicateKeyError reports a unique/primary key violation.
func IsDuplicateKeyError(err error) bool {
	_, kind := IsSqlError(err)
	return kind == DuplicateKeyErr
}
