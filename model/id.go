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

package model

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ticksAtUnixEpoch is the number of 100ns ticks between 0001-01-01 and 1970-01-01.
const ticksAtUnixEpoch int64 = 621355968000000000

// IDGenerator produces identities for documents created without one.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a plain function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string { return f() }

// DefaultIDGenerator is used by NewModel and by repositories that were not
// given a generator.
var DefaultIDGenerator IDGenerator = &TicksIDGenerator{}

// TicksIDGenerator renders ids as decimal 100ns ticks since 0001-01-01 UTC.
// Ids handed out by one generator strictly increase.
type TicksIDGenerator struct {
	last atomic.Int64
}

func (g *TicksIDGenerator) NewID() string {
	for {
		next := Ticks(time.Now())
		last := g.last.Load()
		if next <= last {
			next = last + 1
		}
		if g.last.CompareAndSwap(last, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}

// Ticks converts t to 100ns ticks since 0001-01-01 UTC.
func Ticks(t time.Time) int64 {
	return t.UnixNano()/100 + ticksAtUnixEpoch
}

// UUIDGenerator hands out time-ordered UUIDv7 strings.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
