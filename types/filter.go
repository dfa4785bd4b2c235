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

package types

import "time"

// Filter carries optional, independent query constraints supplied by a caller.
// Nil fields are ignored.
type Filter struct {
	CreatedDateFrom  *time.Time      `json:"createdDateFrom,omitempty"`
	CreatedDateTo    *time.Time      `json:"createdDateTo,omitempty"`
	ModifiedDateFrom *time.Time      `json:"modifiedDateFrom,omitempty"`
	ModifiedDateTo   *time.Time      `json:"modifiedDateTo,omitempty"`
	Ids              []string        `json:"ids,omitempty"`
	Exclude          []string        `json:"exclude,omitempty"`
	OrderByDate      *OrderDirection `json:"orderByDate,omitempty"`
}

// TimeRef returns a pointer to t, for filling optional Filter fields.
func TimeRef(t time.Time) *time.Time { return &t }

// DirectionRef returns a pointer to d.
func DirectionRef(d OrderDirection) *OrderDirection { return &d }
