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

import "time"

// Stored field names of the base document. Predicates and sort keys refer to
// documents by these names on every backend.
const (
	FieldID           = "_id"
	FieldCreatedDate  = "createdDate"
	FieldModifiedDate = "modifiedDate"
)

// Entity is implemented by every document a repository can stage and query.
// Concrete documents normally get it by embedding Model.
type Entity interface {
	GetID() string
	SetID(id string)
	GetCreatedDate() time.Time
	GetModifiedDate() time.Time
	SetModifiedDate(t time.Time)
}

// Model carries identity and timestamps. Embed it inline:
//
//	type Customer struct {
//		model.Model `bson:",inline"`
//		Name        string `bson:"name"`
//	}
type Model struct {
	ID           string    `bson:"_id" json:"id"`
	CreatedDate  time.Time `bson:"createdDate" json:"createdDate"`
	ModifiedDate time.Time `bson:"modifiedDate" json:"modifiedDate"`
}

var _ Entity = (*Model)(nil)

// NewModel returns a Model with a fresh id from DefaultIDGenerator and both
// timestamps set to the current time.
func NewModel() Model {
	now := Now()
	return Model{
		ID:           DefaultIDGenerator.NewID(),
		CreatedDate:  now,
		ModifiedDate: now,
	}
}

func (m *Model) GetID() string { return m.ID }

func (m *Model) SetID(id string) { m.ID = id }

func (m *Model) GetCreatedDate() time.Time { return m.CreatedDate }

func (m *Model) GetModifiedDate() time.Time { return m.ModifiedDate }

func (m *Model) SetModifiedDate(t time.Time) { m.ModifiedDate = t }

// Now returns the current UTC time at millisecond precision, the resolution
// BSON datetimes keep.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
