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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequest(t *testing.T) {
	tests := []struct {
		page, size int
		total      int64
		offset     int64
		hasNext    bool
	}{
		{1, 10, 25, 0, true},
		{2, 10, 25, 10, false},
		{3, 10, 25, 20, false},
		{1, 10, 30, 0, true},
		{2, 10, 30, 10, true},
		{1, 10, 0, 0, false},
	}
	for _, tt := range tests {
		p := NewPageRequest(tt.page, tt.size)
		require.NoError(t, p.Validate())
		assert.Equal(t, tt.offset, p.GetOffset())
		assert.Equal(t, tt.hasNext, p.HasNextPage(tt.total), "page %d of %d", tt.page, tt.total)
	}
}

func TestPageRequestValidate(t *testing.T) {
	assert.Error(t, NewPageRequest(1, 0).Validate())
	assert.Error(t, NewPageRequest(1, -5).Validate())
	assert.Error(t, NewPageRequest(0, 10).Validate())
}

func TestNewPageResponse(t *testing.T) {
	p := NewPageResponse[int](nil, false)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}

func TestOrderDirection(t *testing.T) {
	assert.Equal(t, "ASC", Ascending.String())
	assert.Equal(t, "DESC", Descending.Name())
	assert.Equal(t, IllegalValue, OrderDirection(7).Number())
	assert.False(t, OrderDirection(7).IsValid())

	d, ok := ParseOrderDirection(" desc ")
	assert.True(t, ok)
	assert.Equal(t, Descending, d)
	_, ok = ParseOrderDirection("sideways")
	assert.False(t, ok)
}

func TestJSONTextScan(t *testing.T) {
	var j JSONText
	require.NoError(t, j.Scan(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, string(j))
	require.NoError(t, j.Scan([]byte(`{"b":2}`)))
	assert.Equal(t, `{"b":2}`, string(j))
	assert.Error(t, j.Scan(42))

	v, err := j.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, v)
}
