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

package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/docrepo/model"
	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/store"
)

type book struct {
	model.Model `bson:",inline"`
	Title       string `bson:"title"`
	Pages       int    `bson:"pages"`
}

func newBook(id, title string, pages int, created time.Time) *book {
	return &book{
		Model: model.Model{ID: id, CreatedDate: created, ModifiedDate: created},
		Title: title,
		Pages: pages,
	}
}

func seed(t *testing.T) *Collection[*book] {
	t.Helper()
	c, err := New[*book]("books")
	require.NoError(t, err)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.InsertMany(context.Background(), []*book{
		newBook("1", "go", 300, base),
		newBook("2", "rust", 500, base.Add(time.Hour)),
		newBook("3", "zig", 120, base.Add(2*time.Hour)),
	}))
	return c
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := New[*book]("")
	assert.True(t, errors.Is(err, store.ErrInvalidArgument))
}

func TestInsertAndFind(t *testing.T) {
	c := seed(t)
	ctx := context.Background()

	all, err := c.Find(ctx, query.Spec{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "go", all[0].Title)
	assert.True(t, all[0].CreatedDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	big, err := c.Find(ctx, query.Spec{}.Where(query.Gte("pages", 300)).OrderByDescending("pages"))
	require.NoError(t, err)
	require.Len(t, big, 2)
	assert.Equal(t, "rust", big[0].Title)
	assert.Equal(t, "go", big[1].Title)

	paged, err := c.Find(ctx, query.Spec{}.OrderBy("title").Page(1, 1))
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "rust", paged[0].Title)

	none, err := c.Find(ctx, query.Spec{}.Page(10, 0))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsertDuplicate(t *testing.T) {
	c := seed(t)
	err := c.InsertOne(context.Background(), newBook("2", "again", 1, time.Now()))
	assert.True(t, errors.Is(err, store.ErrDuplicateID))
	assert.Equal(t, 3, c.Len())

	err = c.InsertMany(context.Background(), []*book{
		newBook("9", "a", 1, time.Now()),
		newBook("9", "b", 1, time.Now()),
	})
	assert.True(t, errors.Is(err, store.ErrDuplicateID))
	assert.Equal(t, 3, c.Len())
}

func TestInsertRequiresID(t *testing.T) {
	c := seed(t)
	err := c.InsertOne(context.Background(), newBook("", "anon", 1, time.Now()))
	assert.True(t, errors.Is(err, store.ErrInvalidArgument))
}

func TestReplaceAndDelete(t *testing.T) {
	c := seed(t)
	ctx := context.Background()

	b := newBook("2", "rust 2e", 550, time.Now())
	require.NoError(t, c.ReplaceOne(ctx, "2", b))
	got, err := c.Find(ctx, query.Spec{}.Where(query.Eq(model.FieldID, "2")))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rust 2e", got[0].Title)

	require.NoError(t, c.ReplaceOne(ctx, "42", newBook("42", "ghost", 1, time.Now())))
	assert.Equal(t, 3, c.Len())

	require.NoError(t, c.DeleteOne(ctx, "1"))
	require.NoError(t, c.DeleteOne(ctx, "1"))
	n, err := c.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestAnyAndCount(t *testing.T) {
	c := seed(t)
	ctx := context.Background()

	ok, err := c.Any(ctx, query.Filter{query.Eq("title", "zig")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Any(ctx, query.Filter{query.Eq("title", "cobol")})
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := c.Count(ctx, query.Filter{query.In(model.FieldID, "1", "3")})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestCancelledContext(t *testing.T) {
	c := seed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Find(ctx, query.Spec{})
	assert.ErrorIs(t, err, context.Canceled)
}
