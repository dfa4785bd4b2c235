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

import "fmt"

// PageRequest describes a 1-indexed page of a query result.
type PageRequest struct {
	page     int
	pageSize int
}

// NewPageRequest constructs a PageRequest; call Validate before use.
func NewPageRequest(page int, pageSize int) *PageRequest {
	return &PageRequest{page, pageSize}
}

func (p *PageRequest) GetPage() int { return p.page }

func (p *PageRequest) GetPageSize() int { return p.pageSize }

func (p *PageRequest) GetOffset() int64 {
	return int64(p.page-1) * int64(p.pageSize)
}

// Validate rejects non-positive page sizes and page numbers.
func (p *PageRequest) Validate() error {
	if p.pageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", p.pageSize)
	}
	if p.page < 1 {
		return fmt.Errorf("page number must be at least 1, got %d", p.page)
	}
	return nil
}

// HasNextPage reports whether pages exist after this one, computed as
// floor(total/pageSize) > page.
func (p *PageRequest) HasNextPage(total int64) bool {
	return total/int64(p.pageSize) > int64(p.page)
}

// PageResponse holds one page of results.
type PageResponse[T any] struct {
	Items       []T  `json:"items"`
	HasNextPage bool `json:"hasNextPage"`
}

// NewPageResponse constructs a page; a nil items slice becomes empty.
func NewPageResponse[T any](items []T, hasNextPage bool) *PageResponse[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return &PageResponse[T]{Items: items, HasNextPage: hasNextPage}
}
