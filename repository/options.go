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

package repository

import (
	"time"

	"github.com/tomoncle/docrepo/database"
	"github.com/tomoncle/docrepo/model"
)

type options struct {
	clock        func() time.Time
	ids          model.IDGenerator
	logger       database.Logger
	retainStaged bool
}

// Option configures a Repository.
type Option func(*options)

// WithClock sets the time source used to stamp modifiedDate on commit.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator sets the generator used for entities added without an id.
func WithIDGenerator(g model.IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

func WithLogger(l database.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRetainStaged keeps staged mutations after a successful commit, so a
// second SaveChanges resends them. Only Reset clears them.
func WithRetainStaged() Option {
	return func(o *options) { o.retainStaged = true }
}

func defaultOptions() *options {
	return &options{
		clock:  time.Now,
		ids:    model.DefaultIDGenerator,
		logger: database.GetLogger(),
	}
}
