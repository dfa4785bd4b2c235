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

// Package metrics instruments store collections with Prometheus counters and
// latency histograms.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomoncle/docrepo/query"
	"github.com/tomoncle/docrepo/store"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector holds the metric vectors shared by every instrumented collection.
type Collector struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	documents  *prometheus.CounterVec
}

// NewCollector registers the collection metrics under namespace with reg,
// reusing vectors an earlier call already registered.
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "collection_operations_total",
		Help:      "Total number of collection operations",
	}, []string{"collection", "operation", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "collection_operation_duration_seconds",
		Help:      "Collection operation duration in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	}, []string{"collection", "operation"})
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "collection_documents_total",
		Help:      "Total number of documents written or returned",
	}, []string{"collection", "operation"})

	var err error
	if operations, err = register(reg, operations); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if documents, err = register(reg, documents); err != nil {
		return nil, err
	}
	return &Collector{operations: operations, duration: duration, documents: documents}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Collector) observe(collection, operation string, start time.Time, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.operations.WithLabelValues(collection, operation, status).Inc()
	m.duration.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
}

func (m *Collector) addDocuments(collection, operation string, n int) {
	if n > 0 {
		m.documents.WithLabelValues(collection, operation).Add(float64(n))
	}
}

type instrumented[T any] struct {
	next    store.Collection[T]
	metrics *Collector
}

// Instrument wraps coll so every call is counted and timed by m.
func Instrument[T any](coll store.Collection[T], m *Collector) store.Collection[T] {
	if m == nil {
		return coll
	}
	return &instrumented[T]{next: coll, metrics: m}
}

func (c *instrumented[T]) Name() string { return c.next.Name() }

func (c *instrumented[T]) InsertOne(ctx context.Context, doc T) (err error) {
	defer c.track("insert_one", time.Now(), &err)
	if err = c.next.InsertOne(ctx, doc); err == nil {
		c.metrics.addDocuments(c.Name(), "insert", 1)
	}
	return err
}

func (c *instrumented[T]) InsertMany(ctx context.Context, docs []T) (err error) {
	defer c.track("insert_many", time.Now(), &err)
	if err = c.next.InsertMany(ctx, docs); err == nil {
		c.metrics.addDocuments(c.Name(), "insert", len(docs))
	}
	return err
}

func (c *instrumented[T]) ReplaceOne(ctx context.Context, id string, doc T) (err error) {
	defer c.track("replace_one", time.Now(), &err)
	return c.next.ReplaceOne(ctx, id, doc)
}

func (c *instrumented[T]) DeleteOne(ctx context.Context, id string) (err error) {
	defer c.track("delete_one", time.Now(), &err)
	return c.next.DeleteOne(ctx, id)
}

func (c *instrumented[T]) Find(ctx context.Context, spec query.Spec) (out []T, err error) {
	defer c.track("find", time.Now(), &err)
	out, err = c.next.Find(ctx, spec)
	c.metrics.addDocuments(c.Name(), "find", len(out))
	return out, err
}

func (c *instrumented[T]) Count(ctx context.Context, filter query.Filter) (n int64, err error) {
	defer c.track("count", time.Now(), &err)
	return c.next.Count(ctx, filter)
}

func (c *instrumented[T]) Any(ctx context.Context, filter query.Filter) (ok bool, err error) {
	defer c.track("any", time.Now(), &err)
	return c.next.Any(ctx, filter)
}

func (c *instrumented[T]) track(operation string, start time.Time, err *error) {
	c.metrics.observe(c.Name(), operation, start, *err)
}
