// Package repository provides a generic document repository: a unit of work
// that stages inserts, updates and deletes and commits them in batches, and a
// fluent query builder whose accumulated predicates and sort run against any
// store.Collection.
package repository
