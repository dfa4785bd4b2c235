// Package query holds the backend-neutral description of a document query:
// AND-ed predicates, at most one sort key, and skip/limit. Every store
// translates a Spec into its native filter syntax; Match evaluates it in memory.
package query
