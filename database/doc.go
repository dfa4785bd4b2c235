// Package database provides connection management for the document backends
// (MongoDB, PostgreSQL, MySQL, SQLite and in-process memory): configuration
// loading and validation, managers with health checks and reconnects, query
// hooks, error classification and logging.
package database
