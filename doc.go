// Package docrepo opens document collections on MongoDB, SQL or in-memory
// backends and wraps them in unit-of-work repositories and services.
package docrepo
