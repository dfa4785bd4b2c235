// Package store defines the document-store capability repositories are built
// on. Backends live in the subpackages memstore, mongostore and sqlstore.
package store
