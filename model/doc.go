// Package model defines the base document shape shared by every stored entity
// and the identity generators used to fill in missing ids.
package model
