// Package entities contains the domain records served by the API.
//
// Records are plain structs with exported fields: the same shape is sent over
// the wire, embedded into the payload column and rebuilt from legacy columns.
// Struct tags drive all three:
//   - json: wire and payload names
//   - db: column name and whether the field is required to rebuild a row
//   - validate: input rules checked before a write
package entities

import "time"

// Identity holds the fields a record gets from the server, never from input.
type Identity struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Resource is the contract the generic resource service needs from a record.
// Implemented with value receivers so that T itself satisfies Resource[T].
type Resource[T any] interface {
	// GetIdentity returns the server-managed fields.
	GetIdentity() Identity
	// WithIdentity returns a copy with the server-managed fields replaced.
	WithIdentity(Identity) T
	// Normalize trims input and fills defaults.
	Normalize() T
}
