// Package book defines the provider-neutral records produced by bibliographic
// sources and the interface every source implements.
package book

import (
	"context"
)

// Source resolves bibliographic records from one external provider.
// Exactly one source is authoritative for a resolution call.
type Source interface {
	// Name returns the provider name used in configuration and identifiers
	// (e.g. "openlibrary").
	Name() string

	// Ping tests the connection to the source and returns an error if it
	// cannot be reached for whatever reason.
	Ping(ctx context.Context) error

	// LookupByISBN normalizes isbn and fetches the matching edition and,
	// where the provider models them, its work.
	LookupByISBN(ctx context.Context, isbn string) (*Resolution, error)

	// LookupByID fetches an edition by the provider's own identifier.
	LookupByID(ctx context.Context, id string) (*Resolution, error)

	// LookupCreator fetches a creator profile by the provider's identifier.
	// Results are always fetched fresh.
	LookupCreator(ctx context.Context, id string) (*ExternalCreator, error)
}

// Resolution is the outcome of resolving one book.
type Resolution struct {
	// ISBN is the normalized ISBN-13 for the edition, empty if unknown.
	ISBN string

	Edition *ExternalEdition

	// Work is nil for providers without a work level.
	Work *ExternalWork
}
