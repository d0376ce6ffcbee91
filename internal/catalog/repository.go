package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Lookups return an error matching errors.ErrNotFound when nothing matches.
// Creates return one matching errors.ErrAlreadyExists when the draft
// collides with an existing entity on name key or external identifier.

// CreatorRepository stores creators.
type CreatorRepository interface {
	GetCreator(ctx context.Context, id uuid.UUID) (*Creator, error)
	// FindCreatorByIdentifier matches the identifier of the named source
	// (SourceOpenLibrary, SourceGoodreads, ...).
	FindCreatorByIdentifier(ctx context.Context, source, id string) (*Creator, error)
	FindCreatorByName(ctx context.Context, name string) (*Creator, error)
	CreateCreator(ctx context.Context, draft CreatorDraft) (*Creator, error)
}

// ReferenceRepository stores publishers, series, genres, formats and roles.
type ReferenceRepository interface {
	GetReference(ctx context.Context, id uuid.UUID) (*Reference, error)
	FindReferenceByIdentifier(ctx context.Context, kind Kind, externalID string) (*Reference, error)
	FindReferenceByName(ctx context.Context, kind Kind, name string) (*Reference, error)
	CreateReference(ctx context.Context, draft ReferenceDraft) (*Reference, error)
}

// BookRepository stores book aggregates.
type BookRepository interface {
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	FindBookByISBN(ctx context.Context, isbn string) (*Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	// CreateBook persists draft and its relation sets in one write.
	CreateBook(ctx context.Context, draft BookDraft) (*Book, error)
	// ReplaceBook overwrites the stored book with the same ID in one write.
	ReplaceBook(ctx context.Context, book Book) (*Book, error)
}

// Repository is the full persistence contract.
type Repository interface {
	CreatorRepository
	ReferenceRepository
	BookRepository
}
