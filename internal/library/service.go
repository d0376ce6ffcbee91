// Package library orchestrates resolution, reconciliation and assembly for
// the operations the catalog exposes: lookup, import, reset, field
// back-fill and bulk refresh.
package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/catalog"
	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/isbn"
	"github.com/lepinkainen/bookshelf/internal/reconcile"
)

// Service wires one authoritative source to the catalog.
type Service struct {
	source     book.Source
	books      catalog.BookRepository
	reconciler *reconcile.Reconciler
	assembler  *catalog.Assembler
	logger     *slog.Logger
}

type options struct {
	authorRole string
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*options)

// WithAuthorRole sets the role given to work creators.
func WithAuthorRole(name string) Option {
	return func(o *options) { o.authorRole = name }
}

// WithLogger sets the logger shared by the service's components.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewService creates a service resolving from source into repo.
func NewService(source book.Source, repo catalog.Repository, opts ...Option) *Service {
	o := options{authorRole: reconcile.DefaultAuthorRole, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Service{
		source: source,
		books:  repo,
		reconciler: reconcile.New(repo, source,
			reconcile.WithAuthorRole(o.authorRole),
			reconcile.WithLogger(o.logger)),
		assembler: catalog.NewAssembler(repo, o.logger),
		logger:    o.logger,
	}
}

// Source returns the authoritative source.
func (s *Service) Source() book.Source {
	return s.source
}

// ResolveBook resolves and reconciles a book without persisting it.
// externalID, when set, takes precedence over identifier.
func (s *Service) ResolveBook(ctx context.Context, identifier, externalID string) (*reconcile.Result, error) {
	res, err := s.resolve(ctx, identifier, externalID)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Reconcile(ctx, res)
}

// ResolveCreator resolves a creator profile into a draft without persisting
// it.
func (s *Service) ResolveCreator(ctx context.Context, externalID string) (*catalog.CreatorDraft, error) {
	ext, err := s.source.LookupCreator(ctx, externalID)
	if err != nil {
		return nil, err
	}
	draft := reconcile.CreatorDraft(s.source.Name(), ext)
	return &draft, nil
}

// AddCreator resolves a creator and finds or creates it in the catalog.
func (s *Service) AddCreator(ctx context.Context, externalID string) (*catalog.Creator, error) {
	return s.reconciler.Creator(ctx, externalID)
}

func (s *Service) resolve(ctx context.Context, identifier, externalID string) (*book.Resolution, error) {
	switch {
	case externalID != "":
		return s.source.LookupByID(ctx, externalID)
	case identifier != "":
		return s.source.LookupByISBN(ctx, identifier)
	}
	return nil, shelferrors.NewInvalidIdentifierError("", "an ISBN or external id is required")
}

// ImportRequest names a book to add to the catalog.
type ImportRequest struct {
	ISBN       string
	ExternalID string

	// Collected marks the book as owned. Owned books have no wishers.
	Collected bool

	// WisherID, when set, adds that user as a wisher. An already catalogued
	// book then gains the wisher instead of failing.
	WisherID uuid.UUID
}

// Lookup adds the book with rawISBN to the catalog, wished for by wisherID
// when it is not uuid.Nil.
//
// A book already in the catalog fails with ErrAlreadyExists unless a wisher
// is given who does not wish for it yet; that wisher is then added and the
// book is otherwise unchanged.
func (s *Service) Lookup(ctx context.Context, rawISBN string, wisherID uuid.UUID) (*catalog.Book, error) {
	return s.Import(ctx, ImportRequest{ISBN: rawISBN, WisherID: wisherID})
}

// Import resolves and adds a book. See Lookup for the duplicate handling.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*catalog.Book, error) {
	if req.ExternalID == "" {
		normalized, err := isbn.Normalize(req.ISBN)
		if err != nil {
			return nil, err
		}
		req.ISBN = normalized

		// Skip the network when the catalog already answers.
		existing, err := s.existing(ctx, normalized)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.addWisher(ctx, existing, req.WisherID)
		}
	}

	result, err := s.ResolveBook(ctx, req.ISBN, req.ExternalID)
	if err != nil {
		return nil, err
	}

	draft := result.Draft
	existing, err := s.existing(ctx, draft.Identifiers.ISBN)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.addWisher(ctx, existing, req.WisherID)
	}

	draft.IsCollected = req.Collected
	if !req.Collected && req.WisherID != uuid.Nil {
		draft.WisherIDs = []uuid.UUID{req.WisherID}
	}
	return s.assembler.Create(ctx, draft)
}

// existing returns the catalogued book with isbn, or nil.
func (s *Service) existing(ctx context.Context, isbn string) (*catalog.Book, error) {
	if isbn == "" {
		return nil, nil
	}
	found, err := s.books.FindBookByISBN(ctx, isbn)
	if shelferrors.IsNotFound(err) {
		return nil, nil
	}
	return found, err
}

func (s *Service) addWisher(ctx context.Context, existing *catalog.Book, wisherID uuid.UUID) (*catalog.Book, error) {
	if wisherID == uuid.Nil {
		return nil, shelferrors.NewAlreadyExistsError("book with ISBN %s", existing.Identifiers.ISBN)
	}
	if existing.HasWisher(wisherID) {
		return nil, shelferrors.NewAlreadyExistsError("book %q already wished for by %s", existing.Title, wisherID)
	}

	updated := existing.Clone()
	updated.WisherIDs = append(updated.WisherIDs, wisherID)
	saved, err := s.books.ReplaceBook(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("adding wisher to book %s: %w", existing.ID, err)
	}
	s.logger.Info("Added wisher", "book", saved.ID, "wisher", wisherID)
	return saved, nil
}

// Reset re-resolves a catalogued book and overwrites its provider-derived
// fields, keeping user-owned state.
func (s *Service) Reset(ctx context.Context, bookID uuid.UUID) (*catalog.Book, error) {
	existing, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	result, err := s.resolveExisting(ctx, existing)
	if err != nil {
		return nil, err
	}
	return s.assembler.Refresh(ctx, existing, result.Draft)
}

// LoadNewField re-resolves a catalogued book and writes back only field.
func (s *Service) LoadNewField(ctx context.Context, bookID uuid.UUID, field catalog.Field) (*catalog.Book, error) {
	existing, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	result, err := s.resolveExisting(ctx, existing)
	if err != nil {
		return nil, err
	}
	return s.assembler.LoadNewField(ctx, existing, result.Draft, field)
}

// resolveExisting prefers the source's own id for the book, then its ISBN.
func (s *Service) resolveExisting(ctx context.Context, existing *catalog.Book) (*reconcile.Result, error) {
	externalID := existing.Identifiers.ForSource(s.source.Name())
	if externalID == "" && existing.Identifiers.ISBN == "" {
		return nil, shelferrors.NewNotFoundError("identifier for book %s on %s", existing.ID, s.source.Name())
	}
	return s.ResolveBook(ctx, existing.Identifiers.ISBN, externalID)
}
