package openlibrary

import (
	"context"
	"log/slog"

	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/fetch"
	"github.com/lepinkainen/bookshelf/internal/isbn"
)

var _ book.Source = (*Resolver)(nil)

// Resolver builds editions, works and creators from Open Library.
type Resolver struct {
	client *Client
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver using f for all requests.
func NewResolver(f *fetch.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client: NewClient(f),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements book.Source.
func (r *Resolver) Name() string {
	return Name
}

// Ping implements book.Source.
func (r *Resolver) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// LookupByISBN normalizes raw, fetches the edition for it and then the work
// the edition links to first. When the direct ISBN route has no record the
// legacy books API is consulted before giving up.
func (r *Resolver) LookupByISBN(ctx context.Context, raw string) (*book.Resolution, error) {
	normalized, err := isbn.Normalize(raw)
	if err != nil {
		return nil, err
	}

	edition, err := r.client.EditionByISBN(ctx, normalized)
	if err == nil {
		return r.resolve(ctx, normalized, edition)
	}
	if !shelferrors.IsNotFound(err) {
		return nil, err
	}

	r.logger.Debug("isbn route has no edition, trying books api", "isbn", normalized)
	data, err := r.client.BookData(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if id := data.EditionID(); id != "" {
		edition, err := r.client.Edition(ctx, id)
		if err != nil {
			return nil, err
		}
		return r.resolve(ctx, normalized, edition)
	}

	// The entry has no edition to follow, so there is no work link either.
	return nil, shelferrors.NewNotFoundError("work for ISBN %s (%q)", normalized, data.Title)
}

// LookupByID fetches an edition by its Open Library id ("OL7353617M").
func (r *Resolver) LookupByID(ctx context.Context, id string) (*book.Resolution, error) {
	edition, err := r.client.Edition(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, "", edition)
}

// LookupCreator fetches an author profile. Author lookups bypass the cache.
func (r *Resolver) LookupCreator(ctx context.Context, id string) (*book.ExternalCreator, error) {
	author, err := r.client.Author(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCreator(author), nil
}

func (r *Resolver) resolve(ctx context.Context, normalized string, e *Edition) (*book.Resolution, error) {
	edition, err := toEdition(e)
	if err != nil {
		return nil, err
	}

	if len(edition.WorkIDs) == 0 {
		return nil, shelferrors.NewNotFoundError("work link on edition %s", edition.ID)
	}

	w, err := r.client.Work(ctx, edition.WorkIDs[0])
	if err != nil {
		return nil, err
	}

	if normalized == "" {
		normalized = edition.PrimaryISBN()
	}

	r.logger.Debug("resolved edition", "edition", edition.ID, "work", w.WorkID(), "isbn", normalized)

	return &book.Resolution{
		ISBN:    normalized,
		Edition: edition,
		Work:    toWork(w),
	}, nil
}
