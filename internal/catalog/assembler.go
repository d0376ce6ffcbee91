package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
)

// Assembler writes reconciled drafts to the book repository.
type Assembler struct {
	books  BookRepository
	logger *slog.Logger
}

// NewAssembler creates an assembler backed by books.
func NewAssembler(books BookRepository, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{books: books, logger: logger}
}

// Create persists a new book. It fails with ErrAlreadyExists when a book
// with the same ISBN is already catalogued.
func (a *Assembler) Create(ctx context.Context, draft BookDraft) (*Book, error) {
	if err := a.checkISBN(ctx, draft.Identifiers.ISBN, nil); err != nil {
		return nil, err
	}

	book, err := a.books.CreateBook(ctx, draft.Clone())
	if err != nil {
		return nil, fmt.Errorf("creating book %q: %w", draft.Title, err)
	}
	a.logger.Info("Created book", "id", book.ID, "title", book.Title, "isbn", book.Identifiers.ISBN)
	return book, nil
}

// Refresh overwrites the provider-derived fields of existing with draft.
// The collected flag, wishers, readers and series numbering of existing are
// kept; series the provider adds are appended.
func (a *Assembler) Refresh(ctx context.Context, existing *Book, draft BookDraft) (*Book, error) {
	if err := a.checkISBN(ctx, draft.Identifiers.ISBN, existing); err != nil {
		return nil, err
	}

	current := existing.Clone()
	merged := draft.Clone()
	merged.IsCollected = current.IsCollected
	merged.WisherIDs = current.WisherIDs
	merged.ReaderIDs = current.ReaderIDs
	merged.Series = mergeSeries(current.Series, merged.Series)

	updated := Book{
		ID:        current.ID,
		BookDraft: merged,
		CreatedAt: current.CreatedAt,
	}

	book, err := a.books.ReplaceBook(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("refreshing book %s: %w", existing.ID, err)
	}
	a.logger.Info("Refreshed book", "id", book.ID, "title", book.Title)
	return book, nil
}

// LoadNewField copies a single field from draft onto existing and leaves
// everything else untouched.
func (a *Assembler) LoadNewField(ctx context.Context, existing *Book, draft BookDraft, field Field) (*Book, error) {
	updated := existing.Clone()
	if err := copyField(&updated.BookDraft, draft, field); err != nil {
		return nil, err
	}

	book, err := a.books.ReplaceBook(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("loading %s for book %s: %w", field, existing.ID, err)
	}
	a.logger.Debug("loaded field", "id", book.ID, "field", field)
	return book, nil
}

// checkISBN fails when isbn belongs to a book other than self.
func (a *Assembler) checkISBN(ctx context.Context, isbn string, self *Book) error {
	if isbn == "" {
		return nil
	}
	found, err := a.books.FindBookByISBN(ctx, isbn)
	switch {
	case shelferrors.IsNotFound(err):
		return nil
	case err != nil:
		return fmt.Errorf("checking ISBN %s: %w", isbn, err)
	case self != nil && found.ID == self.ID:
		return nil
	}
	return shelferrors.NewAlreadyExistsError("book with ISBN %s", isbn)
}

// mergeSeries keeps current entries with their numbering and appends
// provider entries for series not already present.
func mergeSeries(current, provided []SeriesEntry) []SeriesEntry {
	out := slices.Clone(current)
	for _, entry := range provided {
		if !slices.ContainsFunc(out, func(e SeriesEntry) bool { return e.SeriesID == entry.SeriesID }) {
			out = append(out, entry)
		}
	}
	return out
}
