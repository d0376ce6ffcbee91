package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/catalog"
)

// RefreshOptions selects what RefreshAll does per book.
type RefreshOptions struct {
	// Field, when set, back-fills only that field instead of a full reset.
	Field catalog.Field
}

// RefreshFailure records one book that could not be refreshed.
type RefreshFailure struct {
	BookID uuid.UUID `json:"book_id"`
	Title  string    `json:"title"`
	Err    error     `json:"-"`
	Reason string    `json:"error"`
}

// Error implements error.
func (f RefreshFailure) Error() string {
	return fmt.Sprintf("book %s (%q): %v", f.BookID, f.Title, f.Err)
}

// Unwrap exposes the underlying error.
func (f RefreshFailure) Unwrap() error {
	return f.Err
}

// RefreshReport summarizes a bulk refresh.
type RefreshReport struct {
	Total     int              `json:"total"`
	Refreshed []uuid.UUID      `json:"refreshed"`
	Failures  []RefreshFailure `json:"failures"`
	// Skipped counts books not attempted because the context ended.
	Skipped int `json:"skipped"`
}

// Err joins every failure, or returns nil when all books refreshed.
func (r *RefreshReport) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// RefreshAll refreshes every catalogued book one at a time so the source's
// rate budget is shared across the batch. A failing book is recorded and the
// batch continues; cancelling ctx stops before the next book.
func (s *Service) RefreshAll(ctx context.Context, opts RefreshOptions) (*RefreshReport, error) {
	books, err := s.books.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	report := &RefreshReport{Total: len(books)}
	for i, b := range books {
		if err := ctx.Err(); err != nil {
			report.Skipped = len(books) - i
			s.logger.Warn("Refresh cancelled", "remaining", report.Skipped, "error", err)
			return report, err
		}

		if opts.Field != "" {
			_, err = s.LoadNewField(ctx, b.ID, opts.Field)
		} else {
			_, err = s.Reset(ctx, b.ID)
		}

		if err != nil {
			s.logger.Warn("Failed to refresh book", "id", b.ID, "title", b.Title, "error", err)
			report.Failures = append(report.Failures, RefreshFailure{
				BookID: b.ID,
				Title:  b.Title,
				Err:    err,
				Reason: err.Error(),
			})
			continue
		}

		s.logger.Debug("refreshed book", "id", b.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(books)))
		report.Refreshed = append(report.Refreshed, b.ID)
	}

	s.logger.Info("Refresh complete",
		"total", report.Total,
		"refreshed", len(report.Refreshed),
		"failed", len(report.Failures))
	return report, nil
}
