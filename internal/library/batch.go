package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
)

// ImportFailure records one request that could not be imported.
type ImportFailure struct {
	ISBN   string `json:"isbn,omitempty"`
	Label  string `json:"label,omitempty"`
	Err    error  `json:"-"`
	Reason string `json:"error"`
}

// Error implements error.
func (f ImportFailure) Error() string {
	return fmt.Sprintf("import %s (%s): %v", f.ISBN, f.Label, f.Err)
}

// Unwrap exposes the underlying error.
func (f ImportFailure) Unwrap() error {
	return f.Err
}

// ImportReport summarizes a batch import.
type ImportReport struct {
	Total    int             `json:"total"`
	Imported []uuid.UUID     `json:"imported"`
	Existing int             `json:"existing"`
	Failures []ImportFailure `json:"failures"`
	Skipped  int             `json:"skipped"`
}

// Err joins every failure, or returns nil when nothing failed.
func (r *ImportReport) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// LabeledRequest is an ImportRequest with a human readable label for
// reporting, such as the title from an export file.
type LabeledRequest struct {
	ImportRequest
	Label string
}

// ImportAll imports requests one at a time. Books already in the catalog
// are counted as existing rather than failed; other failures are recorded
// and the batch continues. Cancelling ctx stops before the next request.
func (s *Service) ImportAll(ctx context.Context, requests []LabeledRequest) (*ImportReport, error) {
	report := &ImportReport{Total: len(requests)}
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			report.Skipped = len(requests) - i
			s.logger.Warn("Import cancelled", "remaining", report.Skipped, "error", err)
			return report, err
		}

		b, err := s.Import(ctx, req.ImportRequest)
		switch {
		case err == nil:
			report.Imported = append(report.Imported, b.ID)
			s.logger.Info("Imported book", "title", b.Title, "id", b.ID)
		case shelferrors.IsAlreadyExists(err):
			report.Existing++
			s.logger.Debug("book already catalogued", "isbn", req.ISBN, "label", req.Label)
		default:
			s.logger.Warn("Failed to import book", "isbn", req.ISBN, "label", req.Label, "error", err)
			report.Failures = append(report.Failures, ImportFailure{
				ISBN:   req.ISBN,
				Label:  req.Label,
				Err:    err,
				Reason: err.Error(),
			})
		}
	}

	s.logger.Info("Import complete",
		"total", report.Total,
		"imported", len(report.Imported),
		"existing", report.Existing,
		"failed", len(report.Failures))
	return report, nil
}
