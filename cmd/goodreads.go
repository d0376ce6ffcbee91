package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/bookshelf/internal/config"
	"github.com/lepinkainen/bookshelf/internal/goodreads"
	"github.com/lepinkainen/bookshelf/internal/library"
)

// GoodreadsCmd imports a Goodreads library export.
type GoodreadsCmd struct {
	Input  string `arg:"" type:"existingfile" help:"Path to goodreads_library_export.csv"`
	Wisher string `help:"UUID of the user who wishes for books on the to-read shelf"`
	DryRun bool   `help:"List the books that would be imported without resolving them"`
}

func (g *GoodreadsCmd) Run(cfg *config.Config) error {
	wisher, err := parseOptionalID(g.Wisher)
	if err != nil {
		return err
	}

	entries, err := goodreads.ReadFile(g.Input)
	if err != nil {
		return fmt.Errorf("reading Goodreads export: %w", err)
	}
	slog.Info("Read Goodreads export", "file", g.Input, "books", len(entries))

	if g.DryRun {
		return printJSON(entries)
	}

	requests := make([]library.LabeledRequest, len(entries))
	for i, e := range entries {
		requests[i] = library.LabeledRequest{ImportRequest: e.Request(wisher), Label: e.Title}
	}

	return withService(cfg, func(ctx context.Context, svc *library.Service) error {
		report, err := svc.ImportAll(ctx, requests)
		if report != nil {
			if printErr := printJSON(report); printErr != nil {
				return printErr
			}
		}
		if err != nil {
			return err
		}
		if len(report.Failures) > 0 {
			return fmt.Errorf("%d of %d books failed to import: %w", len(report.Failures), report.Total, report.Err())
		}
		return nil
	})
}
