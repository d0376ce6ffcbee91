package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/cache"
	"github.com/lepinkainen/bookshelf/internal/catalog"
	"github.com/lepinkainen/bookshelf/internal/config"
	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	"github.com/lepinkainen/bookshelf/internal/fetch"
	"github.com/lepinkainen/bookshelf/internal/googlebooks"
	"github.com/lepinkainen/bookshelf/internal/isbn"
	"github.com/lepinkainen/bookshelf/internal/library"
	"github.com/lepinkainen/bookshelf/internal/openlibrary"
	"github.com/lepinkainen/bookshelf/internal/ratelimit"
	"github.com/lepinkainen/bookshelf/internal/store/sqlite"
)

// NormalizeCmd prints the ISBN-13 form of an identifier.
type NormalizeCmd struct {
	ISBN string `arg:"" help:"ISBN-10 or ISBN-13, hyphens allowed"`
}

func (n *NormalizeCmd) Run(*config.Config) error {
	normalized, err := isbn.Normalize(n.ISBN)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, normalized)
	return err
}

// PingCmd checks the configured source.
type PingCmd struct{}

func (p *PingCmd) Run(cfg *config.Config) error {
	source, closeCache, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	ctx, stop := commandContext()
	defer stop()
	if err := source.Ping(ctx); err != nil {
		return err
	}
	slog.Info("Source reachable", "source", source.Name())
	return nil
}

// ResolveCmd prints the reconciled draft of a book.
type ResolveCmd struct {
	ISBN string `arg:"" optional:"" help:"ISBN-10 or ISBN-13"`
	ID   string `help:"Source edition or volume id, used instead of the ISBN"`
}

func (r *ResolveCmd) Run(cfg *config.Config) error {
	return withService(cfg, func(ctx context.Context, svc *library.Service) error {
		result, err := svc.ResolveBook(ctx, r.ISBN, r.ID)
		if err != nil {
			return err
		}
		return printJSON(result)
	})
}

// LookupCmd adds a book by ISBN.
type LookupCmd struct {
	ISBN   string `arg:"" help:"ISBN-10 or ISBN-13"`
	Wisher string `help:"UUID of the user wishing for the book"`
}

func (l *LookupCmd) Run(cfg *config.Config) error {
	wisher, err := parseOptionalID(l.Wisher)
	if err != nil {
		return err
	}
	return withService(cfg, func(ctx context.Context, svc *library.Service) error {
		b, err := svc.Lookup(ctx, l.ISBN, wisher)
		if err != nil {
			return err
		}
		return printJSON(b)
	})
}

// ImportCmd adds a book by ISBN or source id.
type ImportCmd struct {
	ISBN      string `arg:"" optional:"" help:"ISBN-10 or ISBN-13"`
	ID        string `help:"Source edition or volume id, used instead of the ISBN"`
	Collected bool   `help:"Mark the book as owned"`
	Wisher    string `help:"UUID of the user wishing for the book"`
}

func (i *ImportCmd) Run(cfg *config.Config) error {
	wisher, err := parseOptionalID(i.Wisher)
	if err != nil {
		return err
	}
	return withService(cfg, func(ctx context.Context, svc *library.Service) error {
		b, err := svc.Import(ctx, library.ImportRequest{
			ISBN:       i.ISBN,
			ExternalID: i.ID,
			Collected:  i.Collected,
			WisherID:   wisher,
		})
		if err != nil {
			return err
		}
		return printJSON(b)
	})
}

// CreatorCmd resolves a creator, optionally saving it.
type CreatorCmd struct {
	ID   string `arg:"" help:"Source author id"`
	Save bool   `help:"Find or create the creator in the catalog"`
}

func (c *CreatorCmd) Run(cfg *config.Config) error {
	return withService(cfg, func(ctx context.Context, svc *library.Service) error {
		if c.Save {
			creator, err := svc.AddCreator(ctx, c.ID)
			if err != nil {
				return err
			}
			return printJSON(creator)
		}
		draft, err := svc.ResolveCreator(ctx, c.ID)
		if err != nil {
			return err
		}
		return printJSON(draft)
	})
}

// RefreshCmd resets one book or back-fills one field.
type RefreshCmd struct {
	BookID string `arg:"" help:"Catalog id of the book"`
	Field  string `help:"Only load this field (publish_date, page_count, description, image_url, subtitle, format, genres)"`
}

func (r *RefreshCmd) Run(cfg *config.Config) error {
	id, err := uuid.Parse(r.BookID)
	if err != nil {
		return fmt.Errorf("invalid book id %q: %w", r.BookID, err)
	}
	var field catalog.Field
	if r.Field != "" {
		if field, err = catalog.ParseField(r.Field); err != nil {
			return err
		}
	}

	return withService(cfg, func(ctx context.Context, svc *library.Service) error {
		var b *catalog.Book
		if field != "" {
			b, err = svc.LoadNewField(ctx, id, field)
		} else {
			b, err = svc.Reset(ctx, id)
		}
		if err != nil {
			return err
		}
		return printJSON(b)
	})
}

// RefreshAllCmd refreshes the whole catalog.
type RefreshAllCmd struct {
	LoadNewField string `help:"Only load this field instead of a full reset"`
}

func (r *RefreshAllCmd) Run(cfg *config.Config) error {
	var opts library.RefreshOptions
	if r.LoadNewField != "" {
		field, err := catalog.ParseField(r.LoadNewField)
		if err != nil {
			return err
		}
		opts.Field = field
	}

	return withService(cfg, func(ctx context.Context, svc *library.Service) error {
		report, err := svc.RefreshAll(ctx, opts)
		if report != nil {
			if printErr := printJSON(report); printErr != nil {
				return printErr
			}
		}
		if err != nil {
			return err
		}
		if len(report.Failures) > 0 {
			return fmt.Errorf("%d of %d books failed to refresh: %w", len(report.Failures), report.Total, report.Err())
		}
		return nil
	})
}

// newSource builds the configured resolver with its shared rate limiter and
// cache. The returned func closes the cache.
func newSource(cfg *config.Config) (book.Source, func(), error) {
	limiter := ratelimit.New(cfg.Source, cfg.RateLimit.Calls, cfg.RateLimit.Window,
		ratelimit.WithMinInterval(cfg.RateLimit.MinInterval))

	opts := []fetch.Option{
		fetch.WithTimeout(cfg.HTTP.Timeout),
		fetch.WithUserAgent(cfg.HTTP.UserAgent),
		fetch.WithRateLimiter(limiter),
	}

	closeCache := func() {}
	if !cfg.Cache.Disabled {
		db, err := cache.Open(cfg.Cache)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		opts = append(opts, fetch.WithCache(db))
		closeCache = func() { _ = db.Close() }
	}

	switch cfg.Source {
	case config.SourceGoogleBooks:
		opts = append(opts,
			fetch.WithBaseURL(cfg.GoogleBooks.BaseURL),
			fetch.WithCacheKeyExclusions(googlebooks.APIKeyParam))
		client := fetch.NewClient(googlebooks.Name, opts...)
		return googlebooks.NewResolver(client, googlebooks.WithAPIKey(cfg.GoogleBooks.APIKey)), closeCache, nil
	default:
		opts = append(opts, fetch.WithBaseURL(cfg.OpenLibrary.BaseURL))
		return openlibrary.NewResolver(fetch.NewClient(openlibrary.Name, opts...)), closeCache, nil
	}
}

// withService opens the source and catalog, runs fn, and closes both.
func withService(cfg *config.Config, fn func(context.Context, *library.Service) error) error {
	source, closeCache, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := library.NewService(source, store, library.WithAuthorRole(cfg.AuthorRole))

	ctx, stop := commandContext()
	defer stop()
	return fn(ctx, svc)
}

// commandContext is cancelled on interrupt so a bulk refresh stops between
// books.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func parseOptionalID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q: %w", raw, err)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
