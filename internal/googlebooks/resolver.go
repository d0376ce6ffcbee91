// Package googlebooks resolves volumes from the Google Books API. Google
// Books has no work or author records; a volume maps to an edition only.
package googlebooks

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/fetch"
	"github.com/lepinkainen/bookshelf/internal/isbn"
)

const (
	// Name identifies the provider in configuration and catalog identifiers.
	Name = "googlebooks"

	// DefaultBaseURL is the public Google Books API.
	DefaultBaseURL = "https://www.googleapis.com/books/v1"

	// APIKeyParam is the query parameter carrying the API key. It is left out
	// of cache keys.
	APIKeyParam = "key"
)

var _ book.Source = (*Resolver)(nil)

// Resolver builds editions from Google Books volumes.
type Resolver struct {
	http   *fetch.Client
	apiKey string
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAPIKey sends key with every request.
func WithAPIKey(key string) Option {
	return func(r *Resolver) {
		r.apiKey = strings.TrimSpace(key)
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver using f for all requests. f should exclude
// APIKeyParam from its cache keys.
func NewResolver(f *fetch.Client, opts ...Option) *Resolver {
	r := &Resolver{
		http:   f,
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
	if err := r.http.Ping(ctx); err != nil {
		return fmt.Errorf("google books ping failed: %w", err)
	}
	return nil
}

// LookupByISBN searches for isbn and uses the first matching volume.
func (r *Resolver) LookupByISBN(ctx context.Context, raw string) (*book.Resolution, error) {
	normalized, err := isbn.Normalize(raw)
	if err != nil {
		return nil, err
	}

	params := r.params()
	params.Set("q", "isbn:"+normalized)

	var resp VolumesResponse
	if err := r.http.GetJSON(ctx, "/volumes", params, &resp); err != nil {
		return nil, fmt.Errorf("searching volumes for ISBN %s: %w", normalized, err)
	}
	if len(resp.Items) == 0 {
		return nil, shelferrors.NewNotFoundError("volume for ISBN %s", normalized)
	}

	r.logger.Debug("volume search", "isbn", normalized, "total", resp.TotalItems, "volume", resp.Items[0].ID)
	return r.resolve(normalized, &resp.Items[0])
}

// LookupByID fetches a volume by its Google Books id.
func (r *Resolver) LookupByID(ctx context.Context, id string) (*book.Resolution, error) {
	var volume Volume
	if err := r.http.GetJSON(ctx, "/volumes/"+url.PathEscape(id), r.params(), &volume); err != nil {
		return nil, fmt.Errorf("fetching volume %s: %w", id, err)
	}
	return r.resolve("", &volume)
}

// LookupCreator always fails with ErrNotFound: Google Books has no creator
// records.
func (r *Resolver) LookupCreator(_ context.Context, id string) (*book.ExternalCreator, error) {
	return nil, shelferrors.NewNotFoundError("google books creator %s", id)
}

func (r *Resolver) params() url.Values {
	params := url.Values{}
	if r.apiKey != "" {
		params.Set(APIKeyParam, r.apiKey)
	}
	return params
}

func (r *Resolver) resolve(normalized string, v *Volume) (*book.Resolution, error) {
	edition, err := toEdition(v)
	if err != nil {
		return nil, err
	}
	if normalized == "" {
		normalized = edition.PrimaryISBN()
	}
	return &book.Resolution{ISBN: normalized, Edition: edition}, nil
}

func toEdition(v *Volume) (*book.ExternalEdition, error) {
	info := &v.VolumeInfo

	out := &book.ExternalEdition{
		Source:         Name,
		ID:             v.ID,
		Title:          strings.TrimSpace(info.Title),
		Subtitle:       strings.TrimSpace(info.Subtitle),
		PhysicalFormat: printType(info.PrintType),
		PageCount:      info.PageCount,
		Identifiers: book.Identifiers{
			ISBN10:      info.Identifiers("ISBN_10"),
			ISBN13:      info.Identifiers("ISBN_13"),
			GoogleBooks: v.ID,
		},
	}
	if out.PageCount == 0 {
		out.PageCount = info.PrintedPageCount
	}
	if d := strings.TrimSpace(info.Description); d != "" {
		out.Description = &d
	}
	if info.PublishedDate != "" {
		date, err := book.ParseDate(info.PublishedDate, book.GoogleBooksDateLayouts...)
		if err != nil {
			return nil, shelferrors.NewDecodeError("volume "+v.ID, fmt.Errorf("publishedDate: %w", err))
		}
		out.PublishDate = &date
	}
	if p := strings.TrimSpace(info.Publisher); p != "" {
		out.Publishers = []string{p}
	}
	for _, a := range info.Authors {
		if name := strings.TrimSpace(a); name != "" {
			out.Contributors = append(out.Contributors, book.Contributor{Name: name})
		}
	}
	// Categories are hierarchical: "Computers / Programming Languages / Java".
	for _, category := range info.Categories {
		for _, part := range strings.Split(category, "/") {
			if part = strings.TrimSpace(part); part != "" {
				out.Genres = append(out.Genres, part)
			}
		}
	}
	if info.Language != "" {
		out.Languages = []string{info.Language}
	}
	out.CoverURL = CoverURL(info.ImageLinks)
	return out, nil
}

// printType maps the Google print type onto a physical format. Only
// magazines are distinguished; books carry no binding information.
func printType(t string) string {
	if t == "MAGAZINE" {
		return "Magazine"
	}
	return ""
}

// CoverURL returns the largest cover image a volume links to, served over
// https. It is empty when the volume has no images.
func CoverURL(links *ImageLinks) string {
	if links == nil {
		return ""
	}
	for _, u := range []string{links.ExtraLarge, links.Large, links.Medium, links.Small, links.Thumbnail, links.SmallThumbnail} {
		if u != "" {
			return strings.Replace(u, "http://", "https://", 1)
		}
	}
	return ""
}
