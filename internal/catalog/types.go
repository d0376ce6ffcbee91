// Package catalog defines the local book catalog: reference entities, the
// book aggregate, the repository contracts the pipeline consumes, and the
// assembler that writes reconciled drafts.
package catalog

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Kind names a reference entity type that is matched by name.
type Kind string

const (
	KindPublisher Kind = "publisher"
	KindSeries    Kind = "series"
	KindGenre     Kind = "genre"
	KindFormat    Kind = "format"
	KindRole      Kind = "role"
)

// Kinds lists every reference kind.
var Kinds = []Kind{KindPublisher, KindSeries, KindGenre, KindFormat, KindRole}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// ReferenceDraft is a reference entity ready to be created.
type ReferenceDraft struct {
	Kind       Kind   `json:"kind"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id,omitempty"`
}

// Reference is a persisted publisher, series, genre, format or role.
type Reference struct {
	ID uuid.UUID `json:"id"`
	ReferenceDraft
}

// CreatorIdentifiers cross-reference a creator in external services.
type CreatorIdentifiers struct {
	OpenLibrary  string `json:"open_library_id,omitempty"`
	Goodreads    string `json:"goodreads_id,omitempty"`
	LibraryThing string `json:"library_thing_id,omitempty"`
	Wikidata     string `json:"wikidata_id,omitempty"`
}

// ForSource returns the identifier used by the named provider.
func (c CreatorIdentifiers) ForSource(source string) string {
	switch source {
	case SourceOpenLibrary:
		return c.OpenLibrary
	case SourceGoodreads:
		return c.Goodreads
	case SourceLibraryThing:
		return c.LibraryThing
	case SourceWikidata:
		return c.Wikidata
	}
	return ""
}

// CreatorDraft is a creator ready to be created.
type CreatorDraft struct {
	Name        string             `json:"name"`
	Bio         *string            `json:"bio,omitempty"`
	ImageURL    string             `json:"image_url,omitempty"`
	Identifiers CreatorIdentifiers `json:"identifiers"`
}

// Creator is a persisted person credited on books.
type Creator struct {
	ID uuid.UUID `json:"id"`
	CreatorDraft
}

// Identifier namespaces used in Identifiers.ForSource and
// CreatorIdentifiers.ForSource.
const (
	SourceOpenLibrary  = "openlibrary"
	SourceGoogleBooks  = "googlebooks"
	SourceGoodreads    = "goodreads"
	SourceLibraryThing = "librarything"
	SourceWikidata     = "wikidata"
)

// Identifiers cross-reference a book in external services.
type Identifiers struct {
	ISBN         string `json:"isbn,omitempty"`
	OpenLibrary  string `json:"open_library_id,omitempty"`
	GoogleBooks  string `json:"google_books_id,omitempty"`
	Goodreads    string `json:"goodreads_id,omitempty"`
	LibraryThing string `json:"library_thing_id,omitempty"`
}

// ForSource returns the book identifier used by the named provider.
func (i Identifiers) ForSource(source string) string {
	switch source {
	case SourceOpenLibrary:
		return i.OpenLibrary
	case SourceGoogleBooks:
		return i.GoogleBooks
	case SourceGoodreads:
		return i.Goodreads
	case SourceLibraryThing:
		return i.LibraryThing
	}
	return ""
}

// Credit links a creator to the roles they hold on one book.
type Credit struct {
	CreatorID uuid.UUID   `json:"creator_id"`
	RoleIDs   []uuid.UUID `json:"role_ids"`
}

// SeriesEntry places a book in a series. Number is user-owned.
type SeriesEntry struct {
	SeriesID uuid.UUID `json:"series_id"`
	Number   int       `json:"number"`
}

// BookDraft is a fully reconciled book. Relations are sets of ids applied to
// storage in one write.
type BookDraft struct {
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle,omitempty"`
	Description *string    `json:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	PageCount   int        `json:"page_count,omitempty"`

	FormatID    *uuid.UUID    `json:"format_id,omitempty"`
	PublisherID *uuid.UUID    `json:"publisher_id,omitempty"`
	GenreIDs    []uuid.UUID   `json:"genre_ids"`
	Series      []SeriesEntry `json:"series"`
	Credits     []Credit      `json:"credits"`
	Identifiers Identifiers   `json:"identifiers"`

	// User-owned state, never overwritten by a refresh.
	IsCollected bool        `json:"is_collected"`
	WisherIDs   []uuid.UUID `json:"wisher_ids"`
	ReaderIDs   []uuid.UUID `json:"reader_ids"`
}

// Clone returns a deep copy of d.
func (d BookDraft) Clone() BookDraft {
	out := d
	if d.Description != nil {
		desc := *d.Description
		out.Description = &desc
	}
	if d.PublishDate != nil {
		date := *d.PublishDate
		out.PublishDate = &date
	}
	if d.FormatID != nil {
		id := *d.FormatID
		out.FormatID = &id
	}
	if d.PublisherID != nil {
		id := *d.PublisherID
		out.PublisherID = &id
	}
	out.GenreIDs = slices.Clone(d.GenreIDs)
	out.Series = slices.Clone(d.Series)
	out.WisherIDs = slices.Clone(d.WisherIDs)
	out.ReaderIDs = slices.Clone(d.ReaderIDs)
	if d.Credits != nil {
		out.Credits = make([]Credit, len(d.Credits))
		for i, c := range d.Credits {
			out.Credits[i] = Credit{CreatorID: c.CreatorID, RoleIDs: slices.Clone(c.RoleIDs)}
		}
	}
	return out
}

// HasWisher reports whether id already wishes for the book.
func (d BookDraft) HasWisher(id uuid.UUID) bool {
	return slices.Contains(d.WisherIDs, id)
}

// Book is the persisted aggregate.
type Book struct {
	ID uuid.UUID `json:"id"`
	BookDraft
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of b.
func (b Book) Clone() Book {
	out := b
	out.BookDraft = b.BookDraft.Clone()
	return out
}
