package sqlite

import (
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/catalog"
	"gorm.io/datatypes"
)

// creatorModel is a row in creators. NameKey holds the folded name that
// uniqueness is enforced on.
type creatorModel struct {
	ID             string  `gorm:"primaryKey;type:text"`
	Name           string  `gorm:"not null"`
	NameKey        string  `gorm:"not null;uniqueIndex"`
	Bio            *string `gorm:"type:text"`
	ImageURL       string
	OpenLibraryID  string `gorm:"index"`
	GoodreadsID    string `gorm:"index"`
	LibraryThingID string `gorm:"index"`
	WikidataID     string `gorm:"index"`
	CreatedAt      time.Time
}

func (creatorModel) TableName() string { return "creators" }

func newCreatorModel(id uuid.UUID, d catalog.CreatorDraft) creatorModel {
	return creatorModel{
		ID:             id.String(),
		Name:           d.Name,
		NameKey:        catalog.CreatorKey(d.Name),
		Bio:            d.Bio,
		ImageURL:       d.ImageURL,
		OpenLibraryID:  d.Identifiers.OpenLibrary,
		GoodreadsID:    d.Identifiers.Goodreads,
		LibraryThingID: d.Identifiers.LibraryThing,
		WikidataID:     d.Identifiers.Wikidata,
	}
}

func (m creatorModel) toCreator() *catalog.Creator {
	return &catalog.Creator{
		ID: uuid.MustParse(m.ID),
		CreatorDraft: catalog.CreatorDraft{
			Name:     m.Name,
			Bio:      m.Bio,
			ImageURL: m.ImageURL,
			Identifiers: catalog.CreatorIdentifiers{
				OpenLibrary:  m.OpenLibraryID,
				Goodreads:    m.GoodreadsID,
				LibraryThing: m.LibraryThingID,
				Wikidata:     m.WikidataID,
			},
		},
	}
}

// creatorIdentifierColumns maps identifier namespaces to creator columns.
var creatorIdentifierColumns = map[string]string{
	catalog.SourceOpenLibrary:  "open_library_id",
	catalog.SourceGoodreads:    "goodreads_id",
	catalog.SourceLibraryThing: "library_thing_id",
	catalog.SourceWikidata:     "wikidata_id",
}

type referenceModel struct {
	ID         string `gorm:"primaryKey;type:text"`
	Kind       string `gorm:"not null;uniqueIndex:idx_reference_name,priority:1"`
	Name       string `gorm:"not null"`
	NameKey    string `gorm:"not null;uniqueIndex:idx_reference_name,priority:2"`
	ExternalID string `gorm:"index"`
	CreatedAt  time.Time
}

func (referenceModel) TableName() string { return "catalog_references" }

func newReferenceModel(id uuid.UUID, d catalog.ReferenceDraft) referenceModel {
	return referenceModel{
		ID:         id.String(),
		Kind:       string(d.Kind),
		Name:       d.Name,
		NameKey:    catalog.NameKey(d.Kind, d.Name),
		ExternalID: d.ExternalID,
	}
}

func (m referenceModel) toReference() *catalog.Reference {
	return &catalog.Reference{
		ID: uuid.MustParse(m.ID),
		ReferenceDraft: catalog.ReferenceDraft{
			Kind:       catalog.Kind(m.Kind),
			Name:       m.Name,
			ExternalID: m.ExternalID,
		},
	}
}

// bookRelations are the id sets of a book, stored as one JSON column so a
// book is always written in a single statement.
type bookRelations struct {
	GenreIDs  []uuid.UUID           `json:"genre_ids,omitempty"`
	Series    []catalog.SeriesEntry `json:"series,omitempty"`
	Credits   []catalog.Credit      `json:"credits,omitempty"`
	WisherIDs []uuid.UUID           `json:"wisher_ids,omitempty"`
	ReaderIDs []uuid.UUID           `json:"reader_ids,omitempty"`
}

// bookModel is a row in books. ISBN is nil rather than empty so books
// without one do not collide on the unique index.
type bookModel struct {
	ID          string  `gorm:"primaryKey;type:text"`
	Title       string  `gorm:"not null"`
	Subtitle    string
	Description *string `gorm:"type:text"`
	ImageURL    string
	PublishDate *time.Time
	PageCount   int

	FormatID    *string
	PublisherID *string
	Relations   datatypes.JSONType[bookRelations]

	ISBN           *string `gorm:"uniqueIndex"`
	OpenLibraryID  string  `gorm:"index"`
	GoogleBooksID  string  `gorm:"index"`
	GoodreadsID    string
	LibraryThingID string

	IsCollected bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (bookModel) TableName() string { return "books" }

func newBookModel(id uuid.UUID, d catalog.BookDraft) bookModel {
	return bookModel{
		ID:          id.String(),
		Title:       d.Title,
		Subtitle:    d.Subtitle,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		PublishDate: d.PublishDate,
		PageCount:   d.PageCount,
		FormatID:    idString(d.FormatID),
		PublisherID: idString(d.PublisherID),
		Relations: datatypes.NewJSONType(bookRelations{
			GenreIDs:  d.GenreIDs,
			Series:    d.Series,
			Credits:   d.Credits,
			WisherIDs: d.WisherIDs,
			ReaderIDs: d.ReaderIDs,
		}),
		ISBN:           nullable(d.Identifiers.ISBN),
		OpenLibraryID:  d.Identifiers.OpenLibrary,
		GoogleBooksID:  d.Identifiers.GoogleBooks,
		GoodreadsID:    d.Identifiers.Goodreads,
		LibraryThingID: d.Identifiers.LibraryThing,
		IsCollected:    d.IsCollected,
	}
}

func (m bookModel) toBook() (*catalog.Book, error) {
	formatID, err := parseID(m.FormatID)
	if err != nil {
		return nil, err
	}
	publisherID, err := parseID(m.PublisherID)
	if err != nil {
		return nil, err
	}
	rel := m.Relations.Data()

	b := &catalog.Book{
		ID: uuid.MustParse(m.ID),
		BookDraft: catalog.BookDraft{
			Title:       m.Title,
			Subtitle:    m.Subtitle,
			Description: m.Description,
			ImageURL:    m.ImageURL,
			PublishDate: m.PublishDate,
			PageCount:   m.PageCount,
			FormatID:    formatID,
			PublisherID: publisherID,
			GenreIDs:    rel.GenreIDs,
			Series:      rel.Series,
			Credits:     rel.Credits,
			Identifiers: catalog.Identifiers{
				OpenLibrary:  m.OpenLibraryID,
				GoogleBooks:  m.GoogleBooksID,
				Goodreads:    m.GoodreadsID,
				LibraryThing: m.LibraryThingID,
			},
			IsCollected: m.IsCollected,
			WisherIDs:   rel.WisherIDs,
			ReaderIDs:   rel.ReaderIDs,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ISBN != nil {
		b.Identifiers.ISBN = *m.ISBN
	}
	if b.PublishDate != nil {
		date := b.PublishDate.UTC()
		b.PublishDate = &date
	}
	return b, nil
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
