package openlibrary

import (
	"strings"

	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
)

// Resource is a link to another Open Library document.
type Resource struct {
	Key string `json:"key"`
}

// ID returns the last path segment of the key ("/authors/OL1A" -> "OL1A").
func (r Resource) ID() string {
	return keyID(r.Key)
}

func keyID(key string) string {
	key = strings.TrimSuffix(key, "/")
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Contributor is a person credited on an edition with an explicit role.
type Contributor struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// EditionIdentifiers are third-party identifiers attached to an edition.
type EditionIdentifiers struct {
	Amazon       []string `json:"amazon"`
	Goodreads    []string `json:"goodreads"`
	Google       []string `json:"google"`
	LibraryThing []string `json:"librarything"`
	Wikidata     []string `json:"wikidata"`
}

// Edition matches the /isbn/{isbn}.json and /edition/{id}.json responses.
type Edition struct {
	Key            string             `json:"key"`
	Title          string             `json:"title"`
	Subtitle       string             `json:"subtitle"`
	FullTitle      string             `json:"full_title"`
	Description    *book.Text         `json:"description"`
	Notes          *book.Text         `json:"notes"`
	PhysicalFormat string             `json:"physical_format"`
	PublishDate    string             `json:"publish_date"`
	NumberOfPages  int                `json:"number_of_pages"`
	Publishers     []string           `json:"publishers"`
	Series         []string           `json:"series"`
	Genres         []string           `json:"genres"`
	Subjects       []string           `json:"subjects"`
	Contributors   []Contributor      `json:"contributors"`
	Authors        []Resource         `json:"authors"`
	Works          []Resource         `json:"works"`
	Languages      []Resource         `json:"languages"`
	Covers         []int              `json:"covers"`
	ISBN10         []string           `json:"isbn_10"`
	ISBN13         []string           `json:"isbn_13"`
	Identifiers    EditionIdentifiers `json:"identifiers"`
}

// EditionID returns the edition identifier (e.g. "OL7353617M").
func (e *Edition) EditionID() string {
	return keyID(e.Key)
}

// WorkAuthor links a work to one of its authors.
type WorkAuthor struct {
	Author Resource  `json:"author"`
	Type   *Resource `json:"type"`
}

// Work matches the /work/{id}.json response.
type Work struct {
	Key              string       `json:"key"`
	Title            string       `json:"title"`
	Subtitle         string       `json:"subtitle"`
	Description      *book.Text   `json:"description"`
	Authors          []WorkAuthor `json:"authors"`
	Subjects         []string     `json:"subjects"`
	Covers           []int        `json:"covers"`
	FirstPublishDate string       `json:"first_publish_date"`
}

// WorkID returns the work identifier (e.g. "OL45804W").
func (w *Work) WorkID() string {
	return keyID(w.Key)
}

// RemoteIDs are third-party identifiers attached to an author.
type RemoteIDs struct {
	Amazon       string `json:"amazon"`
	Goodreads    string `json:"goodreads"`
	ISNI         string `json:"isni"`
	LibraryThing string `json:"librarything"`
	VIAF         string `json:"viaf"`
	Wikidata     string `json:"wikidata"`
}

// Author matches the /author/{id}.json response.
type Author struct {
	Key          string     `json:"key"`
	Name         string     `json:"name"`
	PersonalName string     `json:"personal_name"`
	Bio          *book.Text `json:"bio"`
	Photos       []int      `json:"photos"`
	RemoteIDs    RemoteIDs  `json:"remote_ids"`
	BirthDate    string     `json:"birth_date"`
	DeathDate    string     `json:"death_date"`
}

// AuthorID returns the author identifier (e.g. "OL23919A").
func (a *Author) AuthorID() string {
	return keyID(a.Key)
}

// NamedLink is a {name, url} pair from the legacy books API.
type NamedLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CoverLinks are the sized cover URLs from the legacy books API.
type CoverLinks struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// BookData is one entry of the legacy /api/books?jscmd=data response, which
// is keyed by bibkey ("ISBN:9780134685991").
type BookData struct {
	URL           string              `json:"url"`
	Key           string              `json:"key"`
	Title         string              `json:"title"`
	Subtitle      string              `json:"subtitle"`
	Authors       []NamedLink         `json:"authors"`
	Publishers    []NamedLink         `json:"publishers"`
	Subjects      []NamedLink         `json:"subjects"`
	NumberOfPages int                 `json:"number_of_pages"`
	PublishDate   string              `json:"publish_date"`
	Cover         *CoverLinks         `json:"cover"`
	Identifiers   map[string][]string `json:"identifiers"`
	Notes         *book.Text          `json:"notes"`
}

// EditionID returns the edition identifier the entry points at.
func (b *BookData) EditionID() string {
	return keyID(b.Key)
}
