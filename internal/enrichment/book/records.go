package book

import (
	"time"

	"github.com/lepinkainen/bookshelf/internal/isbn"
)

// ExternalEdition is one provider's record of a specific published edition.
// Pointer fields distinguish "not set" from "empty string".
type ExternalEdition struct {
	// Source is the provider name.
	Source string

	// ID is the provider's identifier for the edition.
	ID string

	Title       string
	Subtitle    string
	Description *string

	// PhysicalFormat is the binding or medium ("Paperback", "Hardcover; Large print").
	PhysicalFormat string

	PublishDate *time.Time
	PageCount   int

	// Multi-value fields may contain ";"-joined fragments; the reconciler splits them.
	Publishers []string
	Series     []string
	Genres     []string

	Contributors []Contributor
	Identifiers  Identifiers

	// WorkIDs link the edition to its works, first one authoritative.
	WorkIDs []string

	CoverURL  string
	Languages []string
}

// Contributor is a named person credited on the edition with an explicit role.
// An empty Role means the default author role.
type Contributor struct {
	Name string
	Role string
}

// Identifiers are the cross-reference identifiers carried by an edition.
type Identifiers struct {
	ISBN10       []string
	ISBN13       []string
	OpenLibrary  string
	GoogleBooks  string
	Goodreads    []string
	LibraryThing []string
}

// PrimaryISBN returns the first valid ISBN of the edition in ISBN-13 form.
func (e *ExternalEdition) PrimaryISBN() string {
	candidates := make([]string, 0, len(e.Identifiers.ISBN13)+len(e.Identifiers.ISBN10))
	candidates = append(candidates, e.Identifiers.ISBN13...)
	candidates = append(candidates, e.Identifiers.ISBN10...)
	return isbn.FirstValid(candidates...)
}

// ExternalWork is the abstract work an edition belongs to.
type ExternalWork struct {
	ID          string
	Title       string
	Description *string
	Creators    []CreatorRef
	Subjects    []string
}

// CreatorRef points at a creator by provider identifier.
type CreatorRef struct {
	ID   string
	Role string
}

// ExternalCreator is a provider's creator profile.
type ExternalCreator struct {
	ID          string
	Name        string
	Bio         *string
	PhotoID     int
	ImageURL    string
	Identifiers CreatorIdentifiers
}

// CreatorIdentifiers are cross-reference identifiers for a creator.
type CreatorIdentifiers struct {
	OpenLibrary  string
	Goodreads    string
	LibraryThing string
	Wikidata     string
}

// First returns the first non-empty value.
func First(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
