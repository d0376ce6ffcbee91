// Package goodreads reads the library export CSV that Goodreads offers
// under My Books > Import and export.
package goodreads

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/csvutil"
	"github.com/lepinkainen/bookshelf/internal/isbn"
	"github.com/lepinkainen/bookshelf/internal/library"
)

// Export column names.
const (
	ColumnBookID      = "Book Id"
	ColumnTitle       = "Title"
	ColumnAuthor      = "Author"
	ColumnISBN        = "ISBN"
	ColumnISBN13      = "ISBN13"
	ColumnShelf       = "Exclusive Shelf"
	ColumnOwnedCopies = "Owned Copies"
)

// ShelfToRead is the exclusive shelf of books the reader wants.
const ShelfToRead = "to-read"

// Entry is one book from the export.
type Entry struct {
	Line   int    `json:"line"`
	BookID string `json:"book_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
	Shelf  string `json:"shelf"`
	Owned  bool   `json:"owned"`
}

// Request maps the entry to an import. Owned books are imported as
// collected; books on the to-read shelf are wished for by wisherID when set.
func (e Entry) Request(wisherID uuid.UUID) library.ImportRequest {
	req := library.ImportRequest{ISBN: e.ISBN, Collected: e.Owned}
	if !e.Owned && e.Shelf == ShelfToRead {
		req.WisherID = wisherID
	}
	return req
}

// Read parses an export. Rows without a usable ISBN are skipped with a
// warning since they cannot be resolved.
func Read(r io.Reader) ([]Entry, error) {
	return csvutil.Process(r, parseEntry, csvutil.ProcessorOptions{
		Required:    []string{ColumnTitle, ColumnISBN, ColumnISBN13},
		SkipInvalid: true,
	})
}

// ReadFile parses the export at path.
func ReadFile(path string) ([]Entry, error) {
	return csvutil.ProcessFile(path, parseEntry, csvutil.ProcessorOptions{
		Required:    []string{ColumnTitle, ColumnISBN, ColumnISBN13},
		SkipInvalid: true,
	})
}

func parseEntry(r csvutil.Record) (Entry, error) {
	e := Entry{
		Line:   r.Line,
		BookID: r.Get(ColumnBookID),
		Title:  r.Get(ColumnTitle),
		Author: r.Get(ColumnAuthor),
		Shelf:  r.Get(ColumnShelf),
		Owned:  parseIntField(r.Get(ColumnOwnedCopies)) > 0,
	}

	e.ISBN = isbn.FirstValid(sanitizeISBNValue(r.Get(ColumnISBN13)), sanitizeISBNValue(r.Get(ColumnISBN)))
	if e.ISBN == "" {
		return Entry{}, fmt.Errorf("%q has no valid ISBN", e.Title)
	}
	return e, nil
}

// sanitizeISBNValue strips the ="..." wrapper Goodreads puts around ISBNs.
func sanitizeISBNValue(value string) string {
	trimmed := strings.TrimSuffix(value, "\"")
	trimmed = strings.TrimPrefix(trimmed, "=\"")
	return trimmed
}

func parseIntField(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}
