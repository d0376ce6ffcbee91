// Package openlibrary resolves books and authors from Open Library.
package openlibrary

import (
	"context"
	"fmt"
	"net/url"

	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/fetch"
)

const (
	// Name identifies the provider in configuration and catalog identifiers.
	Name = "openlibrary"

	// DefaultBaseURL is the public Open Library API.
	DefaultBaseURL = "https://openlibrary.org"

	coversBaseURL = "https://covers.openlibrary.org"
)

// Client wraps the endpoints used by the resolver.
type Client struct {
	http *fetch.Client
}

// NewClient creates an Open Library client on top of a fetch client.
func NewClient(f *fetch.Client) *Client {
	return &Client{http: f}
}

// EditionByISBN fetches /isbn/{isbn}.json.
func (c *Client) EditionByISBN(ctx context.Context, isbn string) (*Edition, error) {
	var edition Edition
	if err := c.http.GetJSON(ctx, "/isbn/"+url.PathEscape(isbn)+".json", nil, &edition); err != nil {
		return nil, fmt.Errorf("fetching edition for ISBN %s: %w", isbn, err)
	}
	return &edition, nil
}

// Edition fetches /edition/{id}.json.
func (c *Client) Edition(ctx context.Context, id string) (*Edition, error) {
	var edition Edition
	if err := c.http.GetJSON(ctx, "/edition/"+url.PathEscape(id)+".json", nil, &edition); err != nil {
		return nil, fmt.Errorf("fetching edition %s: %w", id, err)
	}
	return &edition, nil
}

// Work fetches /work/{id}.json.
func (c *Client) Work(ctx context.Context, id string) (*Work, error) {
	var work Work
	if err := c.http.GetJSON(ctx, "/work/"+url.PathEscape(id)+".json", nil, &work); err != nil {
		return nil, fmt.Errorf("fetching work %s: %w", id, err)
	}
	return &work, nil
}

// Author fetches /author/{id}.json, bypassing the cache.
func (c *Client) Author(ctx context.Context, id string) (*Author, error) {
	var author Author
	if err := c.http.GetJSON(ctx, "/author/"+url.PathEscape(id)+".json", nil, &author, fetch.SkipCache()); err != nil {
		return nil, fmt.Errorf("fetching author %s: %w", id, err)
	}
	return &author, nil
}

// BookData performs the legacy combined lookup
// /api/books?bibkeys=ISBN:{isbn}&format=json&jscmd=data. An empty answer is
// ErrNotFound.
func (c *Client) BookData(ctx context.Context, isbn string) (*BookData, error) {
	bibkey := "ISBN:" + isbn
	params := url.Values{
		"bibkeys": {bibkey},
		"format":  {"json"},
		"jscmd":   {"data"},
	}

	var result map[string]BookData
	if err := c.http.GetJSON(ctx, "/api/books", params, &result); err != nil {
		return nil, fmt.Errorf("fetching book data for ISBN %s: %w", isbn, err)
	}

	data, ok := result[bibkey]
	if !ok {
		return nil, shelferrors.NewNotFoundError("book data for ISBN %s", isbn)
	}
	return &data, nil
}

// Ping checks that the API answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.http.Ping(ctx); err != nil {
		return fmt.Errorf("open library ping failed: %w", err)
	}
	return nil
}

// CoverURL returns the large cover image URL for an edition.
func CoverURL(editionID string) string {
	return fmt.Sprintf("%s/b/OLID/%s-L.jpg", coversBaseURL, editionID)
}

// AuthorPhotoURL returns the large photo URL for an author photo id.
func AuthorPhotoURL(photoID int) string {
	return fmt.Sprintf("%s/a/id/%d-L.jpg", coversBaseURL, photoID)
}
