package openlibrary

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
)

// toEdition maps an Open Library edition into the provider-neutral record.
// A publish date that matches none of the known layouts is a decode error.
func toEdition(e *Edition) (*book.ExternalEdition, error) {
	id := e.EditionID()

	out := &book.ExternalEdition{
		Source:         Name,
		ID:             id,
		Title:          strings.TrimSpace(e.Title),
		Subtitle:       strings.TrimSpace(e.Subtitle),
		Description:    e.Description.Normalize(),
		PhysicalFormat: strings.TrimSpace(e.PhysicalFormat),
		PageCount:      e.NumberOfPages,
		Publishers:     e.Publishers,
		Series:         e.Series,
		Genres:         e.Genres,
		Identifiers: book.Identifiers{
			ISBN10:       e.ISBN10,
			ISBN13:       e.ISBN13,
			OpenLibrary:  id,
			GoogleBooks:  first(e.Identifiers.Google),
			Goodreads:    e.Identifiers.Goodreads,
			LibraryThing: e.Identifiers.LibraryThing,
		},
	}

	if out.Title == "" {
		out.Title = strings.TrimSpace(e.FullTitle)
	}

	if e.PublishDate != "" {
		date, err := book.ParseDate(e.PublishDate, book.OpenLibraryDateLayouts...)
		if err != nil {
			return nil, shelferrors.NewDecodeError("edition "+id, fmt.Errorf("publish_date: %w", err))
		}
		out.PublishDate = &date
	}

	for _, c := range e.Contributors {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		out.Contributors = append(out.Contributors, book.Contributor{
			Name: name,
			Role: strings.TrimSpace(c.Role),
		})
	}

	for _, w := range e.Works {
		if wid := w.ID(); wid != "" {
			out.WorkIDs = append(out.WorkIDs, wid)
		}
	}

	for _, l := range e.Languages {
		if lang := l.ID(); lang != "" {
			out.Languages = append(out.Languages, lang)
		}
	}

	if hasCover(e.Covers) {
		out.CoverURL = CoverURL(id)
	}

	return out, nil
}

func toWork(w *Work) *book.ExternalWork {
	out := &book.ExternalWork{
		ID:          w.WorkID(),
		Title:       strings.TrimSpace(w.Title),
		Description: w.Description.Normalize(),
		Subjects:    w.Subjects,
	}
	for _, a := range w.Authors {
		if id := a.Author.ID(); id != "" {
			out.Creators = append(out.Creators, book.CreatorRef{ID: id})
		}
	}
	return out
}

func toCreator(a *Author) *book.ExternalCreator {
	id := a.AuthorID()
	out := &book.ExternalCreator{
		ID:   id,
		Name: strings.TrimSpace(book.First(a.Name, a.PersonalName)),
		Bio:  a.Bio.Normalize(),
		Identifiers: book.CreatorIdentifiers{
			OpenLibrary:  id,
			Goodreads:    a.RemoteIDs.Goodreads,
			LibraryThing: a.RemoteIDs.LibraryThing,
			Wikidata:     a.RemoteIDs.Wikidata,
		},
	}
	// Deleted photos are listed as -1.
	for _, photo := range a.Photos {
		if photo > 0 {
			out.PhotoID = photo
			out.ImageURL = AuthorPhotoURL(photo)
			break
		}
	}
	return out
}

func hasCover(covers []int) bool {
	for _, c := range covers {
		if c > 0 {
			return true
		}
	}
	return false
}

func first(values []string) string {
	return book.First(values...)
}
