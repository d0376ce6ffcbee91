// Package memory is an in-memory catalog repository for tests and dry runs.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/catalog"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
)

var _ catalog.Repository = (*Store)(nil)

// Store keeps every entity in maps guarded by one mutex. Values are copied
// in and out so callers never share state with the store.
type Store struct {
	mu         sync.RWMutex
	creators   map[uuid.UUID]catalog.Creator
	references map[uuid.UUID]catalog.Reference
	books      map[uuid.UUID]catalog.Book
	order      []uuid.UUID
	now        func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		creators:   make(map[uuid.UUID]catalog.Creator),
		references: make(map[uuid.UUID]catalog.Reference),
		books:      make(map[uuid.UUID]catalog.Book),
		now:        time.Now,
	}
}

// GetCreator implements catalog.CreatorRepository.
func (s *Store) GetCreator(_ context.Context, id uuid.UUID) (*catalog.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creators[id]
	if !ok {
		return nil, shelferrors.NewNotFoundError("creator %s", id)
	}
	return &c, nil
}

// FindCreatorByIdentifier implements catalog.CreatorRepository.
func (s *Store) FindCreatorByIdentifier(_ context.Context, source, id string) (*catalog.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.creatorByIdentifier(source, id); ok {
		return &c, nil
	}
	return nil, shelferrors.NewNotFoundError("creator with %s id %s", source, id)
}

// FindCreatorByName implements catalog.CreatorRepository.
func (s *Store) FindCreatorByName(_ context.Context, name string) (*catalog.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.creatorByName(name); ok {
		return &c, nil
	}
	return nil, shelferrors.NewNotFoundError("creator %q", name)
}

// CreateCreator implements catalog.CreatorRepository.
func (s *Store) CreateCreator(_ context.Context, draft catalog.CreatorDraft) (*catalog.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft.Name = catalog.CleanName(draft.Name)
	if _, ok := s.creatorByName(draft.Name); ok {
		return nil, shelferrors.NewAlreadyExistsError("creator %q", draft.Name)
	}
	for _, source := range []string{catalog.SourceOpenLibrary, catalog.SourceGoodreads, catalog.SourceLibraryThing, catalog.SourceWikidata} {
		if _, ok := s.creatorByIdentifier(source, draft.Identifiers.ForSource(source)); ok {
			return nil, shelferrors.NewAlreadyExistsError("creator with %s id %s", source, draft.Identifiers.ForSource(source))
		}
	}

	c := catalog.Creator{ID: uuid.New(), CreatorDraft: draft}
	s.creators[c.ID] = c
	return &c, nil
}

func (s *Store) creatorByIdentifier(source, id string) (catalog.Creator, bool) {
	if id == "" {
		return catalog.Creator{}, false
	}
	for _, c := range s.creators {
		if c.Identifiers.ForSource(source) == id {
			return c, true
		}
	}
	return catalog.Creator{}, false
}

func (s *Store) creatorByName(name string) (catalog.Creator, bool) {
	key := catalog.CreatorKey(name)
	for _, c := range s.creators {
		if catalog.CreatorKey(c.Name) == key {
			return c, true
		}
	}
	return catalog.Creator{}, false
}

// GetReference implements catalog.ReferenceRepository.
func (s *Store) GetReference(_ context.Context, id uuid.UUID) (*catalog.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.references[id]
	if !ok {
		return nil, shelferrors.NewNotFoundError("reference %s", id)
	}
	return &r, nil
}

// FindReferenceByIdentifier implements catalog.ReferenceRepository.
func (s *Store) FindReferenceByIdentifier(_ context.Context, kind catalog.Kind, externalID string) (*catalog.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.referenceByIdentifier(kind, externalID); ok {
		return &r, nil
	}
	return nil, shelferrors.NewNotFoundError("%s with id %s", kind, externalID)
}

// FindReferenceByName implements catalog.ReferenceRepository.
func (s *Store) FindReferenceByName(_ context.Context, kind catalog.Kind, name string) (*catalog.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.referenceByName(kind, name); ok {
		return &r, nil
	}
	return nil, shelferrors.NewNotFoundError("%s %q", kind, name)
}

// CreateReference implements catalog.ReferenceRepository.
func (s *Store) CreateReference(_ context.Context, draft catalog.ReferenceDraft) (*catalog.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft.Name = catalog.CleanName(draft.Name)
	if _, ok := s.referenceByName(draft.Kind, draft.Name); ok {
		return nil, shelferrors.NewAlreadyExistsError("%s %q", draft.Kind, draft.Name)
	}
	if _, ok := s.referenceByIdentifier(draft.Kind, draft.ExternalID); ok {
		return nil, shelferrors.NewAlreadyExistsError("%s with id %s", draft.Kind, draft.ExternalID)
	}

	r := catalog.Reference{ID: uuid.New(), ReferenceDraft: draft}
	s.references[r.ID] = r
	return &r, nil
}

func (s *Store) referenceByIdentifier(kind catalog.Kind, id string) (catalog.Reference, bool) {
	if id == "" {
		return catalog.Reference{}, false
	}
	for _, r := range s.references {
		if r.Kind == kind && r.ExternalID == id {
			return r, true
		}
	}
	return catalog.Reference{}, false
}

func (s *Store) referenceByName(kind catalog.Kind, name string) (catalog.Reference, bool) {
	key := catalog.NameKey(kind, name)
	for _, r := range s.references {
		if r.Kind == kind && catalog.NameKey(kind, r.Name) == key {
			return r, true
		}
	}
	return catalog.Reference{}, false
}

// References returns every reference of kind ordered by name.
func (s *Store) References(kind catalog.Kind) []catalog.Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Reference
	for _, r := range s.references {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b catalog.Reference) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// Creators returns every creator ordered by name.
func (s *Store) Creators() []catalog.Creator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Creator, 0, len(s.creators))
	for _, c := range s.creators {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b catalog.Creator) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// GetBook implements catalog.BookRepository.
func (s *Store) GetBook(_ context.Context, id uuid.UUID) (*catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, shelferrors.NewNotFoundError("book %s", id)
	}
	out := b.Clone()
	return &out, nil
}

// FindBookByISBN implements catalog.BookRepository.
func (s *Store) FindBookByISBN(_ context.Context, isbn string) (*catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.bookByISBN(isbn); ok {
		out := b.Clone()
		return &out, nil
	}
	return nil, shelferrors.NewNotFoundError("book with ISBN %s", isbn)
}

// ListBooks implements catalog.BookRepository. Books are returned in
// insertion order.
func (s *Store) ListBooks(_ context.Context) ([]catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Book, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.books[id].Clone())
	}
	return out, nil
}

// CreateBook implements catalog.BookRepository.
func (s *Store) CreateBook(_ context.Context, draft catalog.BookDraft) (*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookByISBN(draft.Identifiers.ISBN); ok {
		return nil, shelferrors.NewAlreadyExistsError("book with ISBN %s", draft.Identifiers.ISBN)
	}

	now := s.now()
	b := catalog.Book{ID: uuid.New(), BookDraft: draft.Clone(), CreatedAt: now, UpdatedAt: now}
	s.books[b.ID] = b
	s.order = append(s.order, b.ID)
	out := b.Clone()
	return &out, nil
}

// ReplaceBook implements catalog.BookRepository.
func (s *Store) ReplaceBook(_ context.Context, book catalog.Book) (*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.books[book.ID]
	if !ok {
		return nil, shelferrors.NewNotFoundError("book %s", book.ID)
	}
	if other, ok := s.bookByISBN(book.Identifiers.ISBN); ok && other.ID != book.ID {
		return nil, shelferrors.NewAlreadyExistsError("book with ISBN %s", book.Identifiers.ISBN)
	}

	b := book.Clone()
	b.CreatedAt = current.CreatedAt
	b.UpdatedAt = s.now()
	s.books[b.ID] = b
	out := b.Clone()
	return &out, nil
}

func (s *Store) bookByISBN(isbn string) (catalog.Book, bool) {
	if isbn == "" {
		return catalog.Book{}, false
	}
	for _, b := range s.books {
		if b.Identifiers.ISBN == isbn {
			return b, true
		}
	}
	return catalog.Book{}, false
}
