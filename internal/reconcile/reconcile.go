// Package reconcile maps resolved provider records onto the local catalog's
// reference entities, finding or creating each one without duplicates.
package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/catalog"
	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
)

// DefaultAuthorRole is the role given to work creators and to contributors
// listed without a role.
const DefaultAuthorRole = "Writer"

// Repository is the part of the catalog the reconciler reads and writes.
type Repository interface {
	catalog.CreatorRepository
	catalog.ReferenceRepository
}

// Reconciler turns a book.Resolution into a catalog.BookDraft.
type Reconciler struct {
	repo       Repository
	source     book.Source
	authorRole string
	logger     *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithAuthorRole sets the implicit role name for work creators.
func WithAuthorRole(name string) Option {
	return func(r *Reconciler) {
		if name = catalog.CleanName(name); name != "" {
			r.authorRole = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a reconciler that stores entities in repo and resolves
// creator profiles from source.
func New(repo Repository, source book.Source, opts ...Option) *Reconciler {
	r := &Reconciler{
		repo:       repo,
		source:     source,
		authorRole: DefaultAuthorRole,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is a reconciled draft together with the entities it references.
type Result struct {
	Draft catalog.BookDraft `json:"draft"`

	Creators   []catalog.Creator   `json:"creators"`
	Roles      []catalog.Reference `json:"roles"`
	Publishers []catalog.Reference `json:"publishers"`
	Series     []catalog.Reference `json:"series"`
	Genres     []catalog.Reference `json:"genres"`
	Formats    []catalog.Reference `json:"formats"`
}

// Reconcile finds or creates every entity res refers to and returns the
// draft. User-owned fields of the draft are left empty.
func (r *Reconciler) Reconcile(ctx context.Context, res *book.Resolution) (*Result, error) {
	if res == nil || res.Edition == nil {
		return nil, shelferrors.NewNotFoundError("edition")
	}
	edition := res.Edition
	s := r.newSession()

	credits, err := r.credits(ctx, s, res)
	if err != nil {
		return nil, err
	}

	out := &Result{Draft: draftFromResolution(res)}
	out.Draft.Credits = credits

	if out.Publishers, err = s.references(ctx, catalog.KindPublisher, edition.Publishers); err != nil {
		return nil, err
	}
	if out.Series, err = s.references(ctx, catalog.KindSeries, edition.Series); err != nil {
		return nil, err
	}
	if out.Genres, err = s.references(ctx, catalog.KindGenre, edition.Genres); err != nil {
		return nil, err
	}
	if out.Formats, err = s.references(ctx, catalog.KindFormat, []string{edition.PhysicalFormat}); err != nil {
		return nil, err
	}

	if p := Primary(out.Publishers); p != nil {
		out.Draft.PublisherID = &p.ID
	}
	if f := Primary(out.Formats); f != nil {
		out.Draft.FormatID = &f.ID
	}
	for _, g := range out.Genres {
		out.Draft.GenreIDs = append(out.Draft.GenreIDs, g.ID)
	}
	for _, series := range out.Series {
		out.Draft.Series = append(out.Draft.Series, catalog.SeriesEntry{SeriesID: series.ID})
	}

	out.Creators = s.creatorList
	out.Roles = s.roleList

	r.logger.Debug("reconciled book",
		"title", out.Draft.Title,
		"creators", len(out.Creators),
		"publishers", len(out.Publishers),
		"series", len(out.Series),
		"genres", len(out.Genres))

	return out, nil
}

// Creator resolves the profile for a provider creator id and finds or
// creates the matching local creator.
func (r *Reconciler) Creator(ctx context.Context, externalID string) (*catalog.Creator, error) {
	return r.newSession().creatorByRef(ctx, externalID)
}

// CreatorDraft maps a provider profile to a creator draft.
func CreatorDraft(source string, ext *book.ExternalCreator) catalog.CreatorDraft {
	draft := catalog.CreatorDraft{
		Name:     catalog.CleanName(ext.Name),
		Bio:      ext.Bio,
		ImageURL: ext.ImageURL,
		Identifiers: catalog.CreatorIdentifiers{
			OpenLibrary:  ext.Identifiers.OpenLibrary,
			Goodreads:    ext.Identifiers.Goodreads,
			LibraryThing: ext.Identifiers.LibraryThing,
			Wikidata:     ext.Identifiers.Wikidata,
		},
	}
	if source == catalog.SourceOpenLibrary && draft.Identifiers.OpenLibrary == "" {
		draft.Identifiers.OpenLibrary = ext.ID
	}
	if draft.Name == "" {
		draft.Name = ext.ID
	}
	return draft
}

// credits builds the creator-to-roles mapping from the work's creator
// references and the edition's contributors, flattened in first-seen order
// with each creator's role ids sorted.
func (r *Reconciler) credits(ctx context.Context, s *session, res *book.Resolution) ([]catalog.Credit, error) {
	var order []uuid.UUID
	roles := make(map[uuid.UUID][]uuid.UUID)

	add := func(creator *catalog.Creator, roleName string) error {
		if roleName == "" {
			roleName = r.authorRole
		}
		role, err := s.reference(ctx, catalog.KindRole, roleName)
		if err != nil {
			return err
		}
		if _, seen := roles[creator.ID]; !seen {
			order = append(order, creator.ID)
		}
		if !slices.Contains(roles[creator.ID], role.ID) {
			roles[creator.ID] = append(roles[creator.ID], role.ID)
		}
		return nil
	}

	if res.Work != nil {
		for _, ref := range res.Work.Creators {
			creator, err := s.creatorByRef(ctx, ref.ID)
			if err != nil {
				return nil, err
			}
			if err := add(creator, ref.Role); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range res.Edition.Contributors {
		creator, err := s.creatorByName(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		if err := add(creator, c.Role); err != nil {
			return nil, err
		}
	}

	credits := make([]catalog.Credit, 0, len(order))
	for _, id := range order {
		ids := roles[id]
		slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
		credits = append(credits, catalog.Credit{CreatorID: id, RoleIDs: ids})
	}
	return credits, nil
}

// draftFromResolution copies the provider-derived scalar fields. The
// description falls back to the work's.
func draftFromResolution(res *book.Resolution) catalog.BookDraft {
	e := res.Edition
	draft := catalog.BookDraft{
		Title:       e.Title,
		Subtitle:    e.Subtitle,
		Description: e.Description,
		ImageURL:    e.CoverURL,
		PublishDate: e.PublishDate,
		PageCount:   e.PageCount,
		Identifiers: catalog.Identifiers{
			ISBN:         book.First(res.ISBN, e.PrimaryISBN()),
			OpenLibrary:  e.Identifiers.OpenLibrary,
			GoogleBooks:  e.Identifiers.GoogleBooks,
			Goodreads:    book.First(e.Identifiers.Goodreads...),
			LibraryThing: book.First(e.Identifiers.LibraryThing...),
		},
	}
	if res.Work != nil {
		if draft.Description == nil {
			draft.Description = res.Work.Description
		}
		if draft.Title == "" {
			draft.Title = res.Work.Title
		}
	}
	return draft
}

// Split breaks ";"-joined provider values into trimmed fragments, dropping
// empties and repeats of the same name key.
func Split(kind catalog.Kind, values []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ";") {
			name := catalog.CleanName(part)
			if name == "" {
				continue
			}
			key := catalog.NameKey(kind, name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, name)
		}
	}
	return out
}

// Primary returns the lexicographically first reference by name, or nil.
func Primary(refs []catalog.Reference) *catalog.Reference {
	if len(refs) == 0 {
		return nil
	}
	p := slices.MinFunc(refs, func(a, b catalog.Reference) int { return strings.Compare(a.Name, b.Name) })
	return &p
}

func errUnexpected(what string, err error) error {
	return fmt.Errorf("reconciling %s: %w", what, err)
}
