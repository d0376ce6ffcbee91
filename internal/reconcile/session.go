package reconcile

import (
	"context"

	"github.com/lepinkainen/bookshelf/internal/catalog"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
)

// session memoizes lookups for one Reconcile call so a creator or reference
// mentioned twice costs one repository round trip.
type session struct {
	r *Reconciler

	creatorsByRef  map[string]*catalog.Creator
	creatorsByName map[string]*catalog.Creator
	refs           map[catalog.Kind]map[string]*catalog.Reference

	creatorList []catalog.Creator
	roleList    []catalog.Reference
}

func (r *Reconciler) newSession() *session {
	return &session{
		r:              r,
		creatorsByRef:  make(map[string]*catalog.Creator),
		creatorsByName: make(map[string]*catalog.Creator),
		refs:           make(map[catalog.Kind]map[string]*catalog.Reference),
	}
}

// creatorByRef finds a creator by the source's identifier. When none is
// stored, the profile is resolved and matched by name before a new creator
// is created from it.
func (s *session) creatorByRef(ctx context.Context, id string) (*catalog.Creator, error) {
	if c, ok := s.creatorsByRef[id]; ok {
		return c, nil
	}

	source := s.r.source.Name()
	c, err := s.r.repo.FindCreatorByIdentifier(ctx, source, id)
	if err == nil {
		return s.rememberCreator(id, c), nil
	}
	if !shelferrors.IsNotFound(err) {
		return nil, errUnexpected("creator "+id, err)
	}

	ext, err := s.r.source.LookupCreator(ctx, id)
	if err != nil {
		return nil, err
	}
	draft := CreatorDraft(source, ext)

	c, err = s.findOrCreateCreator(ctx, draft, func() (*catalog.Creator, error) {
		return s.r.repo.FindCreatorByIdentifier(ctx, source, id)
	})
	if err != nil {
		return nil, err
	}
	return s.rememberCreator(id, c), nil
}

// creatorByName finds or creates a creator known only by name.
func (s *session) creatorByName(ctx context.Context, name string) (*catalog.Creator, error) {
	draft := catalog.CreatorDraft{Name: catalog.CleanName(name)}
	if c, ok := s.creatorsByName[catalog.CreatorKey(draft.Name)]; ok {
		return c, nil
	}
	c, err := s.findOrCreateCreator(ctx, draft, nil)
	if err != nil {
		return nil, err
	}
	return s.rememberCreator("", c), nil
}

// findOrCreateCreator looks draft up by name and creates it when absent. A
// create that loses a race is answered by finding the winner.
func (s *session) findOrCreateCreator(ctx context.Context, draft catalog.CreatorDraft, byID func() (*catalog.Creator, error)) (*catalog.Creator, error) {
	if c, ok := s.creatorsByName[catalog.CreatorKey(draft.Name)]; ok {
		return c, nil
	}

	c, err := s.r.repo.FindCreatorByName(ctx, draft.Name)
	if err == nil {
		return c, nil
	}
	if !shelferrors.IsNotFound(err) {
		return nil, errUnexpected("creator "+draft.Name, err)
	}

	c, err = s.r.repo.CreateCreator(ctx, draft)
	if err == nil {
		s.r.logger.Info("Created creator", "name", c.Name, "id", c.ID)
		return c, nil
	}
	if !shelferrors.IsAlreadyExists(err) {
		return nil, errUnexpected("creator "+draft.Name, err)
	}

	if byID != nil {
		if c, findErr := byID(); findErr == nil {
			return c, nil
		}
	}
	c, err = s.r.repo.FindCreatorByName(ctx, draft.Name)
	if err != nil {
		return nil, errUnexpected("creator "+draft.Name, err)
	}
	return c, nil
}

func (s *session) rememberCreator(ref string, c *catalog.Creator) *catalog.Creator {
	key := catalog.CreatorKey(c.Name)
	if known, ok := s.creatorsByName[key]; ok && known.ID == c.ID {
		c = known
	} else {
		s.creatorsByName[key] = c
		s.creatorList = append(s.creatorList, *c)
	}
	if ref != "" {
		s.creatorsByRef[ref] = c
	}
	return c
}

// references splits values and finds or creates one reference per fragment.
func (s *session) references(ctx context.Context, kind catalog.Kind, values []string) ([]catalog.Reference, error) {
	names := Split(kind, values)
	out := make([]catalog.Reference, 0, len(names))
	for _, name := range names {
		ref, err := s.reference(ctx, kind, name)
		if err != nil {
			return nil, err
		}
		out = append(out, *ref)
	}
	return out, nil
}

// reference finds a reference of kind by name, creating it when absent.
func (s *session) reference(ctx context.Context, kind catalog.Kind, name string) (*catalog.Reference, error) {
	return s.findOrCreateReference(ctx, catalog.ReferenceDraft{Kind: kind, Name: catalog.CleanName(name)})
}

// findOrCreateReference finds draft by external identifier when it has one,
// then by name, and creates it when neither matches.
func (s *session) findOrCreateReference(ctx context.Context, draft catalog.ReferenceDraft) (*catalog.Reference, error) {
	key := catalog.NameKey(draft.Kind, draft.Name)
	if byKind, ok := s.refs[draft.Kind]; ok {
		if ref, ok := byKind[key]; ok {
			return ref, nil
		}
	}

	ref, err := s.findReference(ctx, draft)
	if shelferrors.IsNotFound(err) {
		ref, err = s.r.repo.CreateReference(ctx, draft)
		switch {
		case err == nil:
			s.r.logger.Info("Created reference", "kind", draft.Kind, "name", ref.Name, "id", ref.ID)
		case shelferrors.IsAlreadyExists(err):
			ref, err = s.findReference(ctx, draft)
		}
	}
	if err != nil {
		return nil, errUnexpected(string(draft.Kind)+" "+draft.Name, err)
	}

	if s.refs[draft.Kind] == nil {
		s.refs[draft.Kind] = make(map[string]*catalog.Reference)
	}
	s.refs[draft.Kind][key] = ref
	if draft.Kind == catalog.KindRole {
		s.roleList = append(s.roleList, *ref)
	}
	return ref, nil
}

func (s *session) findReference(ctx context.Context, draft catalog.ReferenceDraft) (*catalog.Reference, error) {
	if draft.ExternalID != "" {
		ref, err := s.r.repo.FindReferenceByIdentifier(ctx, draft.Kind, draft.ExternalID)
		if !shelferrors.IsNotFound(err) {
			return ref, err
		}
	}
	return s.r.repo.FindReferenceByName(ctx, draft.Kind, draft.Name)
}
