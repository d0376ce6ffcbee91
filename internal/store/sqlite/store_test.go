package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/catalog"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog", "bookshelf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestReferences(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	penguin, err := s.CreateReference(ctx, catalog.ReferenceDraft{Kind: catalog.KindPublisher, Name: "  Penguin   Books "})
	require.NoError(t, err)
	require.Equal(t, "Penguin Books", penguin.Name)

	found, err := s.FindReferenceByName(ctx, catalog.KindPublisher, "PENGUIN books")
	require.NoError(t, err)
	require.Equal(t, penguin.ID, found.ID)

	_, err = s.CreateReference(ctx, catalog.ReferenceDraft{Kind: catalog.KindPublisher, Name: "penguin books"})
	require.True(t, shelferrors.IsAlreadyExists(err))

	// Same name, different kind.
	_, err = s.CreateReference(ctx, catalog.ReferenceDraft{Kind: catalog.KindSeries, Name: "Penguin Books"})
	require.NoError(t, err)

	_, err = s.FindReferenceByName(ctx, catalog.KindGenre, "Penguin Books")
	require.True(t, shelferrors.IsNotFound(err))

	got, err := s.GetReference(ctx, penguin.ID)
	require.NoError(t, err)
	require.Equal(t, penguin, got)
}

func TestReferences_RolesAreCaseSensitive(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.CreateReference(ctx, catalog.ReferenceDraft{Kind: catalog.KindRole, Name: "Writer"})
	require.NoError(t, err)
	_, err = s.CreateReference(ctx, catalog.ReferenceDraft{Kind: catalog.KindRole, Name: "writer"})
	require.NoError(t, err)

	_, err = s.FindReferenceByName(ctx, catalog.KindRole, "WRITER")
	require.True(t, shelferrors.IsNotFound(err))
}

func TestReferences_ExternalID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	series, err := s.CreateReference(ctx, catalog.ReferenceDraft{Kind: catalog.KindSeries, Name: "Discworld", ExternalID: "S1"})
	require.NoError(t, err)

	found, err := s.FindReferenceByIdentifier(ctx, catalog.KindSeries, "S1")
	require.NoError(t, err)
	require.Equal(t, series.ID, found.ID)

	_, err = s.CreateReference(ctx, catalog.ReferenceDraft{Kind: catalog.KindSeries, Name: "Disc World", ExternalID: "S1"})
	require.True(t, shelferrors.IsAlreadyExists(err))

	_, err = s.FindReferenceByIdentifier(ctx, catalog.KindSeries, "")
	require.True(t, shelferrors.IsNotFound(err))
}

func TestCreators(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	bio := "Java architect."
	bloch, err := s.CreateCreator(ctx, catalog.CreatorDraft{
		Name:        "Joshua Bloch",
		Bio:         &bio,
		Identifiers: catalog.CreatorIdentifiers{OpenLibrary: "OL1A", Wikidata: "Q92602"},
	})
	require.NoError(t, err)

	byID, err := s.FindCreatorByIdentifier(ctx, catalog.SourceOpenLibrary, "OL1A")
	require.NoError(t, err)
	require.Equal(t, bloch, byID)

	byWikidata, err := s.FindCreatorByIdentifier(ctx, catalog.SourceWikidata, "Q92602")
	require.NoError(t, err)
	require.Equal(t, bloch.ID, byWikidata.ID)

	byName, err := s.FindCreatorByName(ctx, "JOSHUA  bloch")
	require.NoError(t, err)
	require.Equal(t, bloch.ID, byName.ID)

	_, err = s.CreateCreator(ctx, catalog.CreatorDraft{Name: "joshua bloch"})
	require.True(t, shelferrors.IsAlreadyExists(err))

	_, err = s.CreateCreator(ctx, catalog.CreatorDraft{Name: "J. Bloch", Identifiers: catalog.CreatorIdentifiers{OpenLibrary: "OL1A"}})
	require.True(t, shelferrors.IsAlreadyExists(err))

	_, err = s.FindCreatorByIdentifier(ctx, catalog.SourceGoogleBooks, "OL1A")
	require.True(t, shelferrors.IsNotFound(err))

	_, err = s.GetCreator(ctx, uuid.New())
	require.True(t, shelferrors.IsNotFound(err))
}

func sampleDraft(isbn string) catalog.BookDraft {
	desc := "Best practices."
	published := time.Date(2017, 12, 27, 0, 0, 0, 0, time.UTC)
	format, publisher, genre, role := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	return catalog.BookDraft{
		Title:       "Effective Java",
		Subtitle:    "Third Edition",
		Description: &desc,
		PublishDate: &published,
		PageCount:   412,
		FormatID:    &format,
		PublisherID: &publisher,
		GenreIDs:    []uuid.UUID{genre},
		Series:      []catalog.SeriesEntry{{SeriesID: uuid.New(), Number: 3}},
		Credits:     []catalog.Credit{{CreatorID: uuid.New(), RoleIDs: []uuid.UUID{role}}},
		Identifiers: catalog.Identifiers{ISBN: isbn, OpenLibrary: "OL7353617M", Goodreads: "34076952"},
		WisherIDs:   []uuid.UUID{uuid.New()},
	}
}

func TestBooks_RoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	draft := sampleDraft("9780134685991")
	created, err := s.CreateBook(ctx, draft)
	require.NoError(t, err)

	got, err := s.GetBook(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, draft.Title, got.Title)
	require.Equal(t, *draft.Description, *got.Description)
	require.True(t, draft.PublishDate.Equal(*got.PublishDate))
	require.Equal(t, draft.FormatID, got.FormatID)
	require.Equal(t, draft.PublisherID, got.PublisherID)
	require.Equal(t, draft.GenreIDs, got.GenreIDs)
	require.Equal(t, draft.Series, got.Series)
	require.Equal(t, draft.Credits, got.Credits)
	require.Equal(t, draft.Identifiers, got.Identifiers)
	require.Equal(t, draft.WisherIDs, got.WisherIDs)

	byISBN, err := s.FindBookByISBN(ctx, "9780134685991")
	require.NoError(t, err)
	require.Equal(t, created.ID, byISBN.ID)

	_, err = s.CreateBook(ctx, sampleDraft("9780134685991"))
	require.True(t, shelferrors.IsAlreadyExists(err))
}

func TestBooks_WithoutISBNDoNotCollide(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.CreateBook(ctx, sampleDraft(""))
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, sampleDraft(""))
	require.NoError(t, err)

	_, err = s.FindBookByISBN(ctx, "")
	require.True(t, shelferrors.IsNotFound(err))
}

func TestBooks_Replace(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	created, err := s.CreateBook(ctx, sampleDraft("9780134685991"))
	require.NoError(t, err)
	other, err := s.CreateBook(ctx, sampleDraft("9780321356680"))
	require.NoError(t, err)

	updated := created.Clone()
	updated.Subtitle = ""
	updated.PublisherID = nil
	updated.Description = nil
	updated.IsCollected = true
	updated.WisherIDs = nil

	replaced, err := s.ReplaceBook(ctx, updated)
	require.NoError(t, err)
	require.Equal(t, created.CreatedAt.Unix(), replaced.CreatedAt.Unix())

	got, err := s.GetBook(ctx, created.ID)
	require.NoError(t, err)
	require.Empty(t, got.Subtitle)
	require.Nil(t, got.PublisherID)
	require.Nil(t, got.Description)
	require.True(t, got.IsCollected)
	require.Empty(t, got.WisherIDs)
	require.Equal(t, created.Credits, got.Credits)

	clash := other.Clone()
	clash.Identifiers.ISBN = "9780134685991"
	_, err = s.ReplaceBook(ctx, clash)
	require.True(t, shelferrors.IsAlreadyExists(err))

	missing := created.Clone()
	missing.ID = uuid.New()
	_, err = s.ReplaceBook(ctx, missing)
	require.True(t, shelferrors.IsNotFound(err))
}

func TestBooks_ListInCreationOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	var ids []uuid.UUID
	for _, isbn := range []string{"9780134685991", "9780321356680", "9780306406157"} {
		b, err := s.CreateBook(ctx, sampleDraft(isbn))
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 3)
	for i, b := range books {
		require.Equal(t, ids[i], b.ID)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookshelf.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	created, err := s.CreateBook(ctx, sampleDraft("9780134685991"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.GetBook(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Effective Java", got.Title)
}

func TestOpen_NotADatabaseReleasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookshelf.db")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a database\n", 512)), 0o600))

	// Depending on when the driver first reads the header this fails while
	// connecting or while switching the journal mode. Either way nothing may
	// keep the file open.
	_, err := Open(path)
	require.Error(t, err)

	fds, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd on this platform")
	}
	for _, fd := range fds {
		target, err := os.Readlink(filepath.Join("/proc/self/fd", fd.Name()))
		if err != nil {
			continue
		}
		require.NotEqual(t, path, target, "database file left open after a failed Open")
	}
}
