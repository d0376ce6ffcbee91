package library

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/cache"
	"github.com/lepinkainen/bookshelf/internal/catalog"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/fetch"
	"github.com/lepinkainen/bookshelf/internal/openlibrary"
	"github.com/lepinkainen/bookshelf/internal/store/memory"
	"github.com/lepinkainen/bookshelf/internal/testutil"
	"github.com/stretchr/testify/require"
)

const (
	javaEdition = `{
		"key": "/books/OL7353617M",
		"title": "Effective Java",
		"publish_date": "2017",
		"number_of_pages": 412,
		"publishers": ["Addison-Wesley; Pearson"],
		"physical_format": "Paperback",
		"works": [{"key": "/works/OL45804W"}],
		"isbn_13": ["9780134685991"]
	}`
	javaWork = `{
		"key": "/works/OL45804W",
		"description": {"type": "/type/text", "value": "Best practices for Java."},
		"authors": [{"author": {"key": "/authors/OL1A"}}]
	}`
	puzzlersEdition = `{
		"key": "/books/OL2M",
		"title": "Java Puzzlers",
		"works": [{"key": "/works/OL2W"}],
		"isbn_13": ["9780321336781"]
	}`
	puzzlersWork = `{
		"key": "/works/OL2W",
		"authors": [{"author": {"key": "/authors/OL1A"}}, {"author": {"key": "/authors/OL3A"}}]
	}`
	blochAuthor   = `{"key": "/authors/OL1A", "name": "Joshua Bloch", "remote_ids": {"wikidata": "Q92602"}}`
	gafterAuthor  = `{"key": "/authors/OL3A", "name": "Neal Gafter"}`
	javaISBN      = "9780134685991"
	puzzlersISBN  = "9780321336781"
)

func catalogRoutes() *testutil.Routes {
	return testutil.NewRoutes().
		JSON("/isbn/"+javaISBN+".json", javaEdition).
		JSON("/edition/OL7353617M.json", javaEdition).
		JSON("/work/OL45804W.json", javaWork).
		JSON("/isbn/"+puzzlersISBN+".json", puzzlersEdition).
		JSON("/edition/OL2M.json", puzzlersEdition).
		JSON("/work/OL2W.json", puzzlersWork).
		JSON("/author/OL1A.json", blochAuthor).
		JSON("/author/OL3A.json", gafterAuthor)
}

func newService(t *testing.T, routes *testutil.Routes, opts ...fetch.Option) (*Service, *memory.Store) {
	t.Helper()
	server := testutil.NewIPv4TestServer(t, routes)
	opts = append([]fetch.Option{fetch.WithBaseURL(server.URL)}, opts...)
	source := openlibrary.NewResolver(fetch.NewClient(openlibrary.Name, opts...))
	store := memory.New()
	return NewService(source, store), store
}

func TestLookup_CreatesBook(t *testing.T) {
	svc, store := newService(t, catalogRoutes())
	ctx := context.Background()

	b, err := svc.Lookup(ctx, "0-13-468599-7", uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, "Effective Java", b.Title)
	require.Equal(t, javaISBN, b.Identifiers.ISBN)
	require.Equal(t, "OL7353617M", b.Identifiers.OpenLibrary)
	require.Equal(t, "Best practices for Java.", *b.Description)
	require.Equal(t, 412, b.PageCount)
	require.Len(t, b.Credits, 1)
	require.Empty(t, b.WisherIDs)

	publisher, err := store.GetReference(ctx, *b.PublisherID)
	require.NoError(t, err)
	require.Equal(t, "Addison-Wesley", publisher.Name)

	creator, err := store.GetCreator(ctx, b.Credits[0].CreatorID)
	require.NoError(t, err)
	require.Equal(t, "Joshua Bloch", creator.Name)
	require.Equal(t, "Q92602", creator.Identifiers.Wikidata)
}

func TestLookup_ExistingBook(t *testing.T) {
	routes := catalogRoutes()
	svc, _ := newService(t, routes)
	ctx := context.Background()

	original, err := svc.Lookup(ctx, javaISBN, uuid.Nil)
	require.NoError(t, err)
	hits := routes.Total()

	_, err = svc.Lookup(ctx, javaISBN, uuid.Nil)
	require.True(t, shelferrors.IsAlreadyExists(err))
	require.Equal(t, http.StatusConflict, shelferrors.HTTPStatus(err))

	wisher := uuid.New()
	wished, err := svc.Lookup(ctx, javaISBN, wisher)
	require.NoError(t, err)
	require.Equal(t, original.ID, wished.ID)
	require.Equal(t, []uuid.UUID{wisher}, wished.WisherIDs)
	require.Equal(t, original.Title, wished.Title)
	require.Equal(t, original.Credits, wished.Credits)

	_, err = svc.Lookup(ctx, javaISBN, wisher)
	require.True(t, shelferrors.IsAlreadyExists(err))
	require.ErrorContains(t, err, "already wished for")

	require.Equal(t, hits, routes.Total(), "catalogued ISBNs are answered without the network")
}

func TestLookup_InvalidISBN(t *testing.T) {
	svc, _ := newService(t, catalogRoutes())
	_, err := svc.Lookup(context.Background(), "12345", uuid.Nil)
	require.True(t, shelferrors.IsInvalidIdentifier(err))
	require.Equal(t, http.StatusBadRequest, shelferrors.HTTPStatus(err))
}

func TestImport_CollectedHasNoWishers(t *testing.T) {
	svc, _ := newService(t, catalogRoutes())

	b, err := svc.Import(context.Background(), ImportRequest{ExternalID: "OL7353617M", Collected: true, WisherID: uuid.New()})
	require.NoError(t, err)
	require.True(t, b.IsCollected)
	require.Empty(t, b.WisherIDs)
	require.Equal(t, javaISBN, b.Identifiers.ISBN)
}

func TestImport_SharedCreator(t *testing.T) {
	routes := catalogRoutes()
	svc, store := newService(t, routes)
	ctx := context.Background()

	java, err := svc.Lookup(ctx, javaISBN, uuid.Nil)
	require.NoError(t, err)
	puzzlers, err := svc.Lookup(ctx, puzzlersISBN, uuid.Nil)
	require.NoError(t, err)

	require.Len(t, store.Creators(), 2)
	require.Equal(t, java.Credits[0].CreatorID, puzzlers.Credits[0].CreatorID)
	require.Equal(t, 1, routes.Hits("/author/OL1A.json"))
	require.Len(t, store.References(catalog.KindRole), 1)
}

func TestResolveBook_CachedWithinTTL(t *testing.T) {
	routes := catalogRoutes()
	env := testutil.NewTestEnv(t)
	db, err := cache.NewCacheDB(env.Path(cache.DefaultFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc, _ := newService(t, routes, fetch.WithCache(db))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.ResolveBook(ctx, javaISBN, "")
		require.NoError(t, err)
		require.Equal(t, "Effective Java", res.Draft.Title)
	}
	require.Equal(t, 1, routes.Hits("/isbn/"+javaISBN+".json"))
	require.Equal(t, 1, routes.Hits("/work/OL45804W.json"))
}

func TestResolveBook_RequiresIdentifier(t *testing.T) {
	svc, _ := newService(t, catalogRoutes())
	_, err := svc.ResolveBook(context.Background(), "", "")
	require.True(t, shelferrors.IsInvalidIdentifier(err))
}

func TestResolveCreator(t *testing.T) {
	svc, store := newService(t, catalogRoutes())

	draft, err := svc.ResolveCreator(context.Background(), "OL1A")
	require.NoError(t, err)
	require.Equal(t, "Joshua Bloch", draft.Name)
	require.Equal(t, "OL1A", draft.Identifiers.OpenLibrary)
	require.Empty(t, store.Creators(), "resolving does not persist")

	c, err := svc.AddCreator(context.Background(), "OL1A")
	require.NoError(t, err)
	require.Equal(t, "Joshua Bloch", c.Name)
	require.Len(t, store.Creators(), 1)
}

func TestReset_KeepsUserState(t *testing.T) {
	routes := catalogRoutes()
	svc, store := newService(t, routes)
	ctx := context.Background()

	wisher, reader := uuid.New(), uuid.New()
	b, err := svc.Lookup(ctx, javaISBN, wisher)
	require.NoError(t, err)

	seriesRef, err := store.CreateReference(ctx, catalog.ReferenceDraft{Kind: catalog.KindSeries, Name: "Java Series"})
	require.NoError(t, err)
	b.ReaderIDs = []uuid.UUID{reader}
	b.IsCollected = true
	b.Series = []catalog.SeriesEntry{{SeriesID: seriesRef.ID, Number: 7}}
	b.Title = "locally edited"
	_, err = store.ReplaceBook(ctx, *b)
	require.NoError(t, err)

	routes.JSON("/edition/OL7353617M.json", `{
		"key": "/books/OL7353617M",
		"title": "Effective Java",
		"subtitle": "Third Edition",
		"series": ["Java Series"],
		"works": [{"key": "/works/OL45804W"}],
		"isbn_13": ["9780134685991"]
	}`)

	reset, err := svc.Reset(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "Effective Java", reset.Title)
	require.Equal(t, "Third Edition", reset.Subtitle)
	require.Nil(t, reset.PublisherID)
	require.True(t, reset.IsCollected)
	require.Equal(t, []uuid.UUID{wisher}, reset.WisherIDs)
	require.Equal(t, []uuid.UUID{reader}, reset.ReaderIDs)
	require.Equal(t, []catalog.SeriesEntry{{SeriesID: seriesRef.ID, Number: 7}}, reset.Series)
	require.Equal(t, 1, routes.Hits("/edition/OL7353617M.json"), "reset resolves by the stored source id")
}

func TestLoadNewField(t *testing.T) {
	routes := catalogRoutes()
	svc, _ := newService(t, routes)
	ctx := context.Background()

	b, err := svc.Lookup(ctx, javaISBN, uuid.Nil)
	require.NoError(t, err)

	routes.JSON("/edition/OL7353617M.json", `{
		"key": "/books/OL7353617M",
		"title": "Changed upstream",
		"publish_date": "January 6, 2018",
		"number_of_pages": 999,
		"works": [{"key": "/works/OL45804W"}]
	}`)

	updated, err := svc.LoadNewField(ctx, b.ID, catalog.FieldPublishDate)
	require.NoError(t, err)
	require.Equal(t, 2018, updated.PublishDate.Year())
	require.Equal(t, "Effective Java", updated.Title)
	require.Equal(t, 412, updated.PageCount)
}

func TestRefreshAll_IsolatesFailures(t *testing.T) {
	routes := catalogRoutes()
	svc, _ := newService(t, routes)
	ctx := context.Background()

	java, err := svc.Lookup(ctx, javaISBN, uuid.Nil)
	require.NoError(t, err)
	puzzlers, err := svc.Lookup(ctx, puzzlersISBN, uuid.Nil)
	require.NoError(t, err)

	routes.Set("/edition/OL7353617M.json", testutil.Response{Status: http.StatusInternalServerError, Body: `{"error": "boom"}`})

	report, err := svc.RefreshAll(ctx, RefreshOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, report.Total)
	require.Equal(t, []uuid.UUID{puzzlers.ID}, report.Refreshed)
	require.Len(t, report.Failures, 1)
	require.Equal(t, java.ID, report.Failures[0].BookID)
	require.Contains(t, report.Failures[0].Reason, "boom")

	joined := report.Err()
	require.Error(t, joined)
	require.True(t, shelferrors.IsUpstreamError(joined))
}

func TestRefreshAll_LoadNewField(t *testing.T) {
	svc, _ := newService(t, catalogRoutes())
	ctx := context.Background()

	_, err := svc.Lookup(ctx, javaISBN, uuid.Nil)
	require.NoError(t, err)

	report, err := svc.RefreshAll(ctx, RefreshOptions{Field: catalog.FieldPageCount})
	require.NoError(t, err)
	require.Len(t, report.Refreshed, 1)
	require.NoError(t, report.Err())
}

func TestRefreshAll_StopsWhenCancelled(t *testing.T) {
	routes := catalogRoutes()
	svc, _ := newService(t, routes)

	_, err := svc.Lookup(context.Background(), javaISBN, uuid.Nil)
	require.NoError(t, err)
	_, err = svc.Lookup(context.Background(), puzzlersISBN, uuid.Nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.RefreshAll(ctx, RefreshOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, report.Skipped)
	require.Empty(t, report.Refreshed)
	require.Zero(t, routes.Hits("/edition/OL7353617M.json"))
}
