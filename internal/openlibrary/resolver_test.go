package openlibrary

import (
	"context"
	"net/http"
	"testing"
	"time"

	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/fetch"
	"github.com/lepinkainen/bookshelf/internal/testutil"
	"github.com/stretchr/testify/require"
)

const editionJSON = `{
	"key": "/books/OL7353617M",
	"title": "Effective Java",
	"subtitle": "Programming Language Guide",
	"description": {"type": "/type/text", "value": "  Best practices.  "},
	"physical_format": "Paperback",
	"publish_date": "Dec 27, 2017",
	"number_of_pages": 412,
	"publishers": ["Addison-Wesley; Pearson"],
	"series": ["Java Series"],
	"contributors": [{"name": "Duke", "role": "Illustrator"}, {"name": " ", "role": "Editor"}],
	"works": [{"key": "/works/OL45804W"}],
	"languages": [{"key": "/languages/eng"}],
	"covers": [-1, 8231856],
	"isbn_10": ["0134685997"],
	"isbn_13": ["9780134685991"],
	"identifiers": {"goodreads": ["34927404"], "google": ["ka2VUBqHiWkC"], "librarything": ["1147"]}
}`

const workJSON = `{
	"key": "/works/OL45804W",
	"title": "Effective Java",
	"description": "Work level description",
	"authors": [
		{"author": {"key": "/authors/OL1A"}, "type": {"key": "/type/author_role"}},
		{"author": {"key": "/authors/OL2A"}}
	],
	"subjects": ["Java (Computer program language)"]
}`

func newResolver(t *testing.T, routes *testutil.Routes) *Resolver {
	t.Helper()
	server := testutil.NewIPv4TestServer(t, routes)
	return NewResolver(fetch.NewClient(Name, fetch.WithBaseURL(server.URL)))
}

func TestLookupByISBN(t *testing.T) {
	routes := testutil.NewRoutes().
		JSON("/isbn/9780134685991.json", editionJSON).
		JSON("/work/OL45804W.json", workJSON)
	r := newResolver(t, routes)

	res, err := r.LookupByISBN(context.Background(), "0-13-468599-7")
	require.NoError(t, err)
	require.Equal(t, "9780134685991", res.ISBN)

	e := res.Edition
	require.Equal(t, Name, e.Source)
	require.Equal(t, "OL7353617M", e.ID)
	require.Equal(t, "Effective Java", e.Title)
	require.Equal(t, "Programming Language Guide", e.Subtitle)
	require.NotNil(t, e.Description)
	require.Equal(t, "Best practices.", *e.Description)
	require.Equal(t, "Paperback", e.PhysicalFormat)
	require.Equal(t, time.Date(2017, time.December, 27, 0, 0, 0, 0, time.UTC), *e.PublishDate)
	require.Equal(t, 412, e.PageCount)
	require.Equal(t, []string{"Addison-Wesley; Pearson"}, e.Publishers)
	require.Len(t, e.Contributors, 1)
	require.Equal(t, "Duke", e.Contributors[0].Name)
	require.Equal(t, "Illustrator", e.Contributors[0].Role)
	require.Equal(t, []string{"OL45804W"}, e.WorkIDs)
	require.Equal(t, []string{"eng"}, e.Languages)
	require.Equal(t, "https://covers.openlibrary.org/b/OLID/OL7353617M-L.jpg", e.CoverURL)
	require.Equal(t, "ka2VUBqHiWkC", e.Identifiers.GoogleBooks)
	require.Equal(t, "OL7353617M", e.Identifiers.OpenLibrary)
	require.Equal(t, []string{"34927404"}, e.Identifiers.Goodreads)

	w := res.Work
	require.Equal(t, "OL45804W", w.ID)
	require.Equal(t, "Work level description", *w.Description)
	require.Len(t, w.Creators, 2)
	require.Equal(t, "OL1A", w.Creators[0].ID)
	require.Equal(t, "OL2A", w.Creators[1].ID)
}

func TestLookupByISBN_InvalidIdentifier(t *testing.T) {
	routes := testutil.NewRoutes()
	r := newResolver(t, routes)

	_, err := r.LookupByISBN(context.Background(), "978013468599")
	require.True(t, shelferrors.IsInvalidIdentifier(err))
	require.Zero(t, routes.Total(), "invalid identifiers never reach the network")
}

func TestLookupByISBN_LegacyFallback(t *testing.T) {
	routes := testutil.NewRoutes().
		JSON("/api/books", `{"ISBN:9780306406157": {"key": "/books/OL1M", "title": "Legacy"}}`).
		JSON("/edition/OL1M.json", `{"key": "/books/OL1M", "title": "Legacy", "works": [{"key": "/works/OL9W"}]}`).
		JSON("/work/OL9W.json", `{"key": "/works/OL9W", "authors": []}`)
	r := newResolver(t, routes)

	res, err := r.LookupByISBN(context.Background(), "0306406152")
	require.NoError(t, err)
	require.Equal(t, "9780306406157", res.ISBN)
	require.Equal(t, "OL1M", res.Edition.ID)
	require.Equal(t, "OL9W", res.Work.ID)

	require.Equal(t, 1, routes.Hits("/isbn/9780306406157.json"))
	require.Equal(t, 1, routes.Hits("/api/books"))
}

func TestLookupByISBN_NotFound(t *testing.T) {
	routes := testutil.NewRoutes().JSON("/api/books", `{}`)
	r := newResolver(t, routes)

	_, err := r.LookupByISBN(context.Background(), "9780306406157")
	require.True(t, shelferrors.IsNotFound(err))
	require.Equal(t, http.StatusNotFound, shelferrors.HTTPStatus(err))
}

func TestLookupByID_MissingWorkIsNotFound(t *testing.T) {
	routes := testutil.NewRoutes().
		JSON("/edition/OL5M.json", `{"key": "/books/OL5M", "title": "Orphan", "isbn_10": ["0306406152"]}`)
	r := newResolver(t, routes)

	_, err := r.LookupByID(context.Background(), "OL5M")
	require.Error(t, err)
	require.True(t, shelferrors.IsNotFound(err))
	require.Contains(t, err.Error(), "OL5M")
}

func TestLookupByID_UsesEditionISBN(t *testing.T) {
	routes := testutil.NewRoutes().
		JSON("/edition/OL5M.json", `{"key": "/books/OL5M", "isbn_10": ["0306406152"], "works": [{"key": "/works/OL5W"}]}`).
		JSON("/work/OL5W.json", `{"key": "/works/OL5W"}`)
	r := newResolver(t, routes)

	res, err := r.LookupByID(context.Background(), "OL5M")
	require.NoError(t, err)
	require.Equal(t, "9780306406157", res.ISBN)
	require.Nil(t, res.Edition.PublishDate)
	require.Empty(t, res.Edition.CoverURL)
}

func TestLookup_MalformedDateFails(t *testing.T) {
	routes := testutil.NewRoutes().
		JSON("/edition/OL6M.json", `{"key": "/books/OL6M", "publish_date": "sometime in spring", "works": [{"key": "/works/OL6W"}]}`)
	r := newResolver(t, routes)

	_, err := r.LookupByID(context.Background(), "OL6M")
	require.True(t, shelferrors.IsDecodeError(err))
	require.Contains(t, err.Error(), "sometime in spring")
	require.Zero(t, routes.Hits("/work/OL6W.json"))
}

func TestLookupCreator(t *testing.T) {
	routes := testutil.NewRoutes().JSON("/author/OL1A.json", `{
		"key": "/authors/OL1A",
		"name": "Joshua Bloch",
		"bio": "Java architect.",
		"photos": [-1, 5543033],
		"remote_ids": {"goodreads": "60805", "librarything": "blochjoshua", "wikidata": "Q92602"}
	}`)
	r := newResolver(t, routes)

	for i := 0; i < 2; i++ {
		creator, err := r.LookupCreator(context.Background(), "OL1A")
		require.NoError(t, err)
		require.Equal(t, "Joshua Bloch", creator.Name)
		require.Equal(t, "Java architect.", *creator.Bio)
		require.Equal(t, 5543033, creator.PhotoID)
		require.Equal(t, "https://covers.openlibrary.org/a/id/5543033-L.jpg", creator.ImageURL)
		require.Equal(t, "OL1A", creator.Identifiers.OpenLibrary)
		require.Equal(t, "60805", creator.Identifiers.Goodreads)
		require.Equal(t, "Q92602", creator.Identifiers.Wikidata)
	}
	require.Equal(t, 2, routes.Hits("/author/OL1A.json"), "author lookups are fetched fresh")
}

func TestLookup_UpstreamFailurePropagates(t *testing.T) {
	routes := testutil.NewRoutes().
		JSON("/isbn/9780134685991.json", editionJSON).
		Set("/work/OL45804W.json", testutil.Response{Status: http.StatusBadGateway, Body: "bad gateway"})
	r := newResolver(t, routes)

	_, err := r.LookupByISBN(context.Background(), "9780134685991")
	require.True(t, shelferrors.IsUpstreamError(err))
	require.Equal(t, http.StatusInternalServerError, shelferrors.HTTPStatus(err))
}

func TestKeyID(t *testing.T) {
	require.Equal(t, "OL1A", Resource{Key: "/authors/OL1A"}.ID())
	require.Equal(t, "OL1A", Resource{Key: "OL1A"}.ID())
	require.Equal(t, "eng", Resource{Key: "/languages/eng/"}.ID())
	require.Empty(t, Resource{}.ID())
}
