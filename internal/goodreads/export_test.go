package goodreads

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/testutil"
)

const export = `Book Id,Title,Author,Author l-f,Additional Authors,ISBN,ISBN13,My Rating,Average Rating,Publisher,Binding,Number of Pages,Year Published,Original Publication Year,Date Read,Date Added,Bookshelves,Bookshelves with positions,Exclusive Shelf,My Review,Spoiler,Private Notes,Read Count,Owned Copies
34076952,Effective Java,Joshua Bloch,"Bloch, Joshua",,"=""0134685997""","=""9780134685991""",5,4.5,Addison-Wesley,Paperback,412,2017,2001,,2024/01/02,,,read,,,,1,1
1,Java Puzzlers,Joshua Bloch,"Bloch, Joshua",Neal Gafter,"=""032133678X""","=""""",0,4.1,Addison-Wesley,Paperback,282,2005,2005,,2024/01/03,,,to-read,,,,0,0
2,No Identifier,Anonymous,,,"=""""","=""""",0,0,,,0,,,,2024/01/04,,,to-read,,,,0,0
`

func TestRead(t *testing.T) {
	entries, err := Read(strings.NewReader(export))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(entries))

	assert.Equal(t, Entry{
		Line:   2,
		BookID: "34076952",
		Title:  "Effective Java",
		Author: "Joshua Bloch",
		ISBN:   "9780134685991",
		Shelf:  "read",
		Owned:  true,
	}, entries[0])

	assert.Equal(t, "9780321336781", entries[1].ISBN, "ISBN-10 is used when ISBN13 is empty")
	assert.Equal(t, ShelfToRead, entries[1].Shelf)
	assert.False(t, entries[1].Owned)
}

func TestReadFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFile("goodreads_library_export.csv", []byte(export))

	entries, err := ReadFile(env.Path("goodreads_library_export.csv"))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(entries))
}

func TestRead_NotAnExport(t *testing.T) {
	_, err := Read(strings.NewReader("name,city\nAlice,NYC\n"))
	assert.Error(t, err)
}

func TestEntryRequest(t *testing.T) {
	wisher := uuid.New()

	owned := Entry{ISBN: "9780134685991", Shelf: ShelfToRead, Owned: true}.Request(wisher)
	assert.True(t, owned.Collected)
	assert.Equal(t, uuid.Nil, owned.WisherID)

	wanted := Entry{ISBN: "9780321336781", Shelf: ShelfToRead}.Request(wisher)
	assert.False(t, wanted.Collected)
	assert.Equal(t, wisher, wanted.WisherID)

	read := Entry{ISBN: "9780321336781", Shelf: "read"}.Request(wisher)
	assert.Equal(t, uuid.Nil, read.WisherID)
	assert.Equal(t, "9780321336781", read.ISBN)
}
