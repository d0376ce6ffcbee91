package book

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestText_UnmarshalJSON(t *testing.T) {
	var doc struct {
		Plain   *Text `json:"plain"`
		Typed   *Text `json:"typed"`
		Missing *Text `json:"missing"`
		Null    *Text `json:"null"`
	}
	err := json.Unmarshal([]byte(`{
		"plain": "  A novel. ",
		"typed": {"type": "/type/text", "value": "A typed novel."},
		"null": null
	}`), &doc)
	assert.NoError(t, err)

	assert.Equal(t, TextPlain, doc.Plain.Kind)
	assert.Equal(t, "A novel.", *doc.Plain.Normalize())

	assert.Equal(t, TextTyped, doc.Typed.Kind)
	assert.Equal(t, "/type/text", doc.Typed.Type)
	assert.Equal(t, "A typed novel.", *doc.Typed.Normalize())

	assert.Zero(t, doc.Missing.Normalize())
	assert.Zero(t, doc.Null.Normalize())
}

func TestText_RejectsOtherShapes(t *testing.T) {
	var txt Text
	err := json.Unmarshal([]byte(`42`), &txt)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected string or {type,value} object")
}

func TestText_MarshalRoundTrip(t *testing.T) {
	for _, raw := range []string{`"plain"`, `{"type":"/type/text","value":"typed"}`} {
		var txt Text
		assert.NoError(t, json.Unmarshal([]byte(raw), &txt))
		out, err := json.Marshal(txt)
		assert.NoError(t, err)
		assert.Equal(t, raw, string(out))
	}
}

func TestParseDate_OpenLibrary(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2018-01-06", time.Date(2018, 1, 6, 0, 0, 0, 0, time.UTC)},
		{"2018", time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"Sep, 1999", time.Date(1999, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"1999-Sep-15", time.Date(1999, 9, 15, 0, 0, 0, 0, time.UTC)},
		{"Sep 5, 1999", time.Date(1999, 9, 5, 0, 0, 0, 0, time.UTC)},
		{"Dec 27, 2017", time.Date(2017, 12, 27, 0, 0, 0, 0, time.UTC)},
		{"September 15, 1999", time.Date(1999, 9, 15, 0, 0, 0, 0, time.UTC)},
		{"September 1999", time.Date(1999, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"15 Sep 1999", time.Date(1999, 9, 15, 0, 0, 0, 0, time.UTC)},
		{"15 September 1999", time.Date(1999, 9, 15, 0, 0, 0, 0, time.UTC)},
		{"15/09/1999", time.Date(1999, 9, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDate(tt.raw, OpenLibraryDateLayouts...)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_FailsLoudly(t *testing.T) {
	_, err := ParseDate("sometime in the eighties", OpenLibraryDateLayouts...)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unrecognised date "sometime in the eighties"`)
	// The ISO parse error is the one surfaced.
	assert.Contains(t, err.Error(), `cannot parse`)

	// Google layouts do not include the Open Library long forms.
	_, err = ParseDate("September 1999", GoogleBooksDateLayouts...)
	assert.Error(t, err)

	got, err := ParseDate("2004-07", GoogleBooksDateLayouts...)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2004, 7, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestPrimaryISBN(t *testing.T) {
	e := &ExternalEdition{Identifiers: Identifiers{
		ISBN13: []string{"bogus"},
		ISBN10: []string{"0-13-468599-7"},
	}}
	assert.Equal(t, "9780134685991", e.PrimaryISBN())

	assert.Equal(t, "", (&ExternalEdition{}).PrimaryISBN())
	assert.Equal(t, "b", First("", "b", "c"))
}
