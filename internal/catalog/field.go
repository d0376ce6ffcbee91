package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// Field is a provider-derived book field that can be back-filled on its own.
type Field string

const (
	FieldPublishDate Field = "publish_date"
	FieldPageCount   Field = "page_count"
	FieldDescription Field = "description"
	FieldImageURL    Field = "image_url"
	FieldSubtitle    Field = "subtitle"
	FieldFormat      Field = "format"
	FieldGenres      Field = "genres"
)

// DefaultField is the field back-filled when none is named.
const DefaultField = FieldPublishDate

// Fields lists every field LoadNewField accepts.
var Fields = []Field{
	FieldPublishDate,
	FieldPageCount,
	FieldDescription,
	FieldImageURL,
	FieldSubtitle,
	FieldFormat,
	FieldGenres,
}

// ParseField parses s, which may use "-" in place of "_". An empty string is
// DefaultField.
func ParseField(s string) (Field, error) {
	s = strings.ReplaceAll(strings.TrimSpace(strings.ToLower(s)), "-", "_")
	if s == "" {
		return DefaultField, nil
	}
	f := Field(s)
	if !slices.Contains(Fields, f) {
		return "", fmt.Errorf("unknown field %q (valid: %s)", s, fieldNames())
	}
	return f, nil
}

func fieldNames() string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// copyField sets field on dst from src.
func copyField(dst *BookDraft, src BookDraft, field Field) error {
	src = src.Clone()
	switch field {
	case FieldPublishDate:
		dst.PublishDate = src.PublishDate
	case FieldPageCount:
		dst.PageCount = src.PageCount
	case FieldDescription:
		dst.Description = src.Description
	case FieldImageURL:
		dst.ImageURL = src.ImageURL
	case FieldSubtitle:
		dst.Subtitle = src.Subtitle
	case FieldFormat:
		dst.FormatID = src.FormatID
	case FieldGenres:
		dst.GenreIDs = src.GenreIDs
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}
