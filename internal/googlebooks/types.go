package googlebooks

// VolumesResponse matches /volumes?q=... search results.
type VolumesResponse struct {
	Kind       string   `json:"kind"`
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Volume matches /volumes/{id} and the items of a search.
type Volume struct {
	ID         string     `json:"id"`
	Etag       string     `json:"etag"`
	SelfLink   string     `json:"selfLink"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// IndustryIdentifier is one typed identifier ("ISBN_10", "ISBN_13", "OTHER").
type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// ImageLinks are the sized cover images for a volume.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
	Small          string `json:"small"`
	Medium         string `json:"medium"`
	Large          string `json:"large"`
	ExtraLarge     string `json:"extraLarge"`
}

// VolumeSeries places a volume in a series by id.
type VolumeSeries struct {
	SeriesID       string `json:"seriesId"`
	SeriesBookType string `json:"seriesBookType"`
	OrderNumber    int    `json:"orderNumber"`
}

// SeriesInfo is present on volumes Google groups into a series.
type SeriesInfo struct {
	Kind              string         `json:"kind"`
	BookDisplayNumber string         `json:"bookDisplayNumber"`
	VolumeSeries      []VolumeSeries `json:"volumeSeries"`
}

// VolumeInfo holds the bibliographic part of a volume.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Subtitle            string               `json:"subtitle"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
	PageCount           int                  `json:"pageCount"`
	PrintedPageCount    int                  `json:"printedPageCount"`
	PrintType           string               `json:"printType"`
	Categories          []string             `json:"categories"`
	ImageLinks          *ImageLinks          `json:"imageLinks"`
	Language            string               `json:"language"`
	SeriesInfo          *SeriesInfo          `json:"seriesInfo"`
}

// Identifiers returns the identifiers of kind ("ISBN_13").
func (v *VolumeInfo) Identifiers(kind string) []string {
	var out []string
	for _, id := range v.IndustryIdentifiers {
		if id.Type == kind && id.Identifier != "" {
			out = append(out, id.Identifier)
		}
	}
	return out
}
