package pms

// Plex Media Server REST models, JSON shapes (Accept: application/json).
// Only the photo-browsing subset: sections, folder listings, photo metadata.

// mediaContainerResponse
type mediaContainerResponse struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

// MediaContainer wraps every PMS listing response.
type MediaContainer struct {
	Size                int         `json:"size"`
	TotalSize           int         `json:"totalSize,omitempty"`
	Offset              int         `json:"offset,omitempty"`
	Title1              string      `json:"title1,omitempty"`
	Title2              string      `json:"title2,omitempty"`
	Identifier          string      `json:"identifier,omitempty"`
	LibrarySectionID    int         `json:"librarySectionID,omitempty"`
	LibrarySectionTitle string      `json:"librarySectionTitle,omitempty"`
	MachineIdentifier   string      `json:"machineIdentifier,omitempty"`
	Version             string      `json:"version,omitempty"`
	Directory           []Directory `json:"Directory,omitempty"`
	Metadata            []Metadata  `json:"Metadata,omitempty"`
}

// Directory is a library section or a browsable folder inside one.
type Directory struct {
	Key       string `json:"key"`
	UUID      string `json:"uuid,omitempty"`
	Title     string `json:"title"`
	Type      string `json:"type,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Scanner   string `json:"scanner,omitempty"`
	Language  string `json:"language,omitempty"`
	Thumb     string `json:"thumb,omitempty"`
	Art       string `json:"art,omitempty"`
	Composite string `json:"composite,omitempty"`
	Hidden    int    `json:"hidden,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
	ScannedAt int64  `json:"scannedAt,omitempty"`
}

// IsPhoto returns true for photo library sections.
func (d *Directory) IsPhoto() bool {
	return d.Type == "photo"
}

// Metadata is one photo (or clip) in a listing.
type Metadata struct {
	RatingKey             string  `json:"ratingKey"`
	Key                   string  `json:"key"`
	GUID                  string  `json:"guid,omitempty"`
	Type                  string  `json:"type"`
	Title                 string  `json:"title"`
	TitleSort             string  `json:"titleSort,omitempty"`
	Summary               string  `json:"summary,omitempty"`
	Thumb                 string  `json:"thumb,omitempty"`
	Art                   string  `json:"art,omitempty"`
	UserRating            float64 `json:"userRating,omitempty"`
	Year                  int     `json:"year,omitempty"`
	OriginallyAvailableAt string  `json:"originallyAvailableAt,omitempty"`
	AddedAt               int64   `json:"addedAt,omitempty"`
	UpdatedAt             int64   `json:"updatedAt,omitempty"`
	Media                 []Media `json:"Media,omitempty"`
}

// Media is one stored version of a photo.
type Media struct {
	ID          int     `json:"id"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	AspectRatio float64 `json:"aspectRatio,omitempty"`
	Container   string  `json:"container,omitempty"`
	Part        []Part  `json:"Part,omitempty"`
}

// Part is the downloadable file behind a media version.
type Part struct {
	ID        int    `json:"id"`
	Key       string `json:"key,omitempty"`
	File      string `json:"file,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Container string `json:"container,omitempty"`
}

// OriginalPart picks the first downloadable part of a photo, if any.
func (m *Metadata) OriginalPart() (Part, bool) {
	for _, media := range m.Media {
		if len(media.Part) > 0 {
			return media.Part[0], true
		}
	}
	return Part{}, false
}
