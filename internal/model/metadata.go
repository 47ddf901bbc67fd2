package model

// AlbumMetadata is the album-level tag data shared read-only by all tracks.
type AlbumMetadata struct {
	Title  string
	Artist string
	Year   string
}

// CoverImage is the square JPEG cover embedded into every track of a run.
type CoverImage struct {
	// Data is the JPEG encoding.
	Data []byte

	// Side is the edge length in pixels.
	Side int

	// Source is the URL the image was fetched from.
	Source string
}

// MimeType is always image/jpeg; covers are re-encoded before use.
func (c *CoverImage) MimeType() string {
	return "image/jpeg"
}

// IsYear reports whether s is exactly four ASCII digits.
func IsYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
