package model

import (
	"sort"
	"strings"
	"time"
)

// Fallback values used when the source leaves a field empty.
const (
	UnknownAlbum  = "Unknown Album"
	UnknownArtist = "Unknown Artist"
)

// Playlist is the ordered metadata of a remote playlist (or of a single item
// promoted to a one-entry playlist).
//
// A Playlist is built once per run by the resolver and not mutated afterwards;
// per-track display titles live on Track, not here.
type Playlist struct {
	// ID is the service identifier of the playlist or item.
	ID string

	// URL is the address the playlist was resolved from.
	URL string

	// Title is the playlist title, used as the default album title.
	Title string

	// Uploader is the playlist owner, used as the default artist.
	Uploader string

	// UploadDate is the YYYYMMDD date reported by the service (may be empty).
	UploadDate string

	// Entries are sorted by ascending PlaylistIndex.
	Entries []*TrackRef

	// Single is true when the URL pointed at one item rather than a collection.
	Single bool
}

// TrackRef references one entry of a playlist.
type TrackRef struct {
	// SourceTitle is the raw title as published by the source.
	SourceTitle string

	// Locator is an opaque reference resolvable to a stream (usually a URL).
	Locator string

	// PlaylistIndex is the 1-based position in the source playlist and the
	// sort key for output numbering.
	PlaylistIndex int

	// Duration is the entry length in seconds, 0 when unknown.
	Duration float64
}

// Thumbnail is one cover candidate published for an item.
type Thumbnail struct {
	URL    string
	Width  int
	Height int
}

// Area returns Width*Height, or 0 when the service did not report dimensions.
func (t Thumbnail) Area() int {
	if t.Width <= 0 || t.Height <= 0 {
		return 0
	}
	return t.Width * t.Height
}

// Item is the full metadata of a single playlist entry.
type Item struct {
	ID         string
	Title      string
	Locator    string
	Duration   float64
	Thumbnails []Thumbnail
}

// SortEntries orders entries by ascending PlaylistIndex.
//
// The sort is stable, so entries sharing an index keep their source order and
// sorting an already sorted slice is a no-op.
func SortEntries(entries []*TrackRef) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PlaylistIndex < entries[j].PlaylistIndex
	})
}

// DefaultAlbumMetadata derives album title, artist and year from the playlist.
//
// The year is the first four characters of UploadDate; when the service did
// not report a usable date the year of now is used.
func (p *Playlist) DefaultAlbumMetadata(now time.Time) AlbumMetadata {
	meta := AlbumMetadata{
		Title:  strings.TrimSpace(p.Title),
		Artist: strings.TrimSpace(p.Uploader),
		Year:   now.Format("2006"),
	}
	if meta.Title == "" {
		meta.Title = UnknownAlbum
	}
	if meta.Artist == "" {
		meta.Artist = UnknownArtist
	}
	if len(p.UploadDate) >= 4 && IsYear(p.UploadDate[:4]) {
		meta.Year = p.UploadDate[:4]
	}
	return meta
}
