package model

import (
	"fmt"
	"path/filepath"
	"strings"

	ioutils "github.com/handiism/playlist-album/internal/io"
)

// Track is one planned output file of an album.
//
// Track carries:
//   - Number, the 1-based position in sorted playlist order
//   - Title, the display title written to the tag
//   - FileBase, the sanitized file name without extension
//   - Path, the committed file path once the download finished
//
// Example:
//
//	cfg := &TrackConfig{FileNameFormat: "{tracknum} - {title}"}
//	track := NewTrack(album, 1, ref, "Song Title", cfg)
//	// track.FileBase = "01 - Song Title"
//	// track.OutputTemplate() = "Downloads/Album/01 - Song Title.%(ext)s"
type Track struct {
	// Album is a reference to the parent album.
	Album *Album

	// Ref is the playlist entry this track is produced from.
	Ref *TrackRef

	// Number is the track number (1-indexed).
	Number int

	// Title is the display title used for tags.
	Title string

	// Duration is the track length in seconds (0 when unknown).
	Duration float64

	// FileBase is the sanitized file name, without directory or extension.
	FileBase string

	// Path is the final file path. It is empty until the download commits,
	// because the extension is decided by the transcoder.
	Path string
}

// TrackConfig holds track path formatting settings.
//
// The FileNameFormat supports placeholders that are replaced with actual values:
//   - {tracknum} - Track number (2 digits, zero-padded)
//   - {title} - Track title
//   - {artist} - Artist name (from album)
//   - {album} - Album title
//   - {year} - Album year
//
// The format must not carry an extension.
type TrackConfig struct {
	// FileNameFormat is the template for track filenames.
	FileNameFormat string

	// SanitizeMode is the filename policy applied to the expanded name.
	SanitizeMode ioutils.SanitizeMode
}

// NewTrack creates a new Track with a computed file base name.
func NewTrack(album *Album, number int, ref *TrackRef, title string, cfg *TrackConfig) *Track {
	track := &Track{
		Album:  album,
		Ref:    ref,
		Number: number,
		Title:  title,
	}
	if ref != nil {
		track.Duration = ref.Duration
	}

	track.FileBase = track.parseFileBase(cfg)

	return track
}

// OutputTemplate is the destination handed to the downloader: the album path
// and file base followed by a placeholder the transcoder fills with the
// negotiated extension.
func (t *Track) OutputTemplate() string {
	return filepath.Join(t.Album.Path, t.FileBase) + ".%(ext)s"
}

// Locator returns the stream locator of the underlying playlist entry.
func (t *Track) Locator() string {
	if t.Ref == nil {
		return ""
	}
	return t.Ref.Locator
}

// parseFileBase computes the file name (without extension) from the config template.
func (t *Track) parseFileBase(cfg *TrackConfig) string {
	format := cfg.FileNameFormat
	if format == "" {
		format = "{tracknum} - {title}"
	}

	fileName := strings.NewReplacer(
		"{year}", t.Album.Year,
		"{album}", t.Album.Title,
		"{artist}", t.Album.Artist,
		"{title}", t.Title,
		"{tracknum}", fmt.Sprintf("%02d", t.Number),
	).Replace(format)

	fileName = ioutils.SanitizeFileName(fileName, cfg.SanitizeMode)
	if fileName == "" {
		fileName = fmt.Sprintf("%02d", t.Number)
	}

	// Leave room for ".%(ext)s" style extensions such as ".opus"
	return fitFileName(t.Album.Path, fileName, 5)
}
