package audio

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/bogem/id3v2"
	"github.com/handiism/playlist-album/internal/model"
)

// Frame names as known to id3v2's CommonID table.
const (
	frameTrackNumber = "Track number/Position in set"
	framePicture     = "Attached picture"
)

// Tagger writes the managed ID3 frame set into finished audio files.
//
// Managed frames are title (TIT2), artist (TPE1), album (TALB), year
// (TDRC for ID3v2.4, TYER for ID3v2.3), track number (TRCK) and one front
// cover picture (APIC). Any other frame already present in the file is left
// untouched. Embedding is idempotent: text frames are replaced and the
// picture frames are cleared before the cover is added, so repeated calls
// never duplicate frames.
//
// Example:
//
//	tagger := NewTagger()
//	err := tagger.Embed(track.Path, cover, "Song", 1, "Artist", "Album", "2024")
type Tagger struct {
	mu    sync.Mutex
	files map[string]*sync.Mutex
}

// NewTagger creates a new Tagger.
func NewTagger() *Tagger {
	return &Tagger{files: make(map[string]*sync.Mutex)}
}

// Embed writes the managed frames into the file at path in place.
//
// An existing tag is reused; a tag is created only when the file has none.
// The track number is written as a plain decimal. Writes to the same path
// are serialized.
func (t *Tagger) Embed(path string, cover *model.CoverImage, title string, trackNumber int, artist, album, year string) error {
	if !model.IsYear(year) {
		return fmt.Errorf("invalid year %q: want 4 digits", year)
	}

	lock := t.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tag: %w", err)
	}
	defer tag.Close()

	tag.SetTitle(title)
	tag.SetArtist(artist)
	tag.SetAlbum(album)
	tag.SetYear(year)
	tag.AddTextFrame(tag.CommonID(frameTrackNumber), tag.DefaultEncoding(), strconv.Itoa(trackNumber))

	if cover != nil && len(cover.Data) > 0 {
		tag.DeleteFrames(tag.CommonID(framePicture))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    tag.DefaultEncoding(),
			MimeType:    cover.MimeType(),
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     cover.Data,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	return nil
}

// EmbedTrack embeds the tags of a committed track: its display title,
// number and the album metadata.
func (t *Tagger) EmbedTrack(track *model.Track, cover *model.CoverImage) error {
	if track.Path == "" {
		return fmt.Errorf("track %d has no committed file", track.Number)
	}
	album := track.Album
	return t.Embed(track.Path, cover, track.Title, track.Number, album.Artist, album.Title, album.Year)
}

func (t *Tagger) lockFor(path string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.files[path]
	if !ok {
		lock = &sync.Mutex{}
		t.files[path] = lock
	}
	return lock
}
