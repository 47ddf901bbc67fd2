package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"
	"github.com/handiism/playlist-album/internal/model"
)

// writeAudioStub creates a file with opaque audio payload and no tag.
func writeAudioStub(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "01 - Song.mp3")
	payload := bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x64}, 256)
	if err := os.WriteFile(path, payload, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

var testCover = &model.CoverImage{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3, 0xFF, 0xD9}, Side: 1}

func TestTagger_Embed(t *testing.T) {
	path := writeAudioStub(t)

	if err := NewTagger().Embed(path, testCover, "Song Title", 3, "The Band", "Greatest Hits", "2021"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}

	if m.Title() != "Song Title" {
		t.Errorf("Title = %q", m.Title())
	}
	if m.Artist() != "The Band" {
		t.Errorf("Artist = %q", m.Artist())
	}
	if m.Album() != "Greatest Hits" {
		t.Errorf("Album = %q", m.Album())
	}
	if m.Year() != 2021 {
		t.Errorf("Year = %d", m.Year())
	}
	if n, _ := m.Track(); n != 3 {
		t.Errorf("Track = %d", n)
	}
	pic := m.Picture()
	if pic == nil || !bytes.Equal(pic.Data, testCover.Data) || pic.MIMEType != "image/jpeg" {
		t.Errorf("Picture = %+v", pic)
	}
}

func TestTagger_EmbedIsIdempotent(t *testing.T) {
	path := writeAudioStub(t)
	tagger := NewTagger()

	for i := 0; i < 2; i++ {
		if err := tagger.Embed(path, testCover, "Song", 1, "A", "B", "2000"); err != nil {
			t.Fatalf("Embed() #%d error = %v", i+1, err)
		}
	}

	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer id3.Close()

	for _, name := range []string{"Title/Songname/Content description", "Lead artist/Lead performer/Soloist/Performing group", "Album/Movie/Show title", "Year", frameTrackNumber, framePicture} {
		id := id3.CommonID(name)
		if got := len(id3.GetFrames(id)); got != 1 {
			t.Errorf("frame %s (%s) count = %d, want 1", id, name, got)
		}
	}

	trck, ok := id3.GetLastFrame(id3.CommonID(frameTrackNumber)).(id3v2.TextFrame)
	if !ok || trck.Text != "1" {
		t.Errorf("TRCK = %+v, want unpadded \"1\"", trck)
	}
}

func TestTagger_KeepsUnmanagedFrames(t *testing.T) {
	path := writeAudioStub(t)

	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	id3.SetGenre("Shoegaze")
	if err := id3.Save(); err != nil {
		t.Fatal(err)
	}
	id3.Close()

	if err := NewTagger().Embed(path, nil, "Song", 2, "A", "B", "1999"); err != nil {
		t.Fatal(err)
	}

	id3, err = id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer id3.Close()

	if id3.Genre() != "Shoegaze" {
		t.Errorf("Genre = %q, want kept", id3.Genre())
	}
	if id3.Title() != "Song" {
		t.Errorf("Title = %q", id3.Title())
	}
}

func TestTagger_EmbedErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		year string
	}{
		{"bad year", "unused.mp3", "99"},
		{"missing file", filepath.Join(t.TempDir(), "nope.mp3"), "2020"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewTagger().Embed(tt.path, testCover, "x", 1, "a", "b", tt.year); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTagger_EmbedTrackConcurrent(t *testing.T) {
	path := writeAudioStub(t)
	album := &model.Album{AlbumMetadata: model.AlbumMetadata{Title: "Album", Artist: "Artist", Year: "2010"}}
	track := &model.Track{Album: album, Number: 5, Title: "Five", Path: path}

	tagger := NewTagger()
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- tagger.EmbedTrack(track, testCover)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("EmbedTrack() error = %v", err)
		}
	}

	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer id3.Close()
	if got := len(id3.GetFrames(id3.CommonID(framePicture))); got != 1 {
		t.Errorf("picture frames = %d, want 1", got)
	}
}

func TestTagger_EmbedTrackWithoutPath(t *testing.T) {
	track := &model.Track{Album: &model.Album{}, Number: 1}
	if err := NewTagger().EmbedTrack(track, testCover); err == nil {
		t.Error("expected error for uncommitted track")
	}
}
