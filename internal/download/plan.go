package download

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/handiism/playlist-album/internal/model"
	"github.com/handiism/playlist-album/internal/title"
)

// CoverChoice selects the album cover source. URL wins when set; otherwise
// TrackIndex is the 1-based track whose thumbnail is used.
type CoverChoice struct {
	TrackIndex int
	URL        string
}

// ParseCoverChoice reads a typed cover answer: an http(s) URL, a 1-based
// track number, or empty for track 1. Anything else becomes index -1 so
// Plan falls back to track 1 with a warning.
func ParseCoverChoice(value string) CoverChoice {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return CoverChoice{TrackIndex: 1}
	case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
		return CoverChoice{URL: value}
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return CoverChoice{TrackIndex: -1}
	}
	return CoverChoice{TrackIndex: n}
}

// Answers are the operator's overrides. Empty fields keep the defaults
// derived from the playlist.
type Answers struct {
	Artist     string
	Year       string
	AlbumTitle string

	// Renames maps 1-based track numbers to replacement display titles.
	Renames map[int]string

	Cover CoverChoice
}

// Plan is a fully decided run: album metadata, output paths, display titles
// and the cover source. Nothing has touched the filesystem yet.
type Plan struct {
	Playlist *model.Playlist
	Album    *model.Album
	Cover    CoverChoice
}

// DefaultTitles returns the display title each entry gets before renames, in
// sorted playlist order. Shells use it to show what is about to be written.
func (p *Pipeline) DefaultTitles(playlist *model.Playlist) []string {
	entries := sortedEntries(playlist)
	titles := make([]string, len(entries))
	for i, ref := range entries {
		titles[i] = title.Display(ref.SourceTitle, p.opts.NormalizeTitles, fmt.Sprintf("Track %d", i+1))
	}
	return titles
}

// DefaultMetadata returns the album metadata used when answers are empty.
func (p *Pipeline) DefaultMetadata(playlist *model.Playlist) model.AlbumMetadata {
	return playlist.DefaultAlbumMetadata(p.opts.Now())
}

// Plan applies answers to playlist.
//
// Tracks are numbered 1..N in ascending playlist index. A year that is not
// four digits or a rename of a track number outside 1..N is rejected with a
// *UserInputError. An out-of-range cover index is not an error: the first
// track is used and a warning is emitted.
func (p *Pipeline) Plan(playlist *model.Playlist, answers Answers) (*Plan, error) {
	entries := sortedEntries(playlist)
	if len(entries) == 0 {
		return nil, &UserInputError{Field: "playlist", Message: "no tracks to download"}
	}

	meta := p.DefaultMetadata(playlist)
	if v := strings.TrimSpace(answers.Artist); v != "" {
		meta.Artist = v
	}
	if v := strings.TrimSpace(answers.AlbumTitle); v != "" {
		meta.Title = v
	}
	if v := strings.TrimSpace(answers.Year); v != "" {
		if !model.IsYear(v) {
			return nil, &UserInputError{Field: "year", Message: fmt.Sprintf("%q is not a 4-digit year", v)}
		}
		meta.Year = v
	}

	numbers := make([]int, 0, len(answers.Renames))
	for n := range answers.Renames {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		if n < 1 || n > len(entries) {
			return nil, &UserInputError{Field: "track number", Message: fmt.Sprintf("%d is outside 1..%d", n, len(entries))}
		}
	}

	album := model.NewAlbum(meta, p.opts.PathConfig)
	titles := p.DefaultTitles(playlist)
	for i, ref := range entries {
		number := i + 1
		display := titles[i]
		if v := strings.TrimSpace(answers.Renames[number]); v != "" {
			display = v
		}
		album.Tracks = append(album.Tracks, model.NewTrack(album, number, ref, display, p.opts.TrackConfig))
	}

	choice := answers.Cover
	choice.URL = strings.TrimSpace(choice.URL)
	if choice.URL == "" && (choice.TrackIndex < 1 || choice.TrackIndex > len(album.Tracks)) {
		if choice.TrackIndex != 0 {
			p.progress(ProgressEvent{Message: fmt.Sprintf("Invalid cover selection %d, using track 1", choice.TrackIndex), Level: LevelWarning})
		}
		choice.TrackIndex = 1
	}

	return &Plan{Playlist: playlist, Album: album, Cover: choice}, nil
}

// sortedEntries returns a sorted copy so the resolved playlist stays
// untouched.
func sortedEntries(playlist *model.Playlist) []*model.TrackRef {
	entries := make([]*model.TrackRef, len(playlist.Entries))
	copy(entries, playlist.Entries)
	model.SortEntries(entries)
	return entries
}
