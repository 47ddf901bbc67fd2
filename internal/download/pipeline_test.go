package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dhowden/tag"
	"github.com/gofrs/flock"
	"github.com/handiism/playlist-album/internal/audio"
	ioutils "github.com/handiism/playlist-album/internal/io"
	"github.com/handiism/playlist-album/internal/model"
	"github.com/handiism/playlist-album/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	playlist *model.Playlist
	items    map[string]*model.Item
	fetched  []string
}

func (f *fakeResolver) ResolvePlaylist(context.Context, string) (*model.Playlist, error) {
	if f.playlist == nil {
		return nil, &source.MetadataFetchError{URL: "u", Message: "fetch playlist", Original: errors.New("offline")}
	}
	return f.playlist, nil
}

func (f *fakeResolver) FetchItem(_ context.Context, locator string) (*model.Item, error) {
	f.fetched = append(f.fetched, locator)
	item, ok := f.items[locator]
	if !ok {
		return nil, &source.MetadataFetchError{URL: locator, Message: "fetch item"}
	}
	return item, nil
}

// fakeDownloader writes an untagged audio stub, or leaves a partial file and
// fails for locators in failing.
type fakeDownloader struct {
	failing map[string]bool
	mu      sync.Mutex
	calls   []string
}

func (f *fakeDownloader) Download(_ context.Context, locator, outputTemplate string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, locator)
	f.mu.Unlock()

	base := strings.TrimSuffix(outputTemplate, ".%(ext)s")
	if f.failing[locator] {
		os.WriteFile(base+".webm.part", []byte("partial"), 0644)
		return "", &source.DownloadError{Locator: locator, Message: "fetch audio", Original: errors.New("HTTP Error 403")}
	}

	path := base + ".mp3"
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x64}, 64), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeCover encodes the source URL as the cover bytes.
type fakeCover struct {
	badURL string
}

func (f *fakeCover) FromThumbnails(ctx context.Context, candidates []model.Thumbnail) (*model.CoverImage, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no thumbnail candidates")
	}
	return f.FromURL(ctx, candidates[len(candidates)-1].URL)
}

func (f *fakeCover) FromURL(_ context.Context, url string) (*model.CoverImage, error) {
	if url == f.badURL {
		return nil, errors.New("HTTP 404")
	}
	return &model.CoverImage{Data: []byte("\xFF\xD8jpeg:" + url), Side: 1, Source: url}, nil
}

type harness struct {
	pipeline   *Pipeline
	resolver   *fakeResolver
	downloader *fakeDownloader
	events     []ProgressEvent
	dir        string
}

func newHarness(t *testing.T, entries int) *harness {
	t.Helper()

	h := &harness{dir: t.TempDir()}
	playlist := &model.Playlist{Title: "Road Trip", Uploader: "Various", UploadDate: "20200101"}
	items := map[string]*model.Item{}
	// Reverse source order: numbering must follow playlist index.
	for i := entries; i >= 1; i-- {
		loc := fmt.Sprintf("https://v/%d", i)
		playlist.Entries = append(playlist.Entries, &model.TrackRef{
			SourceTitle:   fmt.Sprintf("Artist - Song %d (Official Video)", i),
			Locator:       loc,
			PlaylistIndex: i,
			Duration:      float64(100 + i),
		})
		items[loc] = &model.Item{Locator: loc, Thumbnails: []model.Thumbnail{{URL: fmt.Sprintf("https://img/%d/small.jpg", i)}, {URL: fmt.Sprintf("https://img/%d/large.jpg", i)}}}
	}

	h.resolver = &fakeResolver{playlist: playlist, items: items}
	h.downloader = &fakeDownloader{failing: map[string]bool{}}
	h.pipeline = NewPipeline(Dependencies{
		Resolver:   h.resolver,
		Downloader: h.downloader,
		Cover:      &fakeCover{badURL: "https://broken/cover.jpg"},
		Tagger:     audio.NewTagger(),
		Playlist:   audio.NewPlaylistCreator(model.PlaylistFormatM3U, false),
	}, Options{
		PathConfig: &model.PathConfig{
			DownloadsPath:          filepath.Join(h.dir, "{album}"),
			PlaylistFileNameFormat: "{album}",
			SanitizeMode:           ioutils.SanitizeStrip,
		},
		TrackConfig:     &model.TrackConfig{FileNameFormat: "{tracknum} - {title}"},
		NormalizeTitles: true,
		Now:             func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}, func(e ProgressEvent) { h.events = append(h.events, e) })

	return h
}

func (h *harness) audioFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".mp3" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func readTags(t *testing.T, path string) tag.Metadata {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	m, err := tag.ReadFrom(f)
	require.NoError(t, err)
	return m
}

func TestPipeline_ThreeTracks(t *testing.T) {
	h := newHarness(t, 3)

	report, err := h.pipeline.Process(context.Background(), "https://list", Answers{Cover: CoverChoice{TrackIndex: 2}})
	require.NoError(t, err)
	require.True(t, report.Complete())

	albumDir := filepath.Join(h.dir, "Road Trip")
	assert.Equal(t, []string{"01 - Song 1.mp3", "02 - Song 2.mp3", "03 - Song 3.mp3"}, h.audioFiles(t, albumDir))

	var covers [][]byte
	for i, track := range report.Succeeded {
		m := readTags(t, track.Path)
		n, _ := m.Track()
		assert.Equal(t, i+1, n)
		assert.Equal(t, fmt.Sprintf("Song %d", i+1), m.Title())
		assert.Equal(t, "Various", m.Artist())
		assert.Equal(t, "Road Trip", m.Album())
		assert.Equal(t, 2020, m.Year())
		require.NotNil(t, m.Picture())
		require.NotEmpty(t, m.Picture().Data)
		covers = append(covers, m.Picture().Data)
	}
	assert.Equal(t, covers[0], covers[1])
	assert.Equal(t, covers[0], covers[2])
	assert.Contains(t, string(covers[0]), "https://img/2/large.jpg")

	assert.Equal(t, []string{"https://v/2"}, h.resolver.fetched, "cover is acquired once")
	assert.Equal(t, []string{"https://v/1", "https://v/2", "https://v/3"}, h.downloader.calls)

	_, err = os.Stat(filepath.Join(albumDir, LockFileName))
	assert.True(t, os.IsNotExist(err), "lock file should be removed")

	playlist, err := os.ReadFile(report.PlaylistPath)
	require.NoError(t, err)
	assert.Equal(t, "01 - Song 1.mp3\n02 - Song 2.mp3\n03 - Song 3.mp3\n", string(playlist))
}

func TestPipeline_FailedTrackDoesNotAbortRun(t *testing.T) {
	h := newHarness(t, 3)
	h.downloader.failing["https://v/2"] = true

	report, err := h.pipeline.Process(context.Background(), "https://list", Answers{})
	require.NoError(t, err)

	albumDir := filepath.Join(h.dir, "Road Trip")
	entries, err := os.ReadDir(albumDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "02 - "), "leftover %s", e.Name())
	}
	assert.Equal(t, []string{"01 - Song 1.mp3", "03 - Song 3.mp3"}, h.audioFiles(t, albumDir))

	require.Len(t, report.Succeeded, 2)
	require.Len(t, report.Failed, 1)
	failure := report.Failed[0]
	assert.Equal(t, 2, failure.TrackNumber)
	assert.Equal(t, StageDownload, failure.Stage)
	var dlErr *source.DownloadError
	assert.ErrorAs(t, failure, &dlErr)

	for _, track := range report.Succeeded {
		m := readTags(t, track.Path)
		require.NotNil(t, m.Picture())
		assert.Contains(t, string(m.Picture().Data), "https://img/1/large.jpg")
	}

	playlist, err := os.ReadFile(report.PlaylistPath)
	require.NoError(t, err)
	assert.Equal(t, "01 - Song 1.mp3\n03 - Song 3.mp3\n", string(playlist))

	last := h.events[len(h.events)-1]
	assert.Equal(t, LevelWarning, last.Level)
	assert.Contains(t, last.Message, "1 of 3 tracks failed")
}

func TestPipeline_Concurrent(t *testing.T) {
	h := newHarness(t, 6)
	h.pipeline.opts.MaxConcurrentTracksDownload = 3
	h.downloader.failing["https://v/4"] = true

	report, err := h.pipeline.Process(context.Background(), "https://list", Answers{})
	require.NoError(t, err)

	var numbers []int
	for _, track := range report.Succeeded {
		numbers = append(numbers, track.Number)
	}
	assert.Equal(t, []int{1, 2, 3, 5, 6}, numbers)
	assert.Len(t, report.Failed, 1)

	done := 0
	for _, e := range h.events {
		if e.TrackDone {
			done++
		}
	}
	assert.Equal(t, 6, done)
}

func TestPipeline_Plan(t *testing.T) {
	h := newHarness(t, 3)
	playlist, err := h.pipeline.Resolve(context.Background(), "https://list")
	require.NoError(t, err)

	t.Run("defaults", func(t *testing.T) {
		plan, err := h.pipeline.Plan(playlist, Answers{})
		require.NoError(t, err)
		assert.Equal(t, model.AlbumMetadata{Title: "Road Trip", Artist: "Various", Year: "2020"}, plan.Album.AlbumMetadata)
		assert.Equal(t, CoverChoice{TrackIndex: 1}, plan.Cover)
		assert.Equal(t, "Song 1", plan.Album.Tracks[0].Title)
	})

	t.Run("overrides and renames", func(t *testing.T) {
		plan, err := h.pipeline.Plan(playlist, Answers{
			Artist:     " The Drivers ",
			Year:       "1999",
			AlbumTitle: "Night/Day: Live",
			Renames:    map[int]string{3: "Finale?", 1: "  "},
		})
		require.NoError(t, err)

		album := plan.Album
		assert.Equal(t, "The Drivers", album.Artist)
		assert.Equal(t, "1999", album.Year)
		assert.Equal(t, "Night/Day: Live", album.Title, "tags keep the unsanitized title")
		assert.Equal(t, filepath.Join(h.dir, "NightDay Live"), album.Path)
		assert.Equal(t, "Song 1", album.Tracks[0].Title)
		assert.Equal(t, "Finale?", album.Tracks[2].Title)
		assert.Equal(t, "03 - Finale", album.Tracks[2].FileBase)
		assert.Equal(t, 3, album.Tracks[2].Ref.PlaylistIndex, "renames keep ordering")
	})

	t.Run("invalid cover index falls back with warning", func(t *testing.T) {
		h.events = nil
		plan, err := h.pipeline.Plan(playlist, Answers{Cover: CoverChoice{TrackIndex: 9}})
		require.NoError(t, err)
		assert.Equal(t, 1, plan.Cover.TrackIndex)
		require.NotEmpty(t, h.events)
		assert.Equal(t, LevelWarning, h.events[0].Level)
	})

	t.Run("literal titles", func(t *testing.T) {
		h.pipeline.opts.NormalizeTitles = false
		defer func() { h.pipeline.opts.NormalizeTitles = true }()

		titles := h.pipeline.DefaultTitles(playlist)
		assert.Equal(t, "Artist - Song 1 (Official Video)", titles[0])
	})

	errorCases := []struct {
		name    string
		answers Answers
		field   string
	}{
		{"rename out of range", Answers{Renames: map[int]string{4: "x"}}, "track number"},
		{"rename zero", Answers{Renames: map[int]string{0: "x"}}, "track number"},
		{"bad year", Answers{Year: "99"}, "year"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.pipeline.Plan(playlist, tt.answers)
			var inputErr *UserInputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestPipeline_EmptyEntryTitle(t *testing.T) {
	h := newHarness(t, 2)
	h.resolver.playlist.Entries[0].SourceTitle = ""

	playlist, err := h.pipeline.Resolve(context.Background(), "u")
	require.NoError(t, err)
	titles := h.pipeline.DefaultTitles(playlist)
	assert.Equal(t, []string{"Song 1", "Track 2"}, titles)
}

func TestPipeline_CoverFallbacks(t *testing.T) {
	t.Run("bad url uses first track", func(t *testing.T) {
		h := newHarness(t, 2)
		report, err := h.pipeline.Process(context.Background(), "u", Answers{Cover: CoverChoice{URL: "https://broken/cover.jpg"}})
		require.NoError(t, err)
		assert.Equal(t, "https://img/1/large.jpg", report.Cover.Source)
	})

	t.Run("custom url", func(t *testing.T) {
		h := newHarness(t, 2)
		report, err := h.pipeline.Process(context.Background(), "u", Answers{Cover: CoverChoice{URL: "https://art/cover.png"}})
		require.NoError(t, err)
		assert.Equal(t, "https://art/cover.png", report.Cover.Source)
		assert.Empty(t, h.resolver.fetched)
	})

	t.Run("chosen track without thumbnails uses first track", func(t *testing.T) {
		h := newHarness(t, 2)
		h.resolver.items["https://v/2"].Thumbnails = nil
		report, err := h.pipeline.Process(context.Background(), "u", Answers{Cover: CoverChoice{TrackIndex: 2}})
		require.NoError(t, err)
		assert.Equal(t, "https://img/1/large.jpg", report.Cover.Source)
	})

	t.Run("first track failing is fatal", func(t *testing.T) {
		h := newHarness(t, 2)
		delete(h.resolver.items, "https://v/1")
		_, err := h.pipeline.Process(context.Background(), "u", Answers{})
		var metaErr *source.MetadataFetchError
		require.ErrorAs(t, err, &metaErr)
		assert.Empty(t, h.downloader.calls, "no track is downloaded without a cover")
	})
}

func TestPipeline_ResolveErrors(t *testing.T) {
	h := newHarness(t, 1)

	_, err := h.pipeline.Resolve(context.Background(), "   ")
	var inputErr *UserInputError
	require.ErrorAs(t, err, &inputErr)

	h.resolver.playlist = nil
	_, err = h.pipeline.Process(context.Background(), "https://list", Answers{})
	var metaErr *source.MetadataFetchError
	require.ErrorAs(t, err, &metaErr)
}

func TestPipeline_RunLocked(t *testing.T) {
	h := newHarness(t, 1)
	playlist, err := h.pipeline.Resolve(context.Background(), "u")
	require.NoError(t, err)
	plan, err := h.pipeline.Plan(playlist, Answers{})
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(plan.Album.Path, 0755))
	other := flock.New(filepath.Join(plan.Album.Path, LockFileName))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	_, err = h.pipeline.Run(context.Background(), plan)
	assert.ErrorIs(t, err, ErrRunLocked)
	assert.Empty(t, h.downloader.calls)
}

func TestPipeline_Canceled(t *testing.T) {
	h := newHarness(t, 3)
	playlist, err := h.pipeline.Resolve(context.Background(), "u")
	require.NoError(t, err)
	plan, err := h.pipeline.Plan(playlist, Answers{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h.pipeline.deps.Tagger = taggerFunc(func(track *model.Track, cover *model.CoverImage) error {
		cancel()
		return audio.NewTagger().EmbedTrack(track, cover)
	})

	report, err := h.pipeline.Run(ctx, plan)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Len(t, report.Succeeded, 1)
	assert.Len(t, report.Failed, 2)
}

type taggerFunc func(*model.Track, *model.CoverImage) error

func (f taggerFunc) EmbedTrack(track *model.Track, cover *model.CoverImage) error {
	return f(track, cover)
}

func TestPipeline_TagFailureRemovesFile(t *testing.T) {
	h := newHarness(t, 2)
	h.pipeline.deps.Tagger = taggerFunc(func(track *model.Track, cover *model.CoverImage) error {
		if track.Number == 1 {
			return errors.New("disk full")
		}
		return audio.NewTagger().EmbedTrack(track, cover)
	})

	report, err := h.pipeline.Process(context.Background(), "u", Answers{})
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, StageTag, report.Failed[0].Stage)
	assert.Equal(t, []string{"02 - Song 2.mp3"}, h.audioFiles(t, report.Album.Path))
}

func writeOld(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("old"), 0644))
	}
}

func assertOld(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n))
		if assert.NoError(t, err, "%s should survive", n) {
			assert.Equal(t, "old", string(data), n)
		}
	}
}

func TestPipeline_CancelKeepsEarlierFiles(t *testing.T) {
	h := newHarness(t, 3)
	albumDir := filepath.Join(h.dir, "Road Trip")
	writeOld(t, albumDir, "02 - Song 2.mp3", "03 - Song 3.mp3")

	playlist, err := h.pipeline.Resolve(context.Background(), "u")
	require.NoError(t, err)
	plan, err := h.pipeline.Plan(playlist, Answers{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h.pipeline.deps.Tagger = taggerFunc(func(track *model.Track, cover *model.CoverImage) error {
		cancel()
		return audio.NewTagger().EmbedTrack(track, cover)
	})

	_, err = h.pipeline.Run(ctx, plan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"https://v/1"}, h.downloader.calls)
	assertOld(t, albumDir, "02 - Song 2.mp3", "03 - Song 3.mp3")
}

func TestPipeline_FailedDownloadKeepsExistingFile(t *testing.T) {
	h := newHarness(t, 2)
	h.downloader.failing["https://v/2"] = true
	albumDir := filepath.Join(h.dir, "Road Trip")
	writeOld(t, albumDir, "02 - Song 2.mp3")

	report, err := h.pipeline.Process(context.Background(), "u", Answers{})
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)

	assertOld(t, albumDir, "02 - Song 2.mp3")
	assert.NoFileExists(t, filepath.Join(albumDir, "02 - Song 2.webm.part"))
}

func TestPipeline_TagFailureRemovesOverwrittenFile(t *testing.T) {
	h := newHarness(t, 1)
	albumDir := filepath.Join(h.dir, "Road Trip")
	writeOld(t, albumDir, "01 - Song 1.mp3")
	h.pipeline.deps.Tagger = taggerFunc(func(*model.Track, *model.CoverImage) error {
		return errors.New("disk full")
	})

	report, err := h.pipeline.Process(context.Background(), "u", Answers{})
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.NoFileExists(t, filepath.Join(albumDir, "01 - Song 1.mp3"))
}

func TestParseCoverChoice(t *testing.T) {
	tests := []struct {
		in   string
		want CoverChoice
	}{
		{"", CoverChoice{TrackIndex: 1}},
		{"3", CoverChoice{TrackIndex: 3}},
		{" 0 ", CoverChoice{TrackIndex: 0}},
		{"abc", CoverChoice{TrackIndex: -1}},
		{"https://x/y.jpg", CoverChoice{URL: "https://x/y.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCoverChoice(tt.in))
		})
	}
}
