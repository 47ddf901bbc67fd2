package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	ioutils "github.com/handiism/playlist-album/internal/io"
	"github.com/handiism/playlist-album/internal/model"
	"github.com/handiism/playlist-album/internal/source"
	"golang.org/x/sync/errgroup"
)

// LockFileName is created inside the album directory while a run is active.
const LockFileName = ".playlist-dl.lock"

// Report is the outcome of Run.
type Report struct {
	Album *model.Album
	Cover *model.CoverImage

	// Succeeded holds tagged tracks in track-number order.
	Succeeded []*model.Track

	// Failed holds tracks without output, in track-number order.
	Failed []TrackFailure

	// PlaylistPath is set when a playlist file was written.
	PlaylistPath string
}

// Complete reports whether every track succeeded.
func (r *Report) Complete() bool {
	return len(r.Failed) == 0
}

// Run executes plan: it locks the album directory, acquires the cover once
// and then downloads and tags every track.
//
// A track that fails is recorded in the report and the loop moves on; only
// directory, lock and cover failures (or ctx cancellation) abort the run. A
// track is tagged only after its download committed, and a failed track
// leaves no file behind.
func (p *Pipeline) Run(ctx context.Context, plan *Plan) (*Report, error) {
	album := plan.Album

	if err := ioutils.EnsureDir(album.Path); err != nil {
		return nil, fmt.Errorf("create album directory: %w", err)
	}

	lockPath := filepath.Join(album.Path, LockFileName)
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock album directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrRunLocked, album.Path)
	}
	defer func() {
		lock.Unlock()
		os.Remove(lockPath)
	}()

	p.progress(ProgressEvent{Message: fmt.Sprintf("Saving album to %s", album.Path), Level: LevelVerbose})

	cover, err := p.acquireCover(ctx, plan)
	if err != nil {
		p.progress(ProgressEvent{Message: fmt.Sprintf("Error acquiring album cover: %v", err), Level: LevelError})
		return nil, err
	}

	report := &Report{Album: album, Cover: cover}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxConcurrentTracksDownload)

	for _, track := range album.Tracks {
		g.Go(func() error {
			failure := p.processTrack(gctx, track, cover)

			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				report.Failed = append(report.Failed, *failure)
			} else {
				report.Succeeded = append(report.Succeeded, track)
			}
			return nil
		})
	}
	g.Wait()

	sort.Slice(report.Succeeded, func(i, j int) bool { return report.Succeeded[i].Number < report.Succeeded[j].Number })
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].TrackNumber < report.Failed[j].TrackNumber })

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if p.deps.Playlist != nil && len(report.Succeeded) > 0 {
		content := p.deps.Playlist.CreatePlaylist(album, report.Succeeded)
		if err := ioutils.WriteFile(album.PlaylistPath, []byte(content)); err != nil {
			p.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		} else {
			report.PlaylistPath = album.PlaylistPath
			p.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s", filepath.Base(album.PlaylistPath)), Level: LevelVerbose})
		}
	}

	if report.Complete() {
		p.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded album: %s", album.Title), Level: LevelSuccess})
	} else {
		p.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s, %d of %d tracks failed", album.Title, len(report.Failed), len(album.Tracks)), Level: LevelWarning})
	}

	return report, nil
}

// acquireCover builds the cover from the planned source. A custom URL or a
// track other than the first falls back to the first track's thumbnail.
func (p *Pipeline) acquireCover(ctx context.Context, plan *Plan) (*model.CoverImage, error) {
	first := plan.Album.Tracks[0]

	if plan.Cover.URL != "" {
		p.progress(ProgressEvent{Message: fmt.Sprintf("Downloading cover from %s", plan.Cover.URL), Level: LevelVerbose})
		cover, err := p.deps.Cover.FromURL(ctx, plan.Cover.URL)
		if err == nil {
			return cover, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.progress(ProgressEvent{Message: fmt.Sprintf("Cover URL failed (%v), using track 1", err), Level: LevelWarning})
		return p.coverFromTrack(ctx, first)
	}

	track := plan.Album.Tracks[plan.Cover.TrackIndex-1]
	cover, err := p.coverFromTrack(ctx, track)
	if err == nil || track == first || ctx.Err() != nil {
		return cover, err
	}
	p.progress(ProgressEvent{Message: fmt.Sprintf("Cover from track %d failed (%v), using track 1", track.Number, err), Level: LevelWarning})
	return p.coverFromTrack(ctx, first)
}

func (p *Pipeline) coverFromTrack(ctx context.Context, track *model.Track) (*model.CoverImage, error) {
	p.progress(ProgressEvent{Message: fmt.Sprintf("Downloading cover from track %d: %s", track.Number, track.Title), Level: LevelVerbose})

	item, err := p.deps.Resolver.FetchItem(ctx, track.Locator())
	if err != nil {
		return nil, err
	}
	return p.deps.Cover.FromThumbnails(ctx, item.Thumbnails)
}

// processTrack downloads then tags one track. It returns nil on success.
//
// On failure only files this attempt created are removed: names that
// matched the track's base before the download started are left alone,
// unless the download itself committed over one of them.
func (p *Pipeline) processTrack(ctx context.Context, track *model.Track, cover *model.CoverImage) *TrackFailure {
	report := func(stage Stage, err error) *TrackFailure {
		p.progress(ProgressEvent{Message: fmt.Sprintf("Error processing %02d - %s: %v", track.Number, track.Title, err), Level: LevelError, TrackDone: true})
		return &TrackFailure{TrackNumber: track.Number, Title: track.Title, Stage: stage, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return report(StageDownload, err)
	}

	existing, err := ioutils.ListWithPrefix(track.Album.Path, track.FileBase)
	if err != nil {
		return report(StageDownload, fmt.Errorf("list album directory: %w", err))
	}

	fail := func(stage Stage, err error) *TrackFailure {
		keep := existing
		if track.Path != "" {
			keep = slices.DeleteFunc(slices.Clone(existing), func(name string) bool {
				return name == filepath.Base(track.Path)
			})
		}
		if removed, rmErr := ioutils.RemoveWithPrefix(track.Album.Path, track.FileBase, keep...); rmErr != nil {
			p.opts.Logger.Warn("Could not remove partial output", "track", track.Number, "error", rmErr)
		} else if len(removed) > 0 {
			p.opts.Logger.Debug("Removed partial output", "track", track.Number, "files", removed)
		}
		track.Path = ""
		return report(stage, err)
	}

	p.progress(ProgressEvent{Message: fmt.Sprintf("Downloading: %02d - %s", track.Number, track.Title), Level: LevelInfo})

	path, err := p.deps.Downloader.Download(ctx, track.Locator(), track.OutputTemplate())
	if err != nil {
		var dlErr *source.DownloadError
		if !errors.As(err, &dlErr) {
			err = &source.DownloadError{Locator: track.Locator(), Message: "fetch audio", Original: err}
		}
		return fail(StageDownload, err)
	}
	track.Path = path

	p.progress(ProgressEvent{Message: fmt.Sprintf("Embedding cover and tags: %s", track.Title), Level: LevelVerbose})

	if err := p.deps.Tagger.EmbedTrack(track, cover); err != nil {
		return fail(StageTag, err)
	}

	p.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(track.Path)), Level: LevelSuccess, TrackDone: true})
	return nil
}
