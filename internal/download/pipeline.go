package download

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/handiism/playlist-album/internal/audio"
	"github.com/handiism/playlist-album/internal/config"
	"github.com/handiism/playlist-album/internal/cover"
	"github.com/handiism/playlist-album/internal/http"
	ioutils "github.com/handiism/playlist-album/internal/io"
	"github.com/handiism/playlist-album/internal/model"
	"github.com/handiism/playlist-album/internal/source"
	"github.com/handiism/playlist-album/internal/ytdlp"
)

// Resolver fetches playlist and item metadata.
type Resolver interface {
	ResolvePlaylist(ctx context.Context, url string) (*model.Playlist, error)
	FetchItem(ctx context.Context, locator string) (*model.Item, error)
}

// Downloader fetches one track's audio and returns the committed path.
type Downloader interface {
	Download(ctx context.Context, locator, outputTemplate string) (string, error)
}

// CoverAcquirer produces the square album cover.
type CoverAcquirer interface {
	FromThumbnails(ctx context.Context, candidates []model.Thumbnail) (*model.CoverImage, error)
	FromURL(ctx context.Context, url string) (*model.CoverImage, error)
}

// Tagger embeds the managed frames into a committed track.
type Tagger interface {
	EmbedTrack(track *model.Track, cover *model.CoverImage) error
}

// Dependencies are the collaborators of a Pipeline.
type Dependencies struct {
	Resolver   Resolver
	Downloader Downloader
	Cover      CoverAcquirer
	Tagger     Tagger

	// Playlist renders the optional album playlist file; nil disables it.
	Playlist *audio.PlaylistCreator
}

// Options is the fixed configuration of a Pipeline.
type Options struct {
	PathConfig  *model.PathConfig
	TrackConfig *model.TrackConfig

	NormalizeTitles bool

	// MaxConcurrentTracksDownload bounds the track loop; values below 1
	// mean 1.
	MaxConcurrentTracksDownload int

	// Now supplies the default year; nil means time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Pipeline turns a playlist URL into a tagged album.
//
// A run goes through three calls, so interactive shells can ask questions
// between them:
//
//	playlist, err := p.Resolve(ctx, url)
//	plan, err := p.Plan(playlist, answers)
//	report, err := p.Run(ctx, plan)
type Pipeline struct {
	deps Dependencies
	opts Options

	onProgress func(ProgressEvent)
	mu         sync.Mutex
}

// NewPipeline creates a Pipeline from explicit collaborators.
func NewPipeline(deps Dependencies, opts Options, onProgress func(ProgressEvent)) *Pipeline {
	p := &Pipeline{onProgress: onProgress}
	p.init(deps, opts)
	return p
}

func (p *Pipeline) init(deps Dependencies, opts Options) {
	if opts.MaxConcurrentTracksDownload < 1 {
		opts.MaxConcurrentTracksDownload = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TrackConfig == nil {
		opts.TrackConfig = &model.TrackConfig{}
	}
	p.deps = deps
	p.opts = opts
}

// New wires a Pipeline from settings: yt-dlp for metadata and audio, the
// HTTP client for covers and id3v2 for tags.
func New(settings *config.Settings, logger *slog.Logger, onProgress func(ProgressEvent)) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{onProgress: onProgress}

	svc := ytdlp.New(ytdlp.ExecRunner{Logger: logger}, ytdlp.Options{
		Binary:       settings.YtDlpPath,
		AudioFormat:  settings.AudioFormat,
		AudioQuality: settings.AudioQuality,
	})
	srcCfg := source.Config{
		Credential: source.Credential{CookiesFile: settings.CookiesFile},
		Logger:     logger,
		OnFallback: func(w source.AuthFallbackWarning) {
			p.progress(ProgressEvent{Message: fmt.Sprintf("Warning: %s failed with cookies, continued without them (%v)", w.Operation, w.Err), Level: LevelWarning})
		},
	}

	deps := Dependencies{
		Resolver:   source.NewResolver(svc, srcCfg),
		Downloader: source.NewDownloader(svc, srcCfg),
		Cover: cover.NewAcquirer(
			http.NewClient(settings.ImageFetchTimeout()),
			ioutils.NewImageService(settings.CoverJPEGQuality),
			settings.CoverMaxSize,
		),
		Tagger: audio.NewTagger(),
	}
	if settings.CreatePlaylist {
		deps.Playlist = audio.NewPlaylistCreator(model.ParsePlaylistFormat(settings.PlaylistFormat), settings.M3UExtended)
	}

	p.init(deps, Options{
		PathConfig:                  settings.ToPathConfig(),
		TrackConfig:                 settings.ToTrackConfig(),
		NormalizeTitles:             settings.NormalizeTitles,
		MaxConcurrentTracksDownload: settings.MaxConcurrentTracksDownload,
		Logger:                      logger,
	})
	return p
}

// Resolve fetches the playlist behind url. Any failure here is fatal to the
// run.
func (p *Pipeline) Resolve(ctx context.Context, url string) (*model.Playlist, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, &UserInputError{Field: "url", Message: "empty"}
	}

	p.progress(ProgressEvent{Message: fmt.Sprintf("Fetching playlist info: %s", url), Level: LevelVerbose})

	playlist, err := p.deps.Resolver.ResolvePlaylist(ctx, url)
	if err != nil {
		return nil, err
	}

	kind := "playlist"
	if playlist.Single {
		kind = "single item"
	}
	p.progress(ProgressEvent{Message: fmt.Sprintf("Found %s: %s (%d tracks)", kind, playlist.Title, len(playlist.Entries)), Level: LevelInfo})
	return playlist, nil
}

// Process runs Resolve, Plan and Run in one go.
func (p *Pipeline) Process(ctx context.Context, url string, answers Answers) (*Report, error) {
	playlist, err := p.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}
	plan, err := p.Plan(playlist, answers)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, plan)
}

// progress serializes callbacks; the track loop may emit from several
// goroutines.
func (p *Pipeline) progress(event ProgressEvent) {
	if p.onProgress == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onProgress(event)
}
