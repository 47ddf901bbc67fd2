package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/handiism/playlist-album/internal/config"
	"github.com/handiism/playlist-album/internal/download"
	"github.com/handiism/playlist-album/internal/ytdlp"
	"github.com/spf13/cobra"
)

type options struct {
	configPath  string
	output      string
	artist      string
	year        string
	album       string
	cover       int
	coverURL    string
	renames     []string
	noNormalize bool
	playlist    bool
	concurrency int
	dryRun      bool
	verbose     bool
	yes         bool
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "playlist-dl [URL]",
		Short: "Download a playlist as a tagged MP3 album",
		Long: `playlist-dl downloads every item of a playlist as audio, converts it to MP3
and writes album tags (title, track number, artist, album, year, cover).

Questions that are not answered by flags are asked on the terminal; an
empty answer keeps the default shown in brackets. Use --yes to accept all
defaults without asking. For the full-screen interface, use playlist-tui.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (.json, .yaml)")
	flags.StringVarP(&opts.output, "output", "o", "", "Parent directory for the album folder (overrides config)")
	flags.StringVar(&opts.artist, "artist", "", "Artist tag (default: playlist uploader)")
	flags.StringVar(&opts.year, "year", "", "Four-digit year tag (default: playlist date)")
	flags.StringVar(&opts.album, "album", "", "Album title (default: playlist title)")
	flags.IntVar(&opts.cover, "cover", 0, "Track number whose thumbnail becomes the cover")
	flags.StringVar(&opts.coverURL, "cover-url", "", "Image URL to use as the cover")
	flags.StringArrayVar(&opts.renames, "rename", nil, `Rename a track, as "N=new title" (repeatable)`)
	flags.BoolVar(&opts.noNormalize, "no-normalize", false, "Keep source titles as published")
	flags.BoolVar(&opts.playlist, "playlist", false, "Create a playlist file in the album folder")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Tracks processed in parallel (overrides config)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Resolve and plan without downloading")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show verbose output and debug logs")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Accept defaults for every unanswered question")

	return cmd
}

func loadSettings(opts *options) (*config.Settings, error) {
	settings := config.DefaultSettings()
	if opts.configPath != "" {
		var err error
		settings, err = config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := settings.ApplyEnv(".env"); err != nil {
		return nil, err
	}

	if opts.output != "" {
		settings.DownloadsPath = opts.output
	}
	if opts.noNormalize {
		settings.NormalizeTitles = false
	}
	if opts.playlist {
		settings.CreatePlaylist = true
	}
	if opts.concurrency != 0 {
		settings.MaxConcurrentTracksDownload = opts.concurrency
	}
	if opts.verbose {
		settings.LogLevel = "debug"
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: settings.SlogLevel()}))
	slog.SetDefault(logger)

	renames, err := parseRenames(opts.renames)
	if err != nil {
		return err
	}

	printer := newPrinter(out, opts.verbose)
	pipeline := download.New(settings, logger, printer.handle)
	ask := newPrompter(cmd.InOrStdin(), out, opts.yes)

	fmt.Fprintln(out, "♪ Playlist Album Downloader")
	fmt.Fprintln(out, strings.Repeat("━", 40))

	url := ""
	if len(args) > 0 {
		url = args[0]
	}
	if url == "" {
		if url, err = ask.required("Playlist URL:"); err != nil {
			return err
		}
	}
	if url == "" {
		return fmt.Errorf("a playlist URL is required")
	}

	if err := checkYtDlp(ctx, ytdlp.ExecRunner{Logger: logger}, settings.YtDlpPath, logger); err != nil {
		return err
	}

	playlist, err := pipeline.Resolve(ctx, url)
	if err != nil {
		return err
	}

	defaults := pipeline.DefaultMetadata(playlist)
	titles := pipeline.DefaultTitles(playlist)
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTracks(titles, playlist))

	answers := download.Answers{
		Artist:     opts.artist,
		Year:       opts.year,
		AlbumTitle: opts.album,
		Renames:    renames,
		Cover:      download.CoverChoice{TrackIndex: opts.cover, URL: opts.coverURL},
	}
	if answers.Artist == "" {
		if answers.Artist, err = ask.text("Artist:", defaults.Artist); err != nil {
			return err
		}
	}
	if answers.Year == "" {
		if answers.Year, err = ask.year("Year:", defaults.Year); err != nil {
			return err
		}
	}
	if answers.AlbumTitle == "" {
		if answers.AlbumTitle, err = ask.text("Album title:", defaults.Title); err != nil {
			return err
		}
	}
	if len(answers.Renames) == 0 {
		if answers.Renames, err = ask.renames(titles); err != nil {
			return err
		}
	}
	if answers.Cover.TrackIndex == 0 && answers.Cover.URL == "" {
		if answers.Cover, err = ask.cover(titles); err != nil {
			return err
		}
	}

	plan, err := pipeline.Plan(playlist, answers)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderPlan(plan))

	if opts.dryRun {
		fmt.Fprintln(out, "\n[Dry run - not downloading]")
		return nil
	}

	fmt.Fprintln(out, "\nStarting downloads...")
	printer.start(len(plan.Album.Tracks))
	report, err := pipeline.Run(ctx, plan)
	printer.finish()
	if err != nil {
		return err
	}

	printSummary(out, report)
	return nil
}

// checkYtDlp fails early when the configured yt-dlp binary cannot run.
func checkYtDlp(ctx context.Context, runner ytdlp.Runner, binary string, logger *slog.Logger) error {
	version, err := ytdlp.New(runner, ytdlp.Options{Binary: binary}).Version(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("yt-dlp is not available (%s): %w", binary, err)
	}
	logger.Debug("Found yt-dlp", "binary", binary, "version", version)
	return nil
}

// parseRenames reads "N=title" pairs. Range checks happen in Plan.
func parseRenames(values []string) (map[int]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	renames := make(map[int]string, len(values))
	for _, v := range values {
		num, title, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("--rename %q: want N=title", v)
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return nil, fmt.Errorf("--rename %q: %w", v, err)
		}
		renames[n] = strings.TrimSpace(title)
	}
	return renames, nil
}

func printSummary(out io.Writer, report *download.Report) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("━", 40))
	total := len(report.Album.Tracks)
	if report.Complete() {
		fmt.Fprintf(out, "✨ Complete! %d/%d tracks in %s\n", len(report.Succeeded), total, report.Album.Path)
	} else {
		fmt.Fprintf(out, "Finished with errors: %d/%d tracks in %s\n", len(report.Succeeded), total, report.Album.Path)
		for _, f := range report.Failed {
			fmt.Fprintf(out, "  ✗ %02d %s (%s): %v\n", f.TrackNumber, f.Title, f.Stage, f.Err)
		}
	}
	if report.PlaylistPath != "" {
		fmt.Fprintf(out, "   Playlist: %s\n", report.PlaylistPath)
	}
}
