// Package ytdlp adapts the yt-dlp binary, the external service that lists
// playlists, describes single items and fetches/transcodes audio streams.
//
// Metadata commands return yt-dlp's raw JSON document; interpreting it is
// left to the caller. Every command accepts an optional cookie file, the
// browser-exported credential, which is passed with --cookies when set.
package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Options configures the binary and the transcoding target.
type Options struct {
	// Binary is the yt-dlp executable name or path.
	Binary string

	// AudioFormat is the codec passed to --audio-format.
	AudioFormat string

	// AudioQuality is passed to --audio-quality, e.g. "192K".
	AudioQuality string
}

// DefaultOptions returns MP3 at 192 kbps using yt-dlp from PATH.
func DefaultOptions() Options {
	return Options{Binary: "yt-dlp", AudioFormat: "mp3", AudioQuality: "192K"}
}

// Client issues yt-dlp commands through a Runner.
type Client struct {
	runner Runner
	opts   Options
}

// New creates a Client. Empty option fields take their DefaultOptions value.
func New(runner Runner, opts Options) *Client {
	def := DefaultOptions()
	if opts.Binary == "" {
		opts.Binary = def.Binary
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = def.AudioFormat
	}
	if opts.AudioQuality == "" {
		opts.AudioQuality = def.AudioQuality
	}
	return &Client{runner: runner, opts: opts}
}

// Version returns the installed yt-dlp version. It doubles as an
// availability check.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, c.opts.Binary, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ExtractPlaylist dumps the listing of url without resolving each entry.
// A URL that points to a single item yields that item's document instead.
func (c *Client) ExtractPlaylist(ctx context.Context, url, cookies string) ([]byte, error) {
	args := withCookies([]string{"-J", "--flat-playlist", "--no-warnings"}, cookies)
	return c.runner.Run(ctx, c.opts.Binary, append(args, "--", url)...)
}

// ExtractItem dumps the full metadata of a single item (thumbnails included).
func (c *Client) ExtractItem(ctx context.Context, url, cookies string) ([]byte, error) {
	args := withCookies([]string{"-J", "--no-playlist", "--no-warnings"}, cookies)
	return c.runner.Run(ctx, c.opts.Binary, append(args, "--", url)...)
}

// DownloadAudio fetches the best audio stream of locator and transcodes it.
//
// outputTemplate must end in ".%(ext)s"; the extension is decided by the
// transcoder. The committed file path is returned.
func (c *Client) DownloadAudio(ctx context.Context, locator, outputTemplate, cookies string) (string, error) {
	args := withCookies([]string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", c.opts.AudioFormat,
		"--audio-quality", c.opts.AudioQuality,
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--force-overwrites",
		"-o", outputTemplate,
		"--print", "after_move:filepath",
		"--no-simulate",
	}, cookies)

	out, err := c.runner.Run(ctx, c.opts.Binary, append(args, "--", locator)...)
	if err != nil {
		return "", err
	}

	if path := lastLine(out); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	path, err := findOutput(outputTemplate, c.opts.AudioFormat)
	if err != nil {
		return "", err
	}
	return path, nil
}

func withCookies(args []string, cookies string) []string {
	if cookies == "" {
		return args
	}
	return append(args, "--cookies", cookies)
}

func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	return strings.TrimSpace(string(lines[len(lines)-1]))
}

// findOutput locates the file produced for outputTemplate when yt-dlp did not
// print it. A file with the requested format's extension wins; otherwise any
// finished file sharing the base name.
func findOutput(outputTemplate, format string) (string, error) {
	base := strings.TrimSuffix(outputTemplate, ".%(ext)s")
	dir, name := filepath.Dir(base), filepath.Base(base)

	preferred := base + "." + format
	if _, err := os.Stat(preferred); err == nil {
		return preferred, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("find downloaded file: %w", err)
	}
	for _, entry := range entries {
		n := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(n, name+".") {
			continue
		}
		if strings.HasSuffix(n, ".part") || strings.HasSuffix(n, ".ytdl") {
			continue
		}
		return filepath.Join(dir, n), nil
	}
	return "", fmt.Errorf("downloaded file not found for %s", base)
}
