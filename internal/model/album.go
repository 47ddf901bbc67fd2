package model

import (
	"path/filepath"
	"strings"

	ioutils "github.com/handiism/playlist-album/internal/io"
)

// Album is the local output of one run: album tags, the output folder and
// the planned tracks.
//
// Paths are computed when creating an album via NewAlbum, using the
// placeholders {artist}, {album} and {year}.
//
// Example:
//
//	cfg := &PathConfig{
//	    DownloadsPath:          "Downloads/{album}",
//	    PlaylistFileNameFormat: "{album}",
//	    PlaylistFormat:         PlaylistFormatM3U,
//	}
//	album := NewAlbum(AlbumMetadata{Title: "Abbey Road", Artist: "The Beatles", Year: "1969"}, cfg)
//	// album.Path = "Downloads/Abbey Road"
type Album struct {
	AlbumMetadata

	// Tracks contains the planned tracks in output order.
	Tracks []*Track

	// Path is the local directory where track files are written.
	Path string

	// PlaylistPath is the local file path for the optional playlist file.
	PlaylistPath string
}

// NewAlbum creates a new Album with computed paths based on cfg.
//
// Placeholder values are sanitized with cfg.SanitizeMode before substitution,
// so a title such as "AC/DC: Live" can never introduce extra path segments.
// Paths are truncated if they exceed Windows path length limits (248 for folders, 260 for files).
func NewAlbum(meta AlbumMetadata, cfg *PathConfig) *Album {
	album := &Album{AlbumMetadata: meta}

	album.Path = album.parseFolderPath(cfg)
	album.PlaylistPath = album.parsePlaylistPath(cfg)

	return album
}

// PathConfig holds path formatting settings for albums.
//
// Example configuration:
//
//	cfg := &PathConfig{
//	    DownloadsPath:          "/home/user/Music/{album}",
//	    PlaylistFileNameFormat: "{album}",
//	    PlaylistFormat:         PlaylistFormatM3U,
//	    SanitizeMode:           ioutils.SanitizeStrip,
//	}
type PathConfig struct {
	// DownloadsPath is the base path template for albums.
	// Example: "Downloads/{album}"
	DownloadsPath string

	// PlaylistFileNameFormat is the filename template for playlists (without extension).
	PlaylistFileNameFormat string

	// PlaylistFormat determines the playlist file type and extension.
	PlaylistFormat PlaylistFormat

	// SanitizeMode is the filename policy applied to placeholder values.
	SanitizeMode ioutils.SanitizeMode
}

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// PlaylistFormatM3U creates .m3u playlist files (most widely supported).
	PlaylistFormatM3U PlaylistFormat = iota

	// PlaylistFormatPLS creates .pls playlist files (used by Winamp).
	PlaylistFormatPLS

	// PlaylistFormatWPL creates .wpl playlist files (Windows Media Player).
	PlaylistFormatWPL

	// PlaylistFormatZPL creates .zpl playlist files (Zune Media Player).
	PlaylistFormatZPL
)

// ParsePlaylistFormat maps "m3u", "pls", "wpl" or "zpl" to a PlaylistFormat.
// Unknown values select M3U.
func ParsePlaylistFormat(s string) PlaylistFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pls":
		return PlaylistFormatPLS
	case "wpl":
		return PlaylistFormatWPL
	case "zpl":
		return PlaylistFormatZPL
	default:
		return PlaylistFormatM3U
	}
}

// Extension returns the file extension for the playlist format, including the dot.
func (pf PlaylistFormat) Extension() string {
	switch pf {
	case PlaylistFormatPLS:
		return ".pls"
	case PlaylistFormatWPL:
		return ".wpl"
	case PlaylistFormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

func (a *Album) expand(template string, mode ioutils.SanitizeMode, sanitizeValues bool) string {
	value := func(s, fallback string) string {
		if !sanitizeValues {
			return s
		}
		if v := ioutils.SanitizeFileName(s, mode); v != "" {
			return v
		}
		return fallback
	}
	r := strings.NewReplacer(
		"{year}", value(a.Year, "0000"),
		"{artist}", value(a.Artist, UnknownArtist),
		"{album}", value(a.Title, UnknownAlbum),
	)
	return r.Replace(template)
}

// parseFolderPath computes the album folder path from the config template.
func (a *Album) parseFolderPath(cfg *PathConfig) string {
	path := filepath.Clean(a.expand(cfg.DownloadsPath, cfg.SanitizeMode, true))

	// Limit path length for cross-platform compatibility (Windows MAX_PATH)
	if len(path) >= 248 {
		path = truncateUTF8(path, 247)
	}

	return path
}

// parsePlaylistPath computes the full playlist file path.
func (a *Album) parsePlaylistPath(cfg *PathConfig) string {
	fileName := ioutils.SanitizeFileName(a.expand(cfg.PlaylistFileNameFormat, cfg.SanitizeMode, false), cfg.SanitizeMode)
	if fileName == "" {
		fileName = "playlist"
	}
	ext := cfg.PlaylistFormat.Extension()
	return filepath.Join(a.Path, fitFileName(a.Path, fileName, len(ext))+ext)
}

// fitFileName shortens name so that dir/name plus an extension of extLen
// bytes stays below 260 bytes.
func fitFileName(dir, name string, extLen int) string {
	budget := 259 - len(dir) - 1 - extLen
	if budget <= 0 || len(name) <= budget {
		return name
	}
	return strings.TrimSpace(truncateUTF8(name, budget))
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
