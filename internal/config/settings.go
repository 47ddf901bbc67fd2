package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ioutils "github.com/handiism/playlist-album/internal/io"
	"github.com/handiism/playlist-album/internal/model"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PLAYLIST_DL_"

// Settings holds all configuration options.
type Settings struct {
	// Output
	DownloadsPath  string `json:"downloads_path" yaml:"downloads_path"`
	FileNameFormat string `json:"file_name_format" yaml:"file_name_format"`
	SanitizeMode   string `json:"sanitize_mode" yaml:"sanitize_mode"` // strip, slash-separator

	// Media service
	CookiesFile  string `json:"cookies_file" yaml:"cookies_file"`
	YtDlpPath    string `json:"ytdlp_path" yaml:"ytdlp_path"`
	AudioFormat  string `json:"audio_format" yaml:"audio_format"`
	AudioQuality string `json:"audio_quality" yaml:"audio_quality"`

	// Titles
	NormalizeTitles bool `json:"normalize_titles" yaml:"normalize_titles"`

	// Cover art
	ImageFetchTimeoutSeconds float64 `json:"image_fetch_timeout_seconds" yaml:"image_fetch_timeout_seconds"`
	CoverMaxSize             int     `json:"cover_max_size" yaml:"cover_max_size"` // 0 keeps source resolution
	CoverJPEGQuality         int     `json:"cover_jpeg_quality" yaml:"cover_jpeg_quality"`

	// Concurrency; 1 processes tracks strictly one after another
	MaxConcurrentTracksDownload int `json:"max_concurrent_tracks" yaml:"max_concurrent_tracks"`

	// Playlist file
	CreatePlaylist         bool   `json:"create_playlist" yaml:"create_playlist"`
	PlaylistFormat         string `json:"playlist_format" yaml:"playlist_format"` // m3u, pls, wpl, zpl
	PlaylistFileNameFormat string `json:"playlist_file_name_format" yaml:"playlist_file_name_format"`
	M3UExtended            bool   `json:"m3u_extended" yaml:"m3u_extended"`

	// Logging: debug, info, warn, error
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		DownloadsPath:  filepath.Join("Downloads", "{album}"),
		FileNameFormat: "{tracknum} - {title}",
		SanitizeMode:   ioutils.SanitizeStrip.String(),

		CookiesFile:  defaultCookiesFile(),
		YtDlpPath:    "yt-dlp",
		AudioFormat:  "mp3",
		AudioQuality: "192K",

		NormalizeTitles: true,

		ImageFetchTimeoutSeconds: 15,
		CoverMaxSize:             0,
		CoverJPEGQuality:         ioutils.DefaultJPEGQuality,

		MaxConcurrentTracksDownload: 1,

		CreatePlaylist:         false,
		PlaylistFormat:         "m3u",
		PlaylistFileNameFormat: "{album}",
		M3UExtended:            true,

		LogLevel: "info",
	}
}

// defaultCookiesFile is cookies.txt next to the executable.
func defaultCookiesFile() string {
	exe, err := os.Executable()
	if err != nil {
		return "cookies.txt"
	}
	return filepath.Join(filepath.Dir(exe), "cookies.txt")
}

// Load reads settings from a JSON or YAML file, chosen by extension
// (.yaml/.yml for YAML, anything else JSON). A missing file yields defaults.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, settings)
	} else {
		err = json.Unmarshal(data, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to path in the format implied by its extension.
func (s *Settings) Save(path string) error {
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return ioutils.WriteFile(path, data)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ApplyEnv loads the given dotenv files (missing files are skipped) and
// applies PLAYLIST_DL_* variables on top of s. Variables already set in the
// process environment win over dotenv values.
func (s *Settings) ApplyEnv(envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("DOWNLOADS_PATH", &s.DownloadsPath)
	str("COOKIES_FILE", &s.CookiesFile)
	str("YTDLP_PATH", &s.YtDlpPath)
	str("LOG_LEVEL", &s.LogLevel)
	str("SANITIZE_MODE", &s.SanitizeMode)

	if v, ok := os.LookupEnv(EnvPrefix + "CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCONCURRENCY: %w", EnvPrefix, err)
		}
		s.MaxConcurrentTracksDownload = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "NORMALIZE_TITLES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sNORMALIZE_TITLES: %w", EnvPrefix, err)
		}
		s.NormalizeTitles = b
	}

	return nil
}

// Validate reports settings that cannot be used.
func (s *Settings) Validate() error {
	var errs []error

	if strings.TrimSpace(s.DownloadsPath) == "" {
		errs = append(errs, errors.New("downloads_path is empty"))
	}
	if s.MaxConcurrentTracksDownload < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_tracks must be at least 1, got %d", s.MaxConcurrentTracksDownload))
	}
	if s.CoverMaxSize < 0 {
		errs = append(errs, fmt.Errorf("cover_max_size must not be negative, got %d", s.CoverMaxSize))
	}
	switch strings.ToLower(s.PlaylistFormat) {
	case "m3u", "pls", "wpl", "zpl":
	default:
		errs = append(errs, fmt.Errorf("unknown playlist_format %q", s.PlaylistFormat))
	}
	switch strings.ToLower(s.SanitizeMode) {
	case "strip", "slash-separator", "slash-to-separator", "separator":
	default:
		errs = append(errs, fmt.Errorf("unknown sanitize_mode %q", s.SanitizeMode))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	return errors.Join(errs...)
}

// SlogLevel returns LogLevel as a slog.Level, defaulting to Info.
func (s *Settings) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ImageFetchTimeout returns the cover download timeout.
func (s *Settings) ImageFetchTimeout() time.Duration {
	return time.Duration(s.ImageFetchTimeoutSeconds * float64(time.Second))
}

// ToPathConfig converts settings to PathConfig.
//
// A DownloadsPath without an {album} placeholder is treated as the parent
// folder: "{album}" is appended to it.
func (s *Settings) ToPathConfig() *model.PathConfig {
	downloads := s.DownloadsPath
	if !strings.Contains(downloads, "{album}") {
		downloads = filepath.Join(downloads, "{album}")
	}

	return &model.PathConfig{
		DownloadsPath:          downloads,
		PlaylistFileNameFormat: s.PlaylistFileNameFormat,
		PlaylistFormat:         model.ParsePlaylistFormat(s.PlaylistFormat),
		SanitizeMode:           ioutils.ParseSanitizeMode(s.SanitizeMode),
	}
}

// ToTrackConfig converts settings to TrackConfig.
func (s *Settings) ToTrackConfig() *model.TrackConfig {
	return &model.TrackConfig{
		FileNameFormat: s.FileNameFormat,
		SanitizeMode:   ioutils.ParseSanitizeMode(s.SanitizeMode),
	}
}
