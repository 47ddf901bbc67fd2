// Package config provides configuration management for playlist-dl.
//
// This package handles:
//   - Loading and saving settings as JSON or YAML
//   - Default configuration values
//   - .env files and PLAYLIST_DL_* environment overrides
//   - Conversion to PathConfig and TrackConfig for the model package
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Albums go to Downloads/{album}
//	// MP3 at 192 kbps, titles normalized, tracks processed one at a time
//
// # Loading from File
//
//	settings, err := config.Load("playlist-dl.yaml")
//	if err != nil {
//	    // the file exists but could not be parsed
//	}
//	err = settings.ApplyEnv(".env")
//
// # Environment
//
//	PLAYLIST_DL_DOWNLOADS_PATH    downloads_path
//	PLAYLIST_DL_COOKIES_FILE      cookies_file
//	PLAYLIST_DL_YTDLP_PATH        ytdlp_path
//	PLAYLIST_DL_LOG_LEVEL         log_level
//	PLAYLIST_DL_SANITIZE_MODE     sanitize_mode
//	PLAYLIST_DL_CONCURRENCY       max_concurrent_tracks
//	PLAYLIST_DL_NORMALIZE_TITLES  normalize_titles
package config
