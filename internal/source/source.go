// Package source resolves playlists and downloads audio through the media
// service, applying the credential fallback to every request.
package source

import (
	"context"
	"log/slog"
	"os"

	"github.com/handiism/playlist-album/internal/fallback"
)

// Service is the subset of the yt-dlp client used by this package.
// *ytdlp.Client satisfies it.
type Service interface {
	ExtractPlaylist(ctx context.Context, url, cookies string) ([]byte, error)
	ExtractItem(ctx context.Context, url, cookies string) ([]byte, error)
	DownloadAudio(ctx context.Context, locator, outputTemplate, cookies string) (string, error)
}

// Credential is the browser-exported cookie file.
type Credential struct {
	CookiesFile string
}

// Path returns the cookie file path when the file exists and is not empty,
// "" otherwise.
func (c Credential) Path() string {
	if c.CookiesFile == "" {
		return ""
	}
	info, err := os.Stat(c.CookiesFile)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return ""
	}
	return c.CookiesFile
}

// Config is shared by Resolver and Downloader.
type Config struct {
	Credential Credential

	// OnFallback is called for every request that succeeded only after
	// dropping the credential.
	OnFallback func(AuthFallbackWarning)

	Logger *slog.Logger
}

// tiered runs calls through fallback.Do with and without the credential.
type tiered struct {
	svc Service
	cfg Config
}

func newTiered(svc Service, cfg Config) tiered {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return tiered{svc: svc, cfg: cfg}
}

func do[T any](ctx context.Context, t tiered, op, target string, call func(ctx context.Context, cookies string) (T, error)) fallback.Result[T] {
	var authenticated fallback.Call[T]
	if cookies := t.cfg.Credential.Path(); cookies != "" {
		authenticated = func(ctx context.Context) (T, error) { return call(ctx, cookies) }
	} else {
		t.cfg.Logger.Debug("No credential available, requesting without cookies", "operation", op)
	}

	res := fallback.Do(ctx, authenticated, func(ctx context.Context) (T, error) { return call(ctx, "") })

	switch res.Outcome {
	case fallback.AuthFailed:
		warning := AuthFallbackWarning{Operation: op, Target: target, Err: res.AuthErr}
		t.cfg.Logger.Warn("Authenticated request failed, retried without cookies", "operation", op, "target", target, "error", res.AuthErr)
		if t.cfg.OnFallback != nil {
			t.cfg.OnFallback(warning)
		}
	case fallback.BothFailed:
		t.cfg.Logger.Debug("Request failed", "operation", op, "target", target, "auth_error", res.AuthErr, "error", res.Err)
	}
	return res
}
