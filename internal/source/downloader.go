package source

import (
	"context"
)

// Downloader fetches and transcodes the audio of one entry.
type Downloader struct {
	tiered
}

// NewDownloader creates a Downloader over svc.
func NewDownloader(svc Service, cfg Config) *Downloader {
	return &Downloader{tiered: newTiered(svc, cfg)}
}

// Download writes the audio of locator to outputTemplate (ending in
// ".%(ext)s") and returns the committed path. When both tiers fail the
// result is a *DownloadError.
func (d *Downloader) Download(ctx context.Context, locator, outputTemplate string) (string, error) {
	res := do(ctx, d.tiered, "download", locator, func(ctx context.Context, cookies string) (string, error) {
		return d.svc.DownloadAudio(ctx, locator, outputTemplate, cookies)
	})
	if !res.OK() {
		return "", &DownloadError{Locator: locator, Message: "fetch audio", Original: res.Err}
	}
	return res.Value, nil
}
