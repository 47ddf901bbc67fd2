// Package cover acquires the album cover: it fetches a source image, either
// a track thumbnail or an arbitrary URL, and normalizes it to a square JPEG.
package cover

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ioutils "github.com/handiism/playlist-album/internal/io"
	"github.com/handiism/playlist-album/internal/model"
)

// ErrNoThumbnails is returned when an item publishes no usable thumbnail.
var ErrNoThumbnails = errors.New("no thumbnail candidates")

// ImageFetchError reports a cover source that could not be fetched or decoded.
type ImageFetchError struct {
	URL      string
	Message  string
	Original error
}

func (e *ImageFetchError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("cover image error: %s: %s: %v", e.Message, e.URL, e.Original)
	}
	return fmt.Sprintf("cover image error: %s: %s", e.Message, e.URL)
}

func (e *ImageFetchError) Unwrap() error {
	return e.Original
}

// Fetcher downloads raw bytes. *http.Client from internal/http satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Acquirer turns a cover source into a model.CoverImage.
type Acquirer struct {
	fetcher Fetcher
	images  *ioutils.ImageService
	maxSize int
}

// NewAcquirer creates an Acquirer. maxSize > 0 downsizes covers whose edge
// is larger than maxSize; 0 keeps the cropped source resolution.
func NewAcquirer(fetcher Fetcher, images *ioutils.ImageService, maxSize int) *Acquirer {
	return &Acquirer{fetcher: fetcher, images: images, maxSize: maxSize}
}

// FromThumbnails builds the cover from the best thumbnail of an item.
// See SelectThumbnail for how the candidate is chosen.
func (a *Acquirer) FromThumbnails(ctx context.Context, candidates []model.Thumbnail) (*model.CoverImage, error) {
	thumb, err := SelectThumbnail(candidates)
	if err != nil {
		return nil, &ImageFetchError{Message: "select thumbnail", Original: err}
	}
	return a.FromURL(ctx, thumb.URL)
}

// FromURL fetches url and normalizes it to a square JPEG cover.
func (a *Acquirer) FromURL(ctx context.Context, url string) (*model.CoverImage, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, &ImageFetchError{Message: "empty cover URL"}
	}

	data, err := a.fetcher.Get(ctx, url)
	if err != nil {
		return nil, &ImageFetchError{URL: url, Message: "fetch", Original: err}
	}

	square, err := a.images.SquareJPEG(ctx, data, a.maxSize)
	if err != nil {
		return nil, &ImageFetchError{URL: url, Message: "normalize", Original: err}
	}

	return &model.CoverImage{Data: square.Data, Side: square.Side, Source: url}, nil
}

// SelectThumbnail picks the highest-resolution candidate.
//
// When at least one candidate reports its dimensions the largest area wins
// (the later one on ties). Otherwise the last candidate is used, since the
// service lists thumbnails in ascending resolution.
func SelectThumbnail(candidates []model.Thumbnail) (model.Thumbnail, error) {
	var (
		usable []model.Thumbnail
		best   = -1
	)
	for _, c := range candidates {
		if strings.TrimSpace(c.URL) == "" {
			continue
		}
		usable = append(usable, c)
		if c.Area() > 0 && (best < 0 || c.Area() >= usable[best].Area()) {
			best = len(usable) - 1
		}
	}

	if len(usable) == 0 {
		return model.Thumbnail{}, ErrNoThumbnails
	}
	if best >= 0 {
		return usable[best], nil
	}
	return usable[len(usable)-1], nil
}
