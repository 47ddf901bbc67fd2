package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/handiism/playlist-album/internal/model"
	"github.com/tidwall/gjson"
)

// Resolver turns a URL into playlist and item metadata.
type Resolver struct {
	tiered
}

// NewResolver creates a Resolver over svc.
func NewResolver(svc Service, cfg Config) *Resolver {
	return &Resolver{tiered: newTiered(svc, cfg)}
}

// ResolvePlaylist fetches the flat listing of url.
//
// Entries are returned sorted by ascending playlist index. Entries without
// an index take, in response order, the smallest positive numbers that no
// explicit index uses. A URL that points to a single item yields a
// one-entry playlist with Single set.
func (r *Resolver) ResolvePlaylist(ctx context.Context, url string) (*model.Playlist, error) {
	res := do(ctx, r.tiered, "resolve playlist", url, func(ctx context.Context, cookies string) ([]byte, error) {
		return r.svc.ExtractPlaylist(ctx, url, cookies)
	})
	if !res.OK() {
		return nil, &MetadataFetchError{URL: url, Message: "fetch playlist", Original: res.Err}
	}

	playlist, err := parsePlaylist(url, res.Value)
	if err != nil {
		return nil, &MetadataFetchError{URL: url, Message: "parse playlist", Original: err}
	}
	return playlist, nil
}

// FetchItem fetches the full metadata of one entry, including its thumbnails.
func (r *Resolver) FetchItem(ctx context.Context, locator string) (*model.Item, error) {
	res := do(ctx, r.tiered, "fetch item", locator, func(ctx context.Context, cookies string) ([]byte, error) {
		return r.svc.ExtractItem(ctx, locator, cookies)
	})
	if !res.OK() {
		return nil, &MetadataFetchError{URL: locator, Message: "fetch item", Original: res.Err}
	}

	item, err := parseItem(locator, res.Value)
	if err != nil {
		return nil, &MetadataFetchError{URL: locator, Message: "parse item", Original: err}
	}
	return item, nil
}

func parsePlaylist(url string, data []byte) (*model.Playlist, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON document")
	}
	doc := gjson.ParseBytes(data)

	playlist := &model.Playlist{
		ID:         doc.Get("id").String(),
		URL:        url,
		Title:      strings.TrimSpace(doc.Get("title").String()),
		Uploader:   firstString(doc, "uploader", "channel", "uploader_id"),
		UploadDate: firstString(doc, "upload_date", "modified_date", "release_date"),
	}

	entries := doc.Get("entries")
	if !entries.IsArray() {
		playlist.Single = true
		playlist.Entries = []*model.TrackRef{{
			SourceTitle:   playlist.Title,
			Locator:       firstNonEmpty(firstString(doc, "webpage_url", "original_url"), url),
			PlaylistIndex: 1,
			Duration:      doc.Get("duration").Float(),
		}}
		return playlist, nil
	}

	used := make(map[int]bool)
	var unindexed []*model.TrackRef
	entries.ForEach(func(_, e gjson.Result) bool {
		if !e.IsObject() {
			return true
		}
		ref := &model.TrackRef{
			SourceTitle:   strings.TrimSpace(e.Get("title").String()),
			Locator:       firstString(e, "url", "webpage_url", "id"),
			PlaylistIndex: int(e.Get("playlist_index").Int()),
			Duration:      e.Get("duration").Float(),
		}
		if ref.Locator == "" {
			return true
		}
		if ref.PlaylistIndex > 0 {
			used[ref.PlaylistIndex] = true
		} else {
			unindexed = append(unindexed, ref)
		}
		playlist.Entries = append(playlist.Entries, ref)
		return true
	})

	if len(playlist.Entries) == 0 {
		return nil, ErrEmptyPlaylist
	}

	next := 1
	for _, ref := range unindexed {
		for used[next] {
			next++
		}
		ref.PlaylistIndex = next
		used[next] = true
	}

	model.SortEntries(playlist.Entries)
	return playlist, nil
}

func parseItem(locator string, data []byte) (*model.Item, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON document")
	}
	doc := gjson.ParseBytes(data)

	item := &model.Item{
		ID:       doc.Get("id").String(),
		Title:    strings.TrimSpace(doc.Get("title").String()),
		Locator:  firstNonEmpty(doc.Get("webpage_url").String(), locator),
		Duration: doc.Get("duration").Float(),
	}

	doc.Get("thumbnails").ForEach(func(_, t gjson.Result) bool {
		if u := t.Get("url").String(); u != "" {
			item.Thumbnails = append(item.Thumbnails, model.Thumbnail{
				URL:    u,
				Width:  int(t.Get("width").Int()),
				Height: int(t.Get("height").Int()),
			})
		}
		return true
	})

	if len(item.Thumbnails) == 0 {
		if u := doc.Get("thumbnail").String(); u != "" {
			item.Thumbnails = []model.Thumbnail{{URL: u}}
		}
	}

	return item, nil
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := strings.TrimSpace(r.Get(p).String()); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
