package audio

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/handiism/playlist-album/internal/model"
)

// PlaylistCreator renders an album playlist file.
//
// Entries are written as bare file names, so the playlist is expected to sit
// next to the tracks in the album folder.
//
// Example:
//
//	creator := NewPlaylistCreator(model.PlaylistFormatM3U, true)
//	content := creator.CreatePlaylist(album, report.Succeeded)
//
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// 01 - Song Title.mp3
type PlaylistCreator struct {
	format   model.PlaylistFormat
	extended bool // M3U only: emit #EXTINF lines
}

// NewPlaylistCreator creates a new PlaylistCreator.
func NewPlaylistCreator(format model.PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{format: format, extended: extended}
}

// CreatePlaylist renders tracks, which must already have a committed Path,
// in the given order.
func (p *PlaylistCreator) CreatePlaylist(album *model.Album, tracks []*model.Track) string {
	switch p.format {
	case model.PlaylistFormatPLS:
		return p.createPLS(tracks)
	case model.PlaylistFormatWPL:
		return p.createSMIL(album, tracks, false)
	case model.PlaylistFormatZPL:
		return p.createSMIL(album, tracks, true)
	default:
		return p.createM3U(album, tracks)
	}
}

func (p *PlaylistCreator) createM3U(album *model.Album, tracks []*model.Track) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}
	for _, track := range tracks {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:%d,%s - %s\n", int(track.Duration), album.Artist, track.Title)
		}
		sb.WriteString(filepath.Base(track.Path) + "\n")
	}

	return sb.String()
}

func (p *PlaylistCreator) createPLS(tracks []*model.Track) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	for i, track := range tracks {
		n := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", n, filepath.Base(track.Path))
		fmt.Fprintf(&sb, "Title%d=%s\n", n, track.Title)
		fmt.Fprintf(&sb, "Length%d=%d\n", n, int(track.Duration))
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\nVersion=2\n", len(tracks))

	return sb.String()
}

// createSMIL renders the WPL or, with zune set, the ZPL flavour. ZPL adds
// per-entry album, artist, title and duration attributes.
func (p *PlaylistCreator) createSMIL(album *model.Album, tracks []*model.Track, zune bool) string {
	var sb strings.Builder

	if zune {
		sb.WriteString("<?zpl version=\"2.0\"?>\n")
	} else {
		sb.WriteString("<?wpl version=\"1.0\"?>\n")
	}
	sb.WriteString("<smil>\n  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(album.Title))
	if zune {
		sb.WriteString("    <meta name=\"Generator\" content=\"playlist-dl\"/>\n")
		fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(tracks))
	}
	sb.WriteString("  </head>\n  <body>\n    <seq>\n")

	for _, track := range tracks {
		src := escapeXML(filepath.Base(track.Path))
		if !zune {
			fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", src)
			continue
		}
		fmt.Fprintf(&sb, "      <media src=\"%s\" albumTitle=\"%s\" albumArtist=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\" duration=\"%d\"/>\n",
			src,
			escapeXML(album.Title),
			escapeXML(album.Artist),
			escapeXML(track.Title),
			escapeXML(album.Artist),
			int64(track.Duration*1000))
	}

	sb.WriteString("    </seq>\n  </body>\n</smil>\n")

	return sb.String()
}

func escapeXML(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
