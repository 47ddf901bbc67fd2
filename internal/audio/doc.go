// Package audio writes the finished album: ID3 frames into each track and
// an optional playlist file next to the tracks.
//
// # Tagging
//
//	tagger := audio.NewTagger()
//	err := tagger.EmbedTrack(track, cover)
//
// Six frames are managed: title, artist, album, year, track number and the
// front cover. Calling EmbedTrack again on the same file rewrites those
// frames without duplicating them.
//
// # Playlists
//
//	creator := audio.NewPlaylistCreator(model.PlaylistFormatM3U, true)
//	content := creator.CreatePlaylist(album, tracks)
//
// Supported formats are M3U (optionally extended), PLS, WPL and ZPL.
package audio
