// Package model defines the core data structures used throughout
// the playlist-album application.
//
// # Playlist
//
// Playlist is the resolved, ordered metadata of a remote playlist:
//
//	model.SortEntries(playlist.Entries) // ascending PlaylistIndex, stable
//	meta := playlist.DefaultAlbumMetadata(time.Now())
//
// # Album and Track
//
// Album holds the album tags and computed output paths; Track is one planned
// output file:
//
//	album := model.NewAlbum(meta, pathConfig)
//	track := model.NewTrack(album, 1, ref, "Song Title", trackConfig)
//	fmt.Println(track.OutputTemplate()) // "Downloads/Album/01 - Song Title.%(ext)s"
//
// Available placeholders: {artist}, {album}, {year} for folders and
// additionally {title}, {tracknum} for track file names.
package model
