// Package download orchestrates one run of the playlist-to-album pipeline.
//
// # Pipeline
//
// The Pipeline sequences the run:
//
//  1. Resolve the playlist (fatal on failure)
//  2. Plan: album metadata with operator overrides, display titles, cover source
//  3. Lock the album directory and acquire the cover once
//  4. Download and tag every track in track-number order
//  5. Write the playlist file (optional)
//
// # Basic Usage
//
//	pipeline := download.New(settings, logger, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	playlist, err := pipeline.Resolve(ctx, "https://www.youtube.com/playlist?list=...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	plan, err := pipeline.Plan(playlist, download.Answers{Artist: "Someone"})
//	if err != nil {
//	    log.Fatal(err) // *UserInputError
//	}
//
//	report, err := pipeline.Run(ctx, plan)
//
// # Failures
//
// A track whose download fails, even after the unauthenticated retry, is
// reported in Report.Failed and leaves no file; the remaining tracks are
// still processed. Run returns an error only when nothing could be produced:
// the album directory, its lock or the cover could not be obtained.
//
// # Concurrency
//
// Tracks are processed one at a time unless MaxConcurrentTracksDownload is
// raised. Each track is tagged only after its own download committed.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message   string
//	    Level     ProgressLevel // Info, Verbose, Warning, Error, Success
//	    TrackDone bool
//	}
package download
