package download

import (
	"errors"
	"fmt"
)

// ErrRunLocked is returned when another run holds the album directory lock.
var ErrRunLocked = errors.New("album directory is locked by another run")

// UserInputError reports an operator answer that cannot be used.
type UserInputError struct {
	Field   string
	Message string
}

func (e *UserInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Stage names the per-track step a TrackFailure happened in.
type Stage string

const (
	StageDownload Stage = "download"
	StageTag      Stage = "tag"
)

// TrackFailure records a track that did not produce a tagged file.
type TrackFailure struct {
	TrackNumber int
	Title       string
	Stage       Stage
	Err         error
}

func (f TrackFailure) Error() string {
	return fmt.Sprintf("track %02d %q: %s: %v", f.TrackNumber, f.Title, f.Stage, f.Err)
}

func (f TrackFailure) Unwrap() error {
	return f.Err
}
