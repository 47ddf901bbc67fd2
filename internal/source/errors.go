package source

import (
	"errors"
	"fmt"
)

// ErrEmptyPlaylist is returned when a playlist resolves to zero entries.
var ErrEmptyPlaylist = errors.New("playlist has no entries")

// MetadataFetchError reports playlist or item metadata that could not be
// fetched or parsed.
type MetadataFetchError struct {
	URL      string
	Message  string
	Original error
}

func (e *MetadataFetchError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("metadata error for %s: %s: %v", e.URL, e.Message, e.Original)
	}
	return fmt.Sprintf("metadata error for %s: %s", e.URL, e.Message)
}

func (e *MetadataFetchError) Unwrap() error {
	return e.Original
}

// DownloadError reports a track whose audio could not be fetched, with or
// without the credential.
type DownloadError struct {
	Locator  string
	Message  string
	Original error
}

func (e *DownloadError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("download error for %s: %s: %v", e.Locator, e.Message, e.Original)
	}
	return fmt.Sprintf("download error for %s: %s", e.Locator, e.Message)
}

func (e *DownloadError) Unwrap() error {
	return e.Original
}

// AuthFallbackWarning describes an authenticated request that failed and was
// retried successfully without the credential. It is never returned as an
// error; it is passed to Config.OnFallback.
type AuthFallbackWarning struct {
	Operation string
	Target    string
	Err       error
}

func (w AuthFallbackWarning) Error() string {
	return fmt.Sprintf("%s %s: authenticated request failed, continued without credential: %v", w.Operation, w.Target, w.Err)
}
