package ioutils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// SanitizeMode selects how path-illegal characters are handled.
type SanitizeMode int

const (
	// SanitizeStrip deletes forbidden characters outright.
	SanitizeStrip SanitizeMode = iota

	// SanitizeSlashToSeparator turns "/" into " - " first, then strips
	// the remaining forbidden characters. Useful for titles such as
	// "Side A/Side B".
	SanitizeSlashToSeparator
)

// ParseSanitizeMode maps a settings string to a SanitizeMode.
//
// Accepted values are "strip" and "slash-separator". Anything else
// falls back to SanitizeStrip.
func ParseSanitizeMode(s string) SanitizeMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slash-separator", "slash-to-separator", "separator":
		return SanitizeSlashToSeparator
	default:
		return SanitizeStrip
	}
}

// String returns the settings representation of the mode.
func (m SanitizeMode) String() string {
	if m == SanitizeSlashToSeparator {
		return "slash-separator"
	}
	return "strip"
}

var (
	invalidChars    = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots    = regexp.MustCompile(`\.+$`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	slashSeparators = regexp.MustCompile(`\s*/\s*`)
)

// SanitizeFileName makes a display string safe to use as a file or folder name.
//
// The following transformations are applied:
//   - with SanitizeSlashToSeparator, "/" (and surrounding spaces) → " - "
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → removed
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Leading and trailing whitespace → removed
//
// An empty input yields an empty string.
//
// Example:
//
//	SanitizeFileName("AC/DC: Live?", SanitizeStrip)            // "ACDC Live"
//	SanitizeFileName("AC/DC: Live?", SanitizeSlashToSeparator) // "AC - DC Live"
func SanitizeFileName(name string, mode SanitizeMode) string {
	if name == "" {
		return ""
	}

	if mode == SanitizeSlashToSeparator {
		name = slashSeparators.ReplaceAllString(name, " - ")
	}

	name = invalidChars.ReplaceAllString(name, "")
	name = whitespaceRuns.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = trailingDots.ReplaceAllString(name, "")

	return strings.TrimSpace(name)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteFile writes data to path atomically by writing a sibling temp file
// and renaming it into place.
func WriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// ListWithPrefix returns the names of files in dir that are exactly base or
// start with base followed by a dot (base.mp3, base.webm.part, ...). A
// missing dir yields no names.
func ListWithPrefix(dir, base string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == base || strings.HasPrefix(name, base+".") {
			names = append(names, name)
		}
	}
	return names, nil
}

// RemoveWithPrefix deletes the files ListWithPrefix reports, except the names
// in keep. It returns the names that were removed.
func RemoveWithPrefix(dir, base string, keep ...string) ([]string, error) {
	names, err := ListWithPrefix(dir, base)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, name := range names {
		if slices.Contains(keep, name) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}
