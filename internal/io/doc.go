// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Filename sanitization with a configurable policy
//   - Directory creation and atomic file writes
//   - Cleaning up partial download leftovers
//   - Square cover art: center-crop, RGB flattening, resizing, JPEG encoding
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("AC/DC: Live", ioutils.SanitizeStrip)            // "ACDC Live"
//	safe = ioutils.SanitizeFileName("AC/DC: Live", ioutils.SanitizeSlashToSeparator) // "AC - DC Live"
//
// # Image Processing
//
//	svc := ioutils.NewImageService(90)
//	cover, _ := svc.SquareJPEG(ctx, thumbnailBytes, 0)
package ioutils
