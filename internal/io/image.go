package ioutils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration (most video thumbnails)
)

// DefaultJPEGQuality is used when an ImageService is created with quality 0.
const DefaultJPEGQuality = 90

// ImageService provides image processing operations for cover art.
//
// ImageService is used to:
//   - Center-crop thumbnails to a square cover
//   - Flatten any color model to opaque RGB
//   - Optionally downscale to a maximum edge length
//   - Encode the result as JPEG
//
// Example usage:
//
//	svc := NewImageService(90)
//	cover, err := svc.SquareJPEG(ctx, thumbnailBytes, 0)
type ImageService struct {
	quality int
}

// NewImageService creates a new ImageService with the given JPEG quality (1-100).
func NewImageService(quality int) *ImageService {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &ImageService{quality: quality}
}

// SquareImage is the result of SquareJPEG.
type SquareImage struct {
	Data []byte
	Side int
}

// SquareJPEG decodes data, center-crops it to a square, optionally fits it
// within maxSize x maxSize (0 keeps the cropped size) and re-encodes it as JPEG.
func (s *ImageService) SquareJPEG(ctx context.Context, data []byte, maxSize int) (*SquareImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var out image.Image = CropSquare(img)
	if maxSize > 0 && out.Bounds().Dx() > maxSize {
		out = Fit(out, maxSize, maxSize)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &SquareImage{Data: buf.Bytes(), Side: out.Bounds().Dx()}, nil
}

// SquareCrop returns the largest centered square inside r.
//
// side = min(width, height); the origin is offset by (width-side)/2 and
// (height-side)/2 using integer division, so a 1920x1080 image yields the
// region (420,0)-(1500,1080).
func SquareCrop(r image.Rectangle) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	side := min(w, h)
	left := (w - side) / 2
	top := (h - side) / 2
	origin := r.Min.Add(image.Pt(left, top))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(side, side))}
}

// CropSquare copies the centered square of img into a new opaque RGBA image.
//
// Alpha is discarded rather than composited: each pixel keeps its
// non-premultiplied color with full opacity.
func CropSquare(img image.Image) *image.RGBA {
	src := SquareCrop(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
		return dst
	}

	for y := 0; y < src.Dy(); y++ {
		for x := 0; x < src.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(src.Min.X+x, src.Min.Y+y)).(color.NRGBA)
			dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return dst
}

// Fit scales img to fit within maxWidth x maxHeight, keeping the aspect ratio.
//
// The Catmull-Rom algorithm is used for high-quality resizing. Images that
// already fit are returned unchanged.
func Fit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxWidth && height <= maxHeight {
		return img
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		width = int(float64(maxHeight) * ratio)
		height = maxHeight
	} else {
		// Width is the limiting factor
		height = int(float64(maxWidth) / ratio)
		width = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
