// Package imageio wraps image decoding, cropping, and encoding behind a
// small provider used by the processing tools. Codec work is delegated to
// the imaging library plus format-specific encoders.
package imageio

import (
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff" // register TIFF decoder

	"github.com/retileup/retileup/internal/geometry"
)

// DefaultQuality is used for lossy formats when no quality is configured.
const DefaultQuality = 95

// OpenExtent reads only the image header and returns its pixel dimensions.
// The full pixel data is not decoded.
func OpenExtent(path string) (geometry.ImageExtent, error) {
	f, err := os.Open(path)
	if err != nil {
		return geometry.ImageExtent{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return geometry.ImageExtent{}, fmt.Errorf("failed to decode image header for %s: %w", path, err)
	}

	return geometry.ImageExtent{Width: cfg.Width, Height: cfg.Height}, nil
}

// Load decodes the full image, applying EXIF auto-orientation so tile
// coordinates refer to the image as displayed.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Crop extracts the rectangle from the image as a new NRGBA image.
func Crop(img image.Image, rect geometry.Rect) *image.NRGBA {
	return imaging.Crop(img, image.Rect(rect.X, rect.Y, rect.Right(), rect.Bottom()))
}

// Save encodes the image to path. The format is taken from the format
// argument if non-empty, otherwise from the path extension. Quality applies
// to lossy formats; zero means DefaultQuality.
func Save(img image.Image, path, format string, quality int) error {
	if format == "" {
		format = filepath.Ext(path)
	}
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if quality <= 0 {
		quality = DefaultQuality
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	switch format {
	case "jpg", "jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
	case "png":
		err = png.Encode(f, img)
	case "webp":
		err = webp.Encode(f, img, &webp.Options{Quality: float32(quality)})
	case "bmp":
		err = bmp.Encode(f, img)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s image: %w", format, err)
	}
	return nil
}

// CanEncode reports whether Save carries an encoder for the format. Decodable
// inputs like GIF and TIFF have no encoder here.
func CanEncode(format string) bool {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "jpg", "jpeg", "png", "webp", "bmp":
		return true
	}
	return false
}

// NormalizeFormat maps a file extension or format alias onto the canonical
// encoder name, or returns an error for unsupported formats.
func NormalizeFormat(format string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "jpg", "jpeg":
		return "jpeg", nil
	case "png":
		return "png", nil
	case "webp":
		return "webp", nil
	case "bmp":
		return "bmp", nil
	case "":
		return "", fmt.Errorf("empty image format")
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}
