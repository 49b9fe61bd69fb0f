package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxUploadSize in bytes (10MB)
const MaxUploadSize int64 = 10 * 1024 * 1024

// SourcePhoto is a normalized uploaded photo ready for storage
type SourcePhoto struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// ColoringPage is an encoded generation result with its print thumbnail.
// The page itself is always PNG so the line art survives without JPEG
// artifacts around the edges.
type ColoringPage struct {
	Page        []byte
	Thumbnail   []byte
	Width       int
	Height      int
	ThumbWidth  int
	ThumbHeight int
}

// Config for image processing
type Config struct {
	MaxWidth    int // Max width for uploaded photos (default 2000)
	MaxHeight   int // Max height for uploaded photos (default 2000)
	ThumbWidth  int // Thumbnail width (default 256)
	ThumbHeight int // Thumbnail height (default 256)
	Quality     int // JPEG quality for source photos (default 85)
}

// DefaultConfig returns default processing config
func DefaultConfig() Config {
	return Config{
		MaxWidth:    2000,
		MaxHeight:   2000,
		ThumbWidth:  256,
		ThumbHeight: 256,
		Quality:     85,
	}
}

// Processor prepares uploaded photos and generated pages for storage
type Processor struct {
	config Config
}

// NewProcessor creates image processor
func NewProcessor(config Config) *Processor {
	return &Processor{config: config}
}

// PrepareSource decodes an uploaded photo and resizes it down to the
// configured bounds. The returned bytes keep the upload's format where
// possible.
func (p *Processor) PrepareSource(reader io.Reader) (*SourcePhoto, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := img
	if img.Bounds().Dx() > p.config.MaxWidth || img.Bounds().Dy() > p.config.MaxHeight {
		resized = imaging.Fit(img, p.config.MaxWidth, p.config.MaxHeight, imaging.Lanczos)
	}

	encoded, err := p.encode(resized, format)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &SourcePhoto{
		Data:        encoded,
		ContentType: mimeFromFormat(format),
		Width:       resized.Bounds().Dx(),
		Height:      resized.Bounds().Dy(),
	}, nil
}

// PrepareResult re-encodes a generated coloring page as PNG and builds its
// gallery thumbnail.
func (p *Processor) PrepareResult(data []byte) (*ColoringPage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode generated image: %w", err)
	}

	var pageBuf bytes.Buffer
	if err := png.Encode(&pageBuf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}

	thumb := imaging.Fit(img, p.config.ThumbWidth, p.config.ThumbHeight, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := png.Encode(&thumbBuf, thumb); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &ColoringPage{
		Page:        pageBuf.Bytes(),
		Thumbnail:   thumbBuf.Bytes(),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ThumbWidth:  thumb.Bounds().Dx(),
		ThumbHeight: thumb.Bounds().Dy(),
	}, nil
}

// ValidateType checks if file is a supported image type
func ValidateType(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	default:
		return false
	}
}

// ValidateSize checks if file size is within limits (in bytes)
func ValidateSize(size int64, maxSize int64) bool {
	return size <= maxSize
}

func (p *Processor) encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.config.Quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func mimeFromFormat(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
