package analyzer

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/menta2k/dataset-labeller/pkg/types"
)

// ErrNotImage is returned when a file exists but cannot be read as an image
var ErrNotImage = errors.New("not a readable image")

// ImageAnalyzer reads image metadata without decoding pixels
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{
		config: Config{
			SupportedFormats: []string{"jpeg", "png", "webp"},
		},
	}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// ImageInfo contains the pixel size of an image
type ImageInfo struct {
	Width  int
	Height int
}

// Dimensions returns the pixel width and height of the image at path
func (a *ImageAnalyzer) Dimensions(path string) (int, int, error) {
	info, err := a.Info(path)
	if err != nil {
		return 0, 0, err
	}
	return info.Width, info.Height, nil
}

// Info reads the image header at path
func (a *ImageAnalyzer) Info(path string) (ImageInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ImageInfo{}, fmt.Errorf("%w: image %s", types.ErrNotFound, path)
		}
		return ImageInfo{}, fmt.Errorf("%w: failed to open image file: %w", types.ErrIO, err)
	}
	defer file.Close()

	info, err := a.InfoFromReader(file)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// InfoFromReader reads image metadata from an io.Reader
func (a *ImageAnalyzer) InfoFromReader(reader io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(reader)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: failed to decode image header: %v", ErrNotImage, err)
	}

	if !a.isFormatSupported(format) {
		return ImageInfo{}, fmt.Errorf("%w: unsupported image format: %s", ErrNotImage, format)
	}

	return ImageInfo{Width: cfg.Width, Height: cfg.Height}, nil
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}
