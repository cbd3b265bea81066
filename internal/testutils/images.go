// Package testutils provides deterministic test doubles and fixtures for
// the report pipeline.
package testutils

import (
	"errors"
	"fmt"

	"github.com/ahrav/go-eyereport/internal/domain"
)

// OnePixelPNG is a valid 1x1 transparent PNG.
var OnePixelPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Images returns n fresh one-pixel PNG uploads for side, named
// "<side>_<i>.png". Each call returns new readers.
func Images(side domain.EyeSide, n int) []domain.UploadedImage {
	images := make([]domain.UploadedImage, n)
	for i := range images {
		images[i] = domain.NewUploadedImage(side, fmt.Sprintf("%s_%d.png", side, i), OnePixelPNG)
	}
	return images
}

// ErrUnreadable is returned by an UnreadableImage's reader.
var ErrUnreadable = errors.New("unreadable image")

// UnreadableImage returns an upload whose content fails on first read.
func UnreadableImage(side domain.EyeSide, filename string) domain.UploadedImage {
	return domain.UploadedImage{Side: side, Filename: filename, Content: failingReader{}}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, ErrUnreadable }
