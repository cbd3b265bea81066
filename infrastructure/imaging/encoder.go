// Package imaging turns uploaded image streams into inline base64 payloads
// for vision requests.
package imaging

import (
	"encoding/base64"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

var _ ports.ImageEncoder = (*Encoder)(nil)

// FallbackMIMEType is used when neither the filename nor the content
// identify the image.
const FallbackMIMEType = "application/octet-stream"

// Encoder reads an UploadedImage once and renders it as InlineImageData.
// It performs no resizing or re-encoding.
type Encoder struct {
	// Sniff enables content detection when the extension is unknown.
	Sniff bool
}

// NewEncoder returns an Encoder with content sniffing enabled.
func NewEncoder() *Encoder { return &Encoder{Sniff: true} }

// Encode reads img.Content fully. MIME inference never fails; the only
// error is a read failure, returned as *domain.EncodingError.
func (e *Encoder) Encode(img domain.UploadedImage) (domain.InlineImageData, error) {
	if img.Content == nil {
		return domain.InlineImageData{}, domain.NewEncodingError(img.Filename, io.ErrUnexpectedEOF)
	}

	data, err := io.ReadAll(img.Content)
	if err != nil {
		return domain.InlineImageData{}, domain.NewEncodingError(img.Filename, err)
	}

	return domain.InlineImageData{
		MIMEType: e.mimeType(img.Filename, data),
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (e *Encoder) mimeType(filename string, data []byte) string {
	if ext := filepath.Ext(filename); ext != "" {
		if t := stripParams(mime.TypeByExtension(strings.ToLower(ext))); t != "" {
			return t
		}
	}
	if e.Sniff && len(data) > 0 {
		if t := stripParams(mimetype.Detect(data).String()); t != "" {
			return t
		}
	}
	return FallbackMIMEType
}

func stripParams(t string) string {
	t, _, _ = strings.Cut(t, ";")
	return strings.TrimSpace(t)
}
