// Package domain holds the entities of a dual-eye report run: eye sides,
// exam types, uploaded and encoded images, per-image analysis results,
// synthesized reports and the cost model. Nothing in this package performs
// I/O beyond reading the image streams handed to it.
package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"regexp"
)

// EyeSide is the partition key for every per-image and per-report value.
type EyeSide string

const (
	// EyeRight is the right eye (OD).
	EyeRight EyeSide = "right"
	// EyeLeft is the left eye (OS).
	EyeLeft EyeSide = "left"
)

// Valid reports whether s is one of the two known sides.
func (s EyeSide) Valid() bool { return s == EyeRight || s == EyeLeft }

// String implements fmt.Stringer.
func (s EyeSide) String() string { return string(s) }

// ExamType is the modality of the ophthalmic test. It selects a layout
// template and is otherwise passed verbatim into the prompts.
type ExamType string

// Exam types with built-in layouts. The set is open: any tag the layout
// store knows about is accepted.
const (
	ExamOCTMacula    ExamType = "oct_macula"
	ExamRetinografia ExamType = "retinografia"
	ExamCampimetria  ExamType = "campimetria"
)

// KnownExamTypes lists the exam types shipped with default layouts.
var KnownExamTypes = []ExamType{ExamOCTMacula, ExamRetinografia, ExamCampimetria}

// IsKnown reports whether e is one of KnownExamTypes.
func (e ExamType) IsKnown() bool {
	for _, k := range KnownExamTypes {
		if e == k {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (e ExamType) String() string { return string(e) }

var examTagPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// WellFormed reports whether e is a lowercase snake_case tag.
func (e ExamType) WellFormed() bool { return examTagPattern.MatchString(string(e)) }

// UploadedImage is one image supplied by the caller for one eye.
// Content is read exactly once by the encoder.
type UploadedImage struct {
	// Side tags the eye this image belongs to.
	Side EyeSide
	// Filename is the declared name, used for MIME inference.
	Filename string
	// Content is the raw image stream.
	Content io.Reader
}

// NewUploadedImage wraps in-memory bytes as an UploadedImage.
func NewUploadedImage(side EyeSide, filename string, data []byte) UploadedImage {
	return UploadedImage{Side: side, Filename: filename, Content: bytes.NewReader(data)}
}

// InlineImageData is an image in transportable form: a MIME type and a
// base64 payload. It is derived per analysis call and never mutated.
type InlineImageData struct {
	MIMEType string
	Base64   string
}

// DataURL renders the image as a data URL suitable for image_url parts.
func (d InlineImageData) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", d.MIMEType, d.Base64)
}

// Bytes decodes the payload back to raw bytes for providers that take
// binary inline parts.
func (d InlineImageData) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(d.Base64)
}
