// Package ocr turns captured frames into text lines that may contain an MRZ.
//
// Two engines are provided: TesseractEngine, which wraps Tesseract through
// gosseract and is compiled only with the "ocr" build tag, and TextEngine,
// which accepts text recognized elsewhere (for example on the capturing
// device) and splits it into lines.
package ocr

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MRZAlphabet is the set of characters that may appear in an MRZ.
const MRZAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

var (
	// ErrEmptyFrame is returned when an engine is given no data.
	ErrEmptyFrame = errors.New("ocr: empty frame")

	// ErrOCRNotEnabled is returned when Tesseract support was not compiled in.
	// Rebuild with -tags ocr (and Tesseract installed) to enable it.
	ErrOCRNotEnabled = errors.New("ocr: tesseract support not enabled; rebuild with -tags ocr")
)

// Line is one line of recognized text.
type Line struct {
	Text string `json:"text"`
	// Confidence is on Tesseract's 0-100 scale.
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text lines in an encoded image.
type Engine interface {
	Recognize(ctx context.Context, frame []byte) ([]Line, error)
	Name() string
	Close() error
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanLine maps OCR output onto the MRZ alphabet: diacritics are stripped,
// letters uppercased, angle quotes read as fillers, and everything else
// (including spaces) dropped.
func CleanLine(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '«':
			b.WriteString("<<")
		case r == '‹':
			b.WriteByte('<')
		case r < unicode.MaxASCII && strings.ContainsRune(MRZAlphabet, unicode.ToUpper(r)):
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// TextEngine treats the frame as already-recognized UTF-8 text.
type TextEngine struct{}

// NewTextEngine creates a text passthrough engine.
func NewTextEngine() *TextEngine {
	return &TextEngine{}
}

// Recognize splits frame into non-empty lines.
func (e *TextEngine) Recognize(ctx context.Context, frame []byte) ([]Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}

	var lines []Line
	for _, raw := range strings.Split(string(frame), "\n") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		lines = append(lines, Line{Text: text, Confidence: 100})
	}
	return lines, nil
}

func (e *TextEngine) Name() string {
	return "text"
}

func (e *TextEngine) Close() error {
	return nil
}
