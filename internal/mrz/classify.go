package mrz

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnrecognizedFormat is returned when a candidate matches no known layout.
var ErrUnrecognizedFormat = errors.New("mrz: unrecognized format")

// Length windows accept up to two characters of OCR noise around the nominal
// totals (72 for TD2, 90 for TD1).
const (
	travelDocumentMinLen = 70
	travelDocumentMaxLen = 73
	idCardMinLen         = 88
	idCardMaxLen         = 91
)

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize removes all whitespace from candidate, strips diacritics and
// uppercases it. Characters still outside ASCII become fillers, so positions
// in the result count characters and bytes alike.
func Normalize(candidate string) string {
	folded, _, err := transform.String(foldMarks, candidate)
	if err != nil {
		folded = candidate
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsSpace(r) {
			continue
		}
		r = unicode.ToUpper(r)
		if r >= utf8.RuneSelf {
			r = Filler
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Classify selects the layout of a candidate MRZ. The leading document code
// letter wins over length: P is always a passport, A always a travel document.
func Classify(candidate string) (Layout, error) {
	s := Normalize(candidate)
	n := len(s)

	switch {
	case n == 0:
		return Layout{}, ErrUnrecognizedFormat
	case s[0] == 'P':
		return Passport, nil
	case s[0] == 'A' || (n >= travelDocumentMinLen && n <= travelDocumentMaxLen):
		return TravelDocument, nil
	case n >= idCardMinLen && n <= idCardMaxLen:
		return IDCard, nil
	default:
		return Layout{}, ErrUnrecognizedFormat
	}
}
