package scanner

import (
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"

	"go-disaster-id-scan/internal/mrz"
)

// Accuracy compares a decoded MRZ with the one an operator typed in from the
// document, so OCR setups can be tuned against known samples.
type Accuracy struct {
	// WER is computed over the filler-separated tokens of the zone.
	WER float64 `json:"wer"`
	// CER is the character edit distance divided by the expected length.
	CER          float64 `json:"cer"`
	EditDistance int     `json:"edit_distance"`
	Exact        bool    `json:"exact"`
}

// MeasureAccuracy scores got against expected. Both are normalized first so
// that line breaks and case do not count as errors.
func MeasureAccuracy(expected, got string) Accuracy {
	expected = mrz.Normalize(expected)
	got = mrz.Normalize(got)

	result := Accuracy{Exact: expected == got}
	if expected == "" {
		if got != "" {
			result.WER, result.CER = 1, 1
			result.EditDistance = len(got)
		}
		return result
	}

	result.EditDistance = levenshtein.Distance(expected, got)
	result.CER = float64(result.EditDistance) / float64(len(expected))

	ref := tokens(expected)
	if len(ref) > 0 {
		result.WER, _ = wer.WER(ref, tokens(got))
	}
	return result
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == mrz.Filler })
}
