package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-disaster-id-scan/internal/ocr"
)

func linesOf(texts ...string) []ocr.Line {
	lines := make([]ocr.Line, 0, len(texts))
	for _, text := range texts {
		lines = append(lines, ocr.Line{Text: text, Confidence: 50})
	}
	return lines
}

func TestLineStrategy(t *testing.T) {
	candidates := NewLineStrategy().Candidates(linesOf("REPUBLIK", "IDD<<T22", "  ", "mustermann<<erika"))
	require.Len(t, candidates, 2)
	assert.Equal(t, "IDD<<T22", candidates[0].Text)
	assert.Equal(t, "MUSTERMANN<<ERIKA", candidates[1].Text)
	assert.Equal(t, "line", candidates[0].Strategy)
}

func TestJoinStrategy(t *testing.T) {
	candidates := NewJoinStrategy().Candidates(linesOf("A", "B", "C", "D"))

	var texts []string
	for _, c := range candidates {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"AB", "BC", "CD", "ABC", "BCD"}, texts)
}

func TestJoinStrategy_TooFewLines(t *testing.T) {
	assert.Empty(t, NewJoinStrategy().Candidates(linesOf("ONLY<LINE")))
}

func TestBlockStrategy(t *testing.T) {
	lines := []ocr.Line{
		{Text: "PASSPORT", Confidence: 99},
		{Text: "P<UTO", Confidence: 80},
		{Text: "L898<", Confidence: 60},
	}
	candidates := NewBlockStrategy().Candidates(lines)
	require.Len(t, candidates, 1)
	assert.Equal(t, "P<UTOL898<", candidates[0].Text)
	assert.Equal(t, 70.0, candidates[0].Confidence)

	assert.Empty(t, NewBlockStrategy().Candidates(linesOf("NO", "FILLERS")))
}

func TestStrategyByName(t *testing.T) {
	for _, name := range []string{"line", "join", "block"} {
		s, ok := StrategyByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, s.GetStrategyName())
	}
	_, ok := StrategyByName("fuzzy")
	assert.False(t, ok)
}

func TestMeasureAccuracy(t *testing.T) {
	expected := "IDD<<T220001293<<<<<<<<<<<<<<<\n8803218F3103315D<<<<<<<<<<<<<0\nMUSTERMANN<<ERIKA<<<<<<<<<<<<<"

	exact := MeasureAccuracy(expected, expected)
	assert.True(t, exact.Exact)
	assert.Zero(t, exact.EditDistance)
	assert.Zero(t, exact.CER)
	assert.Zero(t, exact.WER)

	oneOff := MeasureAccuracy(expected, "IDD<<T220001298<<<<<<<<<<<<<<<8803218F3103315D<<<<<<<<<<<<<0MUSTERMANN<<ERIKA<<<<<<<<<<<<<")
	assert.False(t, oneOff.Exact)
	assert.Equal(t, 1, oneOff.EditDistance)
	assert.InDelta(t, 1.0/90, oneOff.CER, 1e-9)
	assert.Greater(t, oneOff.WER, 0.0)
	assert.Less(t, oneOff.WER, 0.5)

	empty := MeasureAccuracy("", "ABC")
	assert.Equal(t, 1.0, empty.CER)
	assert.Equal(t, 3, empty.EditDistance)
}
