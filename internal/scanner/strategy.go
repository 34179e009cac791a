package scanner

import (
	"strings"

	"go-disaster-id-scan/internal/ocr"
)

// Candidate is one string that may hold a complete MRZ, together with the
// strategy that produced it and the mean OCR confidence of its lines.
type Candidate struct {
	Text       string
	Strategy   string
	Confidence float64
}

// CandidateStrategy defines how OCR lines are combined into MRZ candidates
type CandidateStrategy interface {
	Candidates(lines []ocr.Line) []Candidate
	GetStrategyName() string
}

// LineStrategy treats every line containing a filler as its own candidate.
// This covers OCR engines that return the whole MRZ as a single block.
type LineStrategy struct{}

// NewLineStrategy creates a new per-line strategy
func NewLineStrategy() CandidateStrategy {
	return &LineStrategy{}
}

func (s *LineStrategy) Candidates(lines []ocr.Line) []Candidate {
	var out []Candidate
	for _, line := range cleaned(lines) {
		if strings.ContainsRune(line.Text, '<') {
			out = append(out, Candidate{Text: line.Text, Strategy: s.GetStrategyName(), Confidence: line.Confidence})
		}
	}
	return out
}

func (s *LineStrategy) GetStrategyName() string {
	return "line"
}

// JoinStrategy concatenates runs of consecutive lines, two and three at a
// time, matching the row counts of the known layouts.
type JoinStrategy struct {
	sizes []int
}

// NewJoinStrategy creates a strategy that joins runs of 2 and 3 lines
func NewJoinStrategy() CandidateStrategy {
	return &JoinStrategy{sizes: []int{2, 3}}
}

func (s *JoinStrategy) Candidates(lines []ocr.Line) []Candidate {
	clean := cleaned(lines)
	var out []Candidate
	for _, size := range s.sizes {
		for i := 0; i+size <= len(clean); i++ {
			out = append(out, join(clean[i:i+size], s.GetStrategyName()))
		}
	}
	return out
}

func (s *JoinStrategy) GetStrategyName() string {
	return "join"
}

// BlockStrategy concatenates every line that contains a filler, skipping the
// printed text around the zone.
type BlockStrategy struct{}

// NewBlockStrategy creates a new block strategy
func NewBlockStrategy() CandidateStrategy {
	return &BlockStrategy{}
}

func (s *BlockStrategy) Candidates(lines []ocr.Line) []Candidate {
	var block []ocr.Line
	for _, line := range cleaned(lines) {
		if strings.ContainsRune(line.Text, '<') {
			block = append(block, line)
		}
	}
	if len(block) == 0 {
		return nil
	}
	return []Candidate{join(block, s.GetStrategyName())}
}

func (s *BlockStrategy) GetStrategyName() string {
	return "block"
}

// DefaultStrategies returns every built-in strategy
func DefaultStrategies() []CandidateStrategy {
	return []CandidateStrategy{
		NewLineStrategy(),
		NewJoinStrategy(),
		NewBlockStrategy(),
	}
}

// StrategyByName looks up a built-in strategy
func StrategyByName(name string) (CandidateStrategy, bool) {
	for _, s := range DefaultStrategies() {
		if s.GetStrategyName() == name {
			return s, true
		}
	}
	return nil, false
}

func cleaned(lines []ocr.Line) []ocr.Line {
	out := make([]ocr.Line, 0, len(lines))
	for _, line := range lines {
		text := ocr.CleanLine(line.Text)
		if text == "" {
			continue
		}
		out = append(out, ocr.Line{Text: text, Confidence: line.Confidence})
	}
	return out
}

func join(lines []ocr.Line, strategy string) Candidate {
	var b strings.Builder
	var confidence float64
	for _, line := range lines {
		b.WriteString(line.Text)
		confidence += line.Confidence
	}
	return Candidate{
		Text:       b.String(),
		Strategy:   strategy,
		Confidence: confidence / float64(len(lines)),
	}
}
