// Package scanner turns captured frames into decoded MRZ identities: it gates
// the frame on image quality, runs OCR, builds candidate strings from the
// recognized lines and keeps the candidate that decodes best.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go-disaster-id-scan/internal/capture"
	"go-disaster-id-scan/internal/logger"
	"go-disaster-id-scan/internal/mrz"
	"go-disaster-id-scan/internal/ocr"
)

// ErrNoMRZFound is returned when no OCR line combination matches a layout.
var ErrNoMRZFound = errors.New("scanner: no machine-readable zone found")

// QualityError is returned when a frame fails the quality gate.
type QualityError struct {
	Assessment capture.Assessment
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("frame rejected: %s", strings.Join(e.Assessment.Messages(), "; "))
}

// Result is the best decoding found in one frame.
type Result struct {
	Identity   *mrz.Identity       `json:"identity"`
	Candidate  string              `json:"candidate"`
	Strategy   string              `json:"strategy"`
	Confidence float64             `json:"confidence"`
	Quality    *capture.Assessment `json:"quality,omitempty"`
	Lines      []string            `json:"lines,omitempty"`
}

// Scanner is safe for concurrent use when its OCR engine is.
type Scanner struct {
	engine     ocr.Engine
	gate       *capture.Assessor
	strategies []CandidateStrategy
	options    mrz.Options
}

// Option configures a Scanner
type Option func(*Scanner)

// WithQualityGate rejects frames that the assessor marks unusable. Without
// it frames go to OCR unchecked, which suits text engines.
func WithQualityGate(assessor *capture.Assessor) Option {
	return func(s *Scanner) {
		s.gate = assessor
	}
}

// WithStrategies replaces the default candidate strategies
func WithStrategies(strategies ...CandidateStrategy) Option {
	return func(s *Scanner) {
		if len(strategies) > 0 {
			s.strategies = strategies
		}
	}
}

// WithParseOptions sets the options passed to the MRZ decoder
func WithParseOptions(opts mrz.Options) Option {
	return func(s *Scanner) {
		s.options = opts
	}
}

// New creates a scanner around engine
func New(engine ocr.Engine, opts ...Option) *Scanner {
	s := &Scanner{
		engine:     engine,
		strategies: DefaultStrategies(),
		options:    mrz.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan decodes the best MRZ candidate found in frame.
func (s *Scanner) Scan(ctx context.Context, frame []byte) (*Result, error) {
	var quality *capture.Assessment
	if s.gate != nil {
		assessment, err := s.gate.AssessBytes(frame)
		if err != nil {
			return nil, err
		}
		if !assessment.Usable() {
			return nil, &QualityError{Assessment: assessment}
		}
		quality = &assessment
	}

	lines, err := s.engine.Recognize(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("%s OCR failed: %w", s.engine.Name(), err)
	}

	result, err := s.Best(lines)
	if result != nil {
		result.Quality = quality
	}
	return result, err
}

// Best decodes every candidate built from lines and returns the highest
// ranked one. With strict checksums, a checksum failure is only returned when
// no candidate passes; the best failing candidate comes back with it for
// review.
func (s *Scanner) Best(lines []ocr.Line) (*Result, error) {
	var (
		best, rejected *Result
		checkErr       error
	)
	bestScore, rejectedScore := -1, -1

	for _, strategy := range s.strategies {
		for _, candidate := range strategy.Candidates(lines) {
			id, err := mrz.Parse(candidate.Text, s.options)
			var csErr *mrz.ChecksumError
			if err != nil && !errors.As(err, &csErr) {
				continue
			}

			score := rank(candidate.Text, id)
			result := &Result{
				Identity:   id,
				Candidate:  mrz.Normalize(candidate.Text),
				Strategy:   candidate.Strategy,
				Confidence: candidate.Confidence,
			}
			switch {
			case csErr != nil && score > rejectedScore:
				rejected, rejectedScore, checkErr = result, score, err
			case csErr == nil && score > bestScore:
				best, bestScore = result, score
			}
		}
	}

	if best == nil {
		if rejected == nil {
			logger.WithField("lines", len(lines)).Debug("No MRZ candidate matched a layout")
			return nil, ErrNoMRZFound
		}
		best = rejected
	}

	for _, line := range lines {
		best.Lines = append(best.Lines, line.Text)
	}
	if best == rejected {
		return best, checkErr
	}
	return best, nil
}

// rank prefers candidates whose check digits pass, then those of the exact
// layout length, then those with more populated fields.
func rank(candidate string, id *mrz.Identity) int {
	score := 0
	if id.ChecksumsValid() {
		score += 1000
	}
	for _, check := range id.Checks.Checks {
		if check.Valid {
			score += 50
		}
	}

	if layout, err := mrz.Classify(candidate); err == nil && len(mrz.Normalize(candidate)) == layout.Length() {
		score += 20
	}

	for _, populated := range []bool{
		id.LastName != "",
		id.FirstName != "",
		id.BirthDate != nil,
		id.DocumentNumber != "",
		mrz.KnownCountry(id.NationalityCode),
		mrz.KnownCountry(id.IssuingStateCode),
	} {
		if populated {
			score++
		}
	}
	return score
}

// BatchResult pairs a frame index with its scan outcome.
type BatchResult struct {
	Index  int
	Result *Result
	Err    error
}

// ScanBatch scans frames concurrently on pool and returns results in frame
// order. The pool must be started and is left running; other batches may
// share it. Frames that cannot be queued before ctx is done, or after the
// pool is closed, carry that error.
func (s *Scanner) ScanBatch(ctx context.Context, pool *WorkerPool, frames [][]byte) []BatchResult {
	results := make([]BatchResult, len(frames))
	var wg sync.WaitGroup
	for i := range frames {
		i := i
		results[i].Index = i
		wg.Add(1)
		err := pool.Submit(ctx, func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			results[i].Result, results[i].Err = s.Scan(ctx, frames[i])
		})
		if err != nil {
			wg.Done()
			results[i].Err = err
		}
	}
	wg.Wait()
	return results
}
