package scanner

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-disaster-id-scan/internal/capture"
	"go-disaster-id-scan/internal/mrz"
	"go-disaster-id-scan/internal/ocr"
)

var germanID = []string{
	"IDD<<T220001293<<<<<<<<<<<<<<<",
	"8803218F3103315D<<<<<<<<<<<<<0",
	"MUSTERMANN<<ERIKA<<<<<<<<<<<<<",
}

var passport = []string{
	"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
	"L898902C36UTO7408122F1204159ZE184226B<<<<<10",
}

type fakeEngine struct {
	lines []ocr.Line
	err   error
	calls atomic.Int32
}

func (f *fakeEngine) Recognize(ctx context.Context, frame []byte) ([]ocr.Line, error) {
	f.calls.Add(1)
	return f.lines, f.err
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }

func textFrame(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n"))
}

func TestScan_TextEngine(t *testing.T) {
	tests := []struct {
		name     string
		frame    []byte
		wantType mrz.DocumentType
		wantLast string
	}{
		{
			name:     "german id card with printed text around it",
			frame:    textFrame(append([]string{"BUNDESREPUBLIK DEUTSCHLAND", "PERSONALAUSWEIS"}, germanID...)...),
			wantType: mrz.TD1,
			wantLast: "MUSTERMANN",
		},
		{
			name:     "passport",
			frame:    textFrame(passport...),
			wantType: mrz.TD3,
			wantLast: "ERIKSSON",
		},
		{
			name:     "whole zone on one line",
			frame:    []byte(strings.Join(germanID, "")),
			wantType: mrz.TD1,
			wantLast: "MUSTERMANN",
		},
		{
			name:     "lowercase OCR with spaces",
			frame:    textFrame(strings.ToLower(passport[0]), " "+passport[1]+" "),
			wantType: mrz.TD3,
			wantLast: "ERIKSSON",
		},
	}

	s := New(ocr.NewTextEngine())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Scan(context.Background(), tt.frame)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, result.Identity.DocumentType)
			assert.Equal(t, tt.wantLast, result.Identity.LastName)
			assert.True(t, result.Identity.ChecksumsValid(), "failed checks: %v", result.Identity.Checks.Failed())
			assert.Nil(t, result.Quality)
			assert.NotEmpty(t, result.Strategy)
		})
	}
}

func TestScan_PrefersValidChecksums(t *testing.T) {
	// A stray printed line starting with P classifies as a passport but
	// cannot carry valid check digits.
	lines := []ocr.Line{
		{Text: "P<D<<PERSONALAUSWEIS<IDENTITY<CARD<<<<<<<<<", Confidence: 80},
	}
	for _, text := range germanID {
		lines = append(lines, ocr.Line{Text: text, Confidence: 90})
	}

	result, err := New(&fakeEngine{lines: lines}).Best(lines)
	require.NoError(t, err)
	assert.Equal(t, mrz.TD1, result.Identity.DocumentType)
	assert.Equal(t, "ERIKA", result.Identity.FirstName)
	assert.Equal(t, 90.0, result.Confidence)
	assert.Len(t, result.Lines, 4)
}

func TestScan_NoMRZ(t *testing.T) {
	_, err := New(ocr.NewTextEngine()).Scan(context.Background(), textFrame("HELLO", "WORLD"))
	assert.ErrorIs(t, err, ErrNoMRZFound)
}

func TestScan_StrictChecksums(t *testing.T) {
	corrupted := []string{germanID[0], "8803218F3103316D<<<<<<<<<<<<<0", germanID[2]}
	s := New(ocr.NewTextEngine(), WithParseOptions(mrz.DefaultOptions().WithStrictChecksums()))

	rejected, err := s.Scan(context.Background(), textFrame(corrupted...))
	var csErr *mrz.ChecksumError
	require.ErrorAs(t, err, &csErr)
	assert.Contains(t, csErr.Fields, "expiry_date")
	require.NotNil(t, rejected, "the failing read is kept for review")
	assert.Equal(t, "MUSTERMANN", rejected.Identity.LastName)
	assert.False(t, rejected.Identity.ChecksumsValid())

	result, err := s.Scan(context.Background(), textFrame(germanID...))
	require.NoError(t, err)
	assert.True(t, result.Identity.ChecksumsValid())
}

func TestScan_EngineError(t *testing.T) {
	engineErr := errors.New("tesseract crashed")
	_, err := New(&fakeEngine{err: engineErr}).Scan(context.Background(), []byte("frame"))
	assert.ErrorIs(t, err, engineErr)
}

func encodeStripes(t *testing.T, w, h int, dark, light uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		level := dark
		if (y/4)%2 == 1 {
			level = light
		}
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestScan_QualityGate(t *testing.T) {
	var lines []ocr.Line
	for _, text := range passport {
		lines = append(lines, ocr.Line{Text: text, Confidence: 88})
	}
	engine := &fakeEngine{lines: lines}
	s := New(engine, WithQualityGate(capture.NewAssessor(capture.DefaultThresholds())))

	t.Run("sharp frame is scanned", func(t *testing.T) {
		result, err := s.Scan(context.Background(), encodeStripes(t, 400, 120, 0, 255))
		require.NoError(t, err)
		require.NotNil(t, result.Quality)
		assert.True(t, result.Quality.Usable())
		assert.Equal(t, "ERIKSSON", result.Identity.LastName)
	})

	t.Run("flat frame is rejected before OCR", func(t *testing.T) {
		before := engine.calls.Load()
		_, err := s.Scan(context.Background(), encodeStripes(t, 400, 120, 128, 128))
		var qErr *QualityError
		require.ErrorAs(t, err, &qErr)
		assert.False(t, qErr.Assessment.Usable())
		assert.Equal(t, before, engine.calls.Load())
	})

	t.Run("undecodable frame", func(t *testing.T) {
		_, err := s.Scan(context.Background(), []byte("not an image"))
		assert.Error(t, err)
	})
}

func TestScanBatch(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Close()

	frames := [][]byte{
		textFrame(germanID...),
		textFrame("NOTHING", "HERE"),
		textFrame(passport...),
		nil,
	}

	results := New(ocr.NewTextEngine()).ScanBatch(context.Background(), pool, frames)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
	require.NoError(t, results[0].Err)
	assert.Equal(t, "MUSTERMANN", results[0].Result.Identity.LastName)
	assert.ErrorIs(t, results[1].Err, ErrNoMRZFound)
	require.NoError(t, results[2].Err)
	assert.Equal(t, mrz.TD3, results[2].Result.Identity.DocumentType)
	assert.ErrorIs(t, results[3].Err, ocr.ErrEmptyFrame)
}

func TestScanBatch_CancelledContext(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(ocr.NewTextEngine()).ScanBatch(ctx, pool, [][]byte{textFrame(germanID...), textFrame(passport...)})
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestWorkerPool_Wait(t *testing.T) {
	pool := NewWorkerPool(0)
	pool.Start()
	defer pool.Close()

	var counter int
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		err := pool.Submit(context.Background(), func() {
			mu.Lock()
			counter++
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	pool.Wait()

	if counter != 20 {
		t.Errorf("Expected counter to be 20, got %d", counter)
	}
}

func TestWorkerPool_CloseTwice(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	pool.Close()
	pool.Close()
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	pool.Close()

	err := pool.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)

	results := New(ocr.NewTextEngine()).ScanBatch(context.Background(), pool, [][]byte{textFrame(germanID...)})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrPoolClosed)
}

func TestScanBatch_FullQueueHonoursContext(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	defer pool.Close()

	// One running job and two queued ones leave no free slot.
	release := make(chan struct{})
	defer close(release)
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(context.Background(), func() { <-release }))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(ocr.NewTextEngine()).ScanBatch(ctx, pool, [][]byte{textFrame(germanID...), textFrame(passport...)})
	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
