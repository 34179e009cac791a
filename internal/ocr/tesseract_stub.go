//go:build !ocr

package ocr

import "context"

// TesseractEngine is unavailable without the "ocr" build tag.
type TesseractEngine struct{}

// NewTesseractEngine always fails without the "ocr" build tag.
func NewTesseractEngine(language string) (*TesseractEngine, error) {
	return nil, ErrOCRNotEnabled
}

func (e *TesseractEngine) Recognize(ctx context.Context, frame []byte) ([]Line, error) {
	return nil, ErrOCRNotEnabled
}

func (e *TesseractEngine) Name() string {
	return "tesseract"
}

func (e *TesseractEngine) Close() error {
	return nil
}
