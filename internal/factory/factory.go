package factory

import (
	"fmt"
	"path/filepath"

	"go-disaster-id-scan/internal/config"
	"go-disaster-id-scan/internal/ocr"
	"go-disaster-id-scan/internal/storage"
)

// EngineFactory creates OCR engines
type EngineFactory interface {
	CreateEngine(engineType string) (ocr.Engine, error)
}

// SinkFactory creates export sinks
type SinkFactory interface {
	CreateSink(sinkType string) (storage.ExportSink, error)
}

// engineFactory implements EngineFactory
type engineFactory struct {
	language string
}

// NewEngineFactory creates a new engine factory for the given Tesseract language
func NewEngineFactory(language string) EngineFactory {
	return &engineFactory{language: language}
}

// CreateEngine creates an engine based on the specified type. Tesseract needs
// a binary built with the "ocr" tag.
func (f *engineFactory) CreateEngine(engineType string) (ocr.Engine, error) {
	switch engineType {
	case config.OCREngineTesseract:
		engine, err := ocr.NewTesseractEngine(f.language)
		if err != nil {
			return nil, fmt.Errorf("failed to create tesseract engine: %w", err)
		}
		return engine, nil
	case config.OCREngineText:
		return ocr.NewTextEngine(), nil
	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s", engineType)
	}
}

// sinkFactory implements SinkFactory
type sinkFactory struct {
	cfg *config.Config
}

// NewSinkFactory creates a new sink factory
func NewSinkFactory(cfg *config.Config) SinkFactory {
	return &sinkFactory{cfg: cfg}
}

// CreateSink creates a sink based on the specified type
func (f *sinkFactory) CreateSink(sinkType string) (storage.ExportSink, error) {
	switch sinkType {
	case config.ExportSinkLocal:
		sink, err := storage.NewLocalSink(filepath.Join(f.cfg.DataDir, "export"))
		if err != nil {
			return nil, err
		}
		return sink, nil
	case config.ExportSinkAzure:
		store, err := storage.NewAzureBlobStore(f.cfg.AzureAccountName, f.cfg.AzureAccountKey, f.cfg.AzureContainer)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported export sink: %s", sinkType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	EngineFactory EngineFactory
	SinkFactory   SinkFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		EngineFactory: NewEngineFactory(cfg.OCRLanguage),
		SinkFactory:   NewSinkFactory(cfg),
	}
}
