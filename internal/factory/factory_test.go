package factory

import (
	"os"
	"path/filepath"
	"testing"

	"go-disaster-id-scan/internal/config"
)

func TestCreateEngine(t *testing.T) {
	f := NewEngineFactory("eng")

	engine, err := f.CreateEngine(config.OCREngineText)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if engine.Name() != "text" {
		t.Errorf("Expected text engine, got %s", engine.Name())
	}

	if _, err := f.CreateEngine("paddle"); err == nil {
		t.Error("Expected error for unsupported engine")
	}
}

func TestCreateSink(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	f := NewComponentFactory(cfg)

	sink, err := f.SinkFactory.CreateSink(config.ExportSinkLocal)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sink.Name() != "local" {
		t.Errorf("Expected local sink, got %s", sink.Name())
	}
	if _, err := os.Stat(filepath.Join(cfg.DataDir, "export")); err != nil {
		t.Errorf("Expected export directory to be created: %v", err)
	}

	if _, err := f.SinkFactory.CreateSink("ftp"); err == nil {
		t.Error("Expected error for unsupported sink")
	}
}
