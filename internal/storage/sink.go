package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ExportSink stores named export files
type ExportSink interface {
	Put(ctx context.Context, name string, data []byte) error
	Name() string
}

// LocalSink writes exports into a directory.
type LocalSink struct {
	dir string
}

// NewLocalSink creates dir if needed.
func NewLocalSink(dir string) (*LocalSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &LocalSink{dir: dir}, nil
}

// Put replaces the file atomically so readers never see a partial export.
func (s *LocalSink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name != filepath.Base(name) {
		return fmt.Errorf("invalid export name %q", name)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (s *LocalSink) Name() string {
	return "local"
}

// Path returns where name is written.
func (s *LocalSink) Path(name string) string {
	return filepath.Join(s.dir, name)
}
