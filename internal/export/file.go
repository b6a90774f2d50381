package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileExporter writes rendered estimates into a directory.
type FileExporter struct {
	dir      string
	renderer *Renderer
}

// NewFileExporter creates an exporter writing into dir, which is created on
// first use.
func NewFileExporter(dir string, renderer *Renderer) *FileExporter {
	return &FileExporter{dir: dir, renderer: renderer}
}

// Export renders req and writes it to disk. The receipt's Location is the
// path of the written file.
func (e *FileExporter) Export(ctx context.Context, req Request) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := e.renderer.Render(req)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(e.dir, doc.Filename)
	if err := os.WriteFile(path, doc.Body, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}

	slog.Debug("Export written", "path", path, "bytes", len(doc.Body))
	return &Receipt{ID: doc.Filename, Filename: doc.Filename, Location: path}, nil
}
