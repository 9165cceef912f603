package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"insightdocs-backend/application/ports"
)

// FileSource serves initial content from plain-text files on disk, one
// file per document named <documentID>.txt.
type FileSource struct {
	dir string
}

// NewFileSource creates a file-backed content source
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Resolve reads <dir>/<documentID>.txt. A missing file is not an error;
// it just yields no content so the chain moves on.
func (s *FileSource) Resolve(_ context.Context, documentID string) (ports.ResolvedContent, error) {
	if s.dir == "" {
		return ports.ResolvedContent{}, nil
	}

	// Document IDs come from clients; never let them escape the directory.
	name := filepath.Base(documentID) + ".txt"
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ports.ResolvedContent{}, nil
	}
	if err != nil {
		return ports.ResolvedContent{}, fmt.Errorf("failed to read content file: %w", err)
	}
	return ports.ResolvedContent{Text: strings.TrimRight(string(data), "\n"), Source: "file"}, nil
}

// StaticSource always resolves to a fixed text. Used in development and
// tests to seed every document identically.
type StaticSource struct {
	Text string
}

// Resolve returns the fixed text
func (s StaticSource) Resolve(_ context.Context, _ string) (ports.ResolvedContent, error) {
	return ports.ResolvedContent{Text: s.Text, Source: "static"}, nil
}
