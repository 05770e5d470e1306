package application

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/mkalstad/teamsrelay/internal/domain/model"
	"github.com/mkalstad/teamsrelay/internal/domain/port/driven"
)

// DocService lists and streams the pre-existing archival PDFs from a fixed
// directory. The directory is read-only to the relay.
type DocService struct {
	dir    string
	logger *slog.Logger
}

// NewDocService creates a DocService serving documents from dir.
func NewDocService(dir string, logger *slog.Logger) *DocService {
	return &DocService{dir: dir, logger: logger}
}

// List returns metadata for every PDF in the documents directory, sorted by
// name. Page counts are best-effort: a file pdfcpu cannot parse is listed
// with zero pages rather than dropped.
func (d *DocService) List() ([]model.Document, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	docs := make([]model.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("stat document failed", "name", entry.Name(), "error", err)
			continue
		}

		doc := model.Document{
			Name:       entry.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		}
		if pages, err := api.PageCountFile(filepath.Join(d.dir, entry.Name())); err == nil {
			doc.PageCount = pages
		} else {
			d.logger.Warn("page count failed", "name", entry.Name(), "error", err)
		}

		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Open streams one document by name. Names containing path separators are
// rejected outright; a missing file maps to driven.ErrResourceNotFound.
// The caller owns the returned reader and must close it.
func (d *DocService) Open(name string) (io.ReadCloser, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("document %q: %w", name, driven.ErrResourceNotFound)
	}

	f, err := os.Open(filepath.Join(d.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %q: %w", name, driven.ErrResourceNotFound)
		}
		return nil, fmt.Errorf("open document %q: %w", name, err)
	}
	return f, nil
}
