package render

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

// Fitz opens documents with MuPDF through go-fitz.
type Fitz struct {
	logger *slog.Logger
}

func NewFitz(logger *slog.Logger) *Fitz {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fitz{logger: logger}
}

func (f *Fitz) Open(_ context.Context, path string) (compare.Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, common.ResourceError("open "+path, err)
	}
	f.logger.Debug("fitz opened", "path", path, "pages", doc.NumPage())
	return &FitzDocument{doc: doc, path: path}, nil
}

// OpenBytes opens an in-memory PDF.
func (f *Fitz) OpenBytes(data []byte) (*FitzDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, common.ResourceError("open memory document", err)
	}
	return &FitzDocument{doc: doc, data: data}, nil
}

// FitzDocument wraps an open MuPDF document. MuPDF contexts are not safe
// for concurrent use, so every call is serialised.
type FitzDocument struct {
	mu   sync.Mutex
	doc  *fitz.Document
	path string
	data []byte
}

func (d *FitzDocument) PageCount(context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage(), nil
}

func (d *FitzDocument) RenderPage(_ context.Context, index, dpi int) (*imaging.PixelBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, err := d.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, common.ResourceError("fitz render", err)
	}
	return imaging.FromImage(img), nil
}

func (d *FitzDocument) ExtractText(_ context.Context, start, end int) (string, error) {
	if end < start {
		return "", nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	parts := make([]string, 0, end-start+1)
	for i := start - 1; i < end; i++ {
		txt, err := d.doc.Text(i)
		if err != nil {
			return "", common.ResourceError("fitz text", err)
		}
		parts = append(parts, txt)
	}
	return strings.Join(parts, "\n"), nil
}

func (d *FitzDocument) Bytes() ([]byte, error) {
	if d.data != nil {
		return d.data, nil
	}
	b, err := os.ReadFile(d.path)
	if err != nil {
		return nil, common.ResourceError("read "+d.path, err)
	}
	return b, nil
}

func (d *FitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}
