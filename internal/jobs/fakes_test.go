package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

// textDoc is a document whose pages are plain strings.
type textDoc struct {
	texts []string
}

func (d *textDoc) PageCount(context.Context) (int, error) { return len(d.texts), nil }

func (d *textDoc) RenderPage(_ context.Context, index, _ int) (*imaging.PixelBuffer, error) {
	if index < 0 || index >= len(d.texts) {
		return nil, common.ResourceError("render", fmt.Errorf("page index %d", index))
	}
	img := imaging.New(8, 8)
	img.Pix[len(d.texts[index])%len(img.Pix)] = imaging.Black
	return img, nil
}

func (d *textDoc) ExtractText(_ context.Context, start, end int) (string, error) {
	return strings.Join(d.texts[start-1:end], "\n"), nil
}

func (d *textDoc) Close() error { return nil }

// library opens documents by path from memory.
type library struct {
	mu   sync.Mutex
	docs map[string][]string
}

func (l *library) Open(_ context.Context, path string) (compare.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	texts, ok := l.docs[path]
	if !ok {
		return nil, common.ResourceError("open "+path, os.ErrNotExist)
	}
	return &textDoc{texts: texts}, nil
}

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4\n"), 0o644))
	}
}
