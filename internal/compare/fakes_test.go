package compare

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

type fakeDoc struct {
	mu       sync.Mutex
	pages    []*imaging.PixelBuffer
	texts    []string
	count    int
	countErr error
	failPage int // 0-based index whose render fails, -1 for none
	closeErr error
	closed   int
	rendered []int
}

func newFakeDoc(pages ...*imaging.PixelBuffer) *fakeDoc {
	return &fakeDoc{pages: pages, count: len(pages), failPage: -1}
}

func newTextDoc(texts ...string) *fakeDoc {
	return &fakeDoc{texts: texts, count: len(texts), failPage: -1}
}

func (d *fakeDoc) PageCount(context.Context) (int, error) {
	return d.count, d.countErr
}

func (d *fakeDoc) RenderPage(_ context.Context, index, _ int) (*imaging.PixelBuffer, error) {
	d.mu.Lock()
	d.rendered = append(d.rendered, index)
	d.mu.Unlock()
	if index == d.failPage || index < 0 || index >= len(d.pages) {
		return nil, common.ResourceError("render", fmt.Errorf("page index %d", index))
	}
	return d.pages[index], nil
}

func (d *fakeDoc) ExtractText(_ context.Context, start, end int) (string, error) {
	if start < 1 || end > len(d.texts) {
		return "", common.ResourceError("extract", fmt.Errorf("pages %d-%d", start, end))
	}
	return strings.Join(d.texts[start-1:end], "\n"), nil
}

func (d *fakeDoc) Close() error {
	d.closed++
	return d.closeErr
}

type imagerDoc struct {
	*fakeDoc
	embedded map[int][]*imaging.PixelBuffer
}

func (d *imagerDoc) EmbeddedImages(_ context.Context, page int) ([]*imaging.PixelBuffer, error) {
	return d.embedded[page], nil
}

type recorder struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (r *recorder) ImageGenerated(_ context.Context, _ *imaging.PixelBuffer, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return r.err
}

func (r *recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func blankPage() *imaging.PixelBuffer { return imaging.New(16, 16) }

func markedPage() *imaging.PixelBuffer {
	p := blankPage()
	p.FillRect(4, 4, 8, 8, imaging.Black)
	return p
}
