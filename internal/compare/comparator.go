// Package compare drives a comparison of two documents page by page and
// reports whether they are equivalent.
//
// The Comparator never touches files itself except through the path
// adapters in files.go; documents, renderers and image persistence are
// supplied by the caller.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/diff"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
	"github.com/joseph-ayodele/pdf-compare/internal/pages"
)

// PageResult is the verdict for one visually compared page.
type PageResult struct {
	Page      int
	Matched   bool
	Differing int
	// Image is the listener name of the highlight image, empty when none
	// was generated.
	Image string
}

// Outcome is the result of one comparison call.
type Outcome struct {
	Matched bool
	Mode    constants.CompareMode
	// PageCountMismatch is set when a visual comparison was short-circuited
	// because the documents differ in length.
	PageCountMismatch bool
	PageCount1        int
	PageCount2        int
	Range             pages.Range
	Pages             []PageResult
	// ListenerErrors holds failures to deliver generated images. They never
	// affect Matched.
	ListenerErrors []error
	Duration       time.Duration
}

// MismatchedPages lists the pages that did not match, in order.
func (o *Outcome) MismatchedPages() []int {
	var out []int
	for _, p := range o.Pages {
		if !p.Matched {
			out = append(out, p.Page)
		}
	}
	return out
}

// Comparator compares documents with a fixed Config. A Comparator holds no
// per-call state; every call allocates its own scratch buffers, so one
// Comparator may serve concurrent calls.
type Comparator struct {
	cfg      Config
	logger   *slog.Logger
	listener ImageListener
	engine   diff.Engine
	imageDir string
	ident    string
}

type Option func(*Comparator)

// WithListener receives highlight, page and embedded images.
func WithListener(l ImageListener) Option {
	return func(c *Comparator) { c.listener = l }
}

// WithEngine overrides the pixel engine chosen from Config.Strategy.
func WithEngine(e diff.Engine) Option {
	return func(c *Comparator) {
		if e != nil {
			c.engine = e
		}
	}
}

// WithImageDir stores every generated image under dir as PNG, in addition
// to the listener.
func WithImageDir(dir string) Option {
	return func(c *Comparator) { c.imageDir = dir }
}

// WithIdentifier names the images of the file-path adapters after id
// instead of the file name.
func WithIdentifier(id string) Option {
	return func(c *Comparator) { c.ident = id }
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Comparator{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(c)
	}
	if c.engine == nil {
		c.engine = cfg.Engine()
	}
	return c
}

// Config returns a copy of the comparator's configuration.
func (c *Comparator) Config() Config { return c.cfg }

// DiffImageName names the highlight image of a page.
func DiffImageName(identifier string, page int) string {
	return fmt.Sprintf("%s_%d_diff", identifier, page)
}

// PageImageName names a rendered page.
func PageImageName(identifier string, page int) string {
	return fmt.Sprintf("%s_%d", identifier, page)
}

// Compare compares the requested span of two documents in the configured
// mode. start and end are 1-based and may be pages.Unspecified.
func (c *Comparator) Compare(ctx context.Context, doc1, doc2 Document, start, end int, identifier string) (*Outcome, error) {
	return c.compare(ctx, doc1, doc2, start, end, identifier, c.defaultListener())
}

func (c *Comparator) compare(ctx context.Context, doc1, doc2 Document, start, end int, identifier string, l ImageListener) (*Outcome, error) {
	began := time.Now()
	var (
		out *Outcome
		err error
	)
	if c.cfg.Mode == constants.ModeVisual {
		out, err = c.compareVisual(ctx, doc1, doc2, start, end, identifier, l)
	} else {
		out, err = c.compareText(ctx, doc1, doc2, start, end)
	}
	if err != nil {
		c.logger.Error("compare.failed", "identifier", identifier, "mode", c.cfg.Mode, "err", err)
		return nil, err
	}
	out.Duration = time.Since(began)
	c.logger.Info("compare.done",
		"identifier", identifier,
		"mode", out.Mode,
		"matched", out.Matched,
		"pages", out.Range.String(),
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

func (c *Comparator) compareText(ctx context.Context, doc1, doc2 Document, start, end int) (*Outcome, error) {
	text1, rng1, count1, err := c.documentText(ctx, doc1, start, end)
	if err != nil {
		return nil, fmt.Errorf("first document: %w", err)
	}
	text2, _, count2, err := c.documentText(ctx, doc2, start, end)
	if err != nil {
		return nil, fmt.Errorf("second document: %w", err)
	}

	matched := diff.CompareText(text1, text2, c.cfg.TextOptions())
	if !matched {
		c.logger.Warn("compare.text.mismatch", "pages", rng1.String())
	}
	return &Outcome{
		Matched:    matched,
		Mode:       constants.ModeText,
		PageCount1: count1,
		PageCount2: count2,
		Range:      rng1,
	}, nil
}

func (c *Comparator) documentText(ctx context.Context, doc Document, start, end int) (string, pages.Range, int, error) {
	count, err := doc.PageCount(ctx)
	if err != nil {
		return "", pages.Range{}, 0, err
	}
	rng := pages.Resolve(count, start, end)
	text, err := extractRange(ctx, doc, rng, c.cfg.TextStrategy)
	return text, rng, count, err
}

func (c *Comparator) compareVisual(ctx context.Context, doc1, doc2 Document, start, end int, identifier string, l ImageListener) (*Outcome, error) {
	count1, err := doc1.PageCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("first document: %w", err)
	}
	count2, err := doc2.PageCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("second document: %w", err)
	}
	if count1 != count2 {
		c.logger.Warn("compare.page_count.mismatch", "identifier", identifier, "pages1", count1, "pages2", count2)
		return &Outcome{
			Mode:              constants.ModeVisual,
			PageCountMismatch: true,
			PageCount1:        count1,
			PageCount2:        count2,
		}, nil
	}

	out, err := c.comparePages(ctx, doc1, doc2, pages.Resolve(count1, start, end), identifier, l)
	if err != nil {
		return nil, err
	}
	out.PageCount1, out.PageCount2 = count1, count2
	return out, nil
}

// ComparePages renders and compares every page of rng in increasing order.
// Unless CompareAllPages is set it stops at the first mismatching page.
// Highlight images are handed to the listener before the next page is
// compared.
func (c *Comparator) ComparePages(ctx context.Context, doc1, doc2 Document, rng pages.Range, identifier string) (*Outcome, error) {
	return c.comparePages(ctx, doc1, doc2, rng, identifier, c.defaultListener())
}

func (c *Comparator) comparePages(ctx context.Context, doc1, doc2 Document, rng pages.Range, identifier string, l ImageListener) (*Outcome, error) {
	out := &Outcome{Matched: true, Mode: constants.ModeVisual, Range: rng}
	opts := c.cfg.diffOptions()
	dpi := c.cfg.dpi()

	for page := rng.Start; page <= rng.End; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.logger.Debug("compare.page", "identifier", identifier, "page", page)

		img1, err := doc1.RenderPage(ctx, page-1, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d of first document: %w", page, err)
		}
		img2, err := doc2.RenderPage(ctx, page-1, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d of second document: %w", page, err)
		}

		res, err := c.engine.Compare(img1, img2, opts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		pr := PageResult{Page: page, Matched: res.Matched, Differing: res.Differing}
		if res.Highlight != nil {
			pr.Image = DiffImageName(identifier, page)
			c.deliver(ctx, l, out, res.Highlight, pr.Image)
		}
		out.Pages = append(out.Pages, pr)

		if !res.Matched {
			out.Matched = false
			c.logger.Warn("compare.page.mismatch",
				"identifier", identifier,
				"page", page,
				"engine", c.engine.Name(),
				"differing", res.Differing,
			)
			if !c.cfg.CompareAllPages {
				break
			}
		}
	}
	return out, nil
}

// deliver hands img to l and records, without propagating, any failure.
func (c *Comparator) deliver(ctx context.Context, l ImageListener, out *Outcome, img *imaging.PixelBuffer, name string) {
	if l == nil {
		return
	}
	if err := l.ImageGenerated(ctx, img, name); err != nil {
		c.logger.Warn("compare.listener.failed", "name", name, "err", err)
		out.ListenerErrors = append(out.ListenerErrors, fmt.Errorf("%s: %w", name, err))
	}
}

func (c *Comparator) defaultListener() ImageListener {
	return c.listenerFor(c.imageDir)
}

func (c *Comparator) listenerFor(dir string) ImageListener {
	var dirListener ImageListener
	if dir != "" {
		dirListener = NewDirectoryListener(dir, c.logger)
	}
	return ChainListeners(dirListener, c.listener)
}

// PageCount returns the number of pages in doc.
func PageCount(ctx context.Context, doc Document) (int, error) {
	return doc.PageCount(ctx)
}

// ExtractText returns the text of the resolved span of doc, extracted with
// cfg.TextStrategy when set and whitespace-collapsed when
// cfg.TrimWhitespace is on.
func ExtractText(ctx context.Context, doc Document, start, end int, cfg Config) (string, error) {
	count, err := doc.PageCount(ctx)
	if err != nil {
		return "", err
	}
	text, err := extractRange(ctx, doc, pages.Resolve(count, start, end), cfg.TextStrategy)
	if err != nil {
		return "", err
	}
	if cfg.TrimWhitespace {
		text = diff.CollapseWhitespace(text)
	}
	return text, nil
}

func extractRange(ctx context.Context, doc Document, rng pages.Range, strategy TextStrategy) (string, error) {
	if rng.Empty() {
		return "", nil
	}
	if strategy != nil {
		return strategy.ExtractText(ctx, doc, rng.Start, rng.End)
	}
	return doc.ExtractText(ctx, rng.Start, rng.End)
}

// SaveAsImages renders every page of the resolved span and hands each one
// to the listener as {identifier}_{page}. It returns the generated names.
func (c *Comparator) SaveAsImages(ctx context.Context, doc Document, start, end int, identifier string) ([]string, error) {
	return c.saveAsImages(ctx, doc, start, end, identifier, c.defaultListener())
}

func (c *Comparator) saveAsImages(ctx context.Context, doc Document, start, end int, identifier string, l ImageListener) ([]string, error) {
	count, err := doc.PageCount(ctx)
	if err != nil {
		return nil, err
	}
	rng := pages.Resolve(count, start, end)
	names := make([]string, 0, rng.Len())
	for page := rng.Start; page <= rng.End; page++ {
		img, err := doc.RenderPage(ctx, page-1, c.cfg.dpi())
		if err != nil {
			return names, fmt.Errorf("render page %d: %w", page, err)
		}
		name := PageImageName(identifier, page)
		if l != nil {
			if err := l.ImageGenerated(ctx, img, name); err != nil {
				return names, fmt.Errorf("deliver %s: %w", name, err)
			}
		}
		names = append(names, name)
		c.logger.Debug("compare.page.saved", "name", name)
	}
	return names, nil
}

// ExtractImages hands every image embedded in the resolved span to the
// listener as {identifier}_{n}, n counting from 1 across pages. Documents
// that cannot enumerate embedded images yield common.ErrUnsupported.
func (c *Comparator) ExtractImages(ctx context.Context, doc Document, start, end int, identifier string) ([]string, error) {
	return c.extractImages(ctx, doc, start, end, identifier, c.defaultListener())
}

func (c *Comparator) extractImages(ctx context.Context, doc Document, start, end int, identifier string, l ImageListener) ([]string, error) {
	imager, ok := doc.(EmbeddedImager)
	if !ok {
		return nil, common.NewAppError(common.CodeUsage, "document cannot enumerate embedded images", common.ErrUnsupported)
	}
	count, err := doc.PageCount(ctx)
	if err != nil {
		return nil, err
	}
	rng := pages.Resolve(count, start, end)

	var names []string
	n := 0
	for page := rng.Start; page <= rng.End; page++ {
		imgs, err := imager.EmbeddedImages(ctx, page)
		if err != nil {
			if errors.Is(err, common.ErrUnsupported) {
				return nil, err
			}
			return names, fmt.Errorf("images on page %d: %w", page, err)
		}
		for _, img := range imgs {
			n++
			name := fmt.Sprintf("%s_%d", identifier, n)
			if l != nil {
				if err := l.ImageGenerated(ctx, img, name); err != nil {
					return names, fmt.Errorf("deliver %s: %w", name, err)
				}
			}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		c.logger.Info("compare.images.none", "identifier", identifier, "pages", rng.String())
	}
	return names, nil
}
