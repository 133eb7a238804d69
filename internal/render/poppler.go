package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

// PopplerConfig names the poppler-utils binaries.
type PopplerConfig struct {
	Pdftoppm  string
	Pdftotext string
	Pdfinfo   string
	Pdfimages string
}

func (c PopplerConfig) withDefaults() PopplerConfig {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Pdfinfo == "" {
		c.Pdfinfo = "pdfinfo"
	}
	if c.Pdfimages == "" {
		c.Pdfimages = "pdfimages"
	}
	return c
}

// Poppler opens documents that are rendered and read by the poppler-utils
// command line tools.
type Poppler struct {
	cfg    PopplerConfig
	runner Runner
	logger *slog.Logger
}

func NewPoppler(cfg PopplerConfig, runner Runner, logger *slog.Logger) *Poppler {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Poppler{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (p *Poppler) Open(_ context.Context, path string) (compare.Document, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, common.ResourceError("open "+path, err)
	}
	if st.IsDir() {
		return nil, common.ResourceError("open "+path, fmt.Errorf("is a directory"))
	}
	return &PopplerDocument{p: p, path: path}, nil
}

// PopplerDocument is a PDF on disk. It holds no open handles; every call
// runs a poppler tool against the file.
type PopplerDocument struct {
	p    *Poppler
	path string

	mu    sync.Mutex
	pages int
}

var pagesLine = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

func (d *PopplerDocument) Path() string { return d.path }

func (d *PopplerDocument) Bytes() ([]byte, error) {
	b, err := os.ReadFile(d.path)
	if err != nil {
		return nil, common.ResourceError("read "+d.path, err)
	}
	return b, nil
}

func (d *PopplerDocument) PageCount(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pages > 0 {
		return d.pages, nil
	}

	out, errb, err := d.p.runner.Run(ctx, d.p.cfg.Pdfinfo, d.path)
	if err != nil {
		return 0, common.ResourceError("pdfinfo", commandError(err, errb))
	}
	m := pagesLine.FindSubmatch(out)
	if m == nil {
		return 0, common.ResourceError("pdfinfo", fmt.Errorf("no page count in output for %s", d.path))
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, common.ResourceError("pdfinfo", err)
	}
	d.pages = n
	return n, nil
}

func (d *PopplerDocument) RenderPage(ctx context.Context, index, dpi int) (*imaging.PixelBuffer, error) {
	tmpDir, err := os.MkdirTemp("", "pdfcmp-ppm-*")
	if err != nil {
		return nil, common.ResourceError("render", err)
	}
	defer d.removeAll(tmpDir)

	page := strconv.Itoa(index + 1)
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -png -r <dpi> -f <n> -l <n> -singlefile <in.pdf> <tmp/page>
	_, errb, err := d.p.runner.Run(ctx, d.p.cfg.Pdftoppm,
		"-png", "-r", strconv.Itoa(dpi), "-f", page, "-l", page, "-singlefile", d.path, prefix)
	if err != nil {
		return nil, common.ResourceError("pdftoppm", commandError(err, errb))
	}

	img, err := imaging.DecodeFile(prefix + ".png")
	if err != nil {
		return nil, common.ResourceError("pdftoppm", err)
	}
	return img, nil
}

func (d *PopplerDocument) ExtractText(ctx context.Context, start, end int) (string, error) {
	// pdftotext -f <s> -l <e> -enc UTF-8 -eol unix <path> -
	out, errb, err := d.p.runner.Run(ctx, d.p.cfg.Pdftotext,
		"-f", strconv.Itoa(start), "-l", strconv.Itoa(end), "-enc", "UTF-8", "-eol", "unix", d.path, "-")
	if err != nil {
		return "", common.ResourceError("pdftotext", commandError(err, errb))
	}
	// pages are separated by form feeds
	text := strings.TrimRight(string(out), "\f")
	return strings.ReplaceAll(text, "\f", "\n"), nil
}

// EmbeddedImages extracts the images on page with pdfimages.
func (d *PopplerDocument) EmbeddedImages(ctx context.Context, page int) ([]*imaging.PixelBuffer, error) {
	tmpDir, err := os.MkdirTemp("", "pdfcmp-img-*")
	if err != nil {
		return nil, common.ResourceError("pdfimages", err)
	}
	defer d.removeAll(tmpDir)

	n := strconv.Itoa(page)
	prefix := filepath.Join(tmpDir, "img")
	// pdfimages -png -f <n> -l <n> <in.pdf> <tmp/img>
	_, errb, err := d.p.runner.Run(ctx, d.p.cfg.Pdfimages, "-png", "-f", n, "-l", n, d.path, prefix)
	if err != nil {
		return nil, common.ResourceError("pdfimages", commandError(err, errb))
	}

	// collect generated pngs (img-000.png, img-001.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	out := make([]*imaging.PixelBuffer, 0, len(matches))
	for _, m := range matches {
		img, err := imaging.DecodeFile(m)
		if err != nil {
			return nil, common.ResourceError("pdfimages", err)
		}
		out = append(out, img)
	}
	return out, nil
}

func (d *PopplerDocument) Close() error { return nil }

func (d *PopplerDocument) removeAll(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		d.p.logger.Warn("failed to remove temp dir", "dir", dir, "err", err)
	}
}

func commandError(err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, truncate(msg, 512))
}
