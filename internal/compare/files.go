package compare

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/common"
)

// Identifier derives the image-name prefix from a file path: the base name
// without its .pdf extension.
func Identifier(path string) string {
	return constants.TrimPDFExt(filepath.Base(path))
}

// CompareFiles opens both paths, compares them and closes them again.
//
// When highlighting a visual comparison and no image directory was
// configured, highlight images are written to DefaultImageDir(path2). The
// directory is only created once a highlight image exists and is never
// emptied, so comparisons sharing it keep each other's images.
func (c *Comparator) CompareFiles(ctx context.Context, opener Opener, path1, path2 string, start, end int) (out *Outcome, err error) {
	dir := c.imageDir
	if dir == "" && c.cfg.Highlight && c.cfg.Mode == constants.ModeVisual {
		dir = DefaultImageDir(path2)
	}

	doc1, doc2, err := openPair(ctx, opener, path1, path2)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closeAll(doc1, doc2); cerr != nil && err == nil {
			err = common.ResourceError("close documents", cerr)
		}
	}()

	return c.compare(ctx, doc1, doc2, start, end, c.identifierFor(path1), c.listenerFor(dir))
}

// SaveFileAsImages renders the span of the PDF at path, naming images after
// the file.
func (c *Comparator) SaveFileAsImages(ctx context.Context, opener Opener, path string, start, end int) (names []string, err error) {
	doc, err := opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil && err == nil {
			err = common.ResourceError("close document", cerr)
		}
	}()
	return c.SaveAsImages(ctx, doc, start, end, c.identifierFor(path))
}

// ExtractFileImages extracts the embedded images of the PDF at path as
// {name}_resource_{n}. Without a configured image directory they are
// written to DefaultImageDir(path).
func (c *Comparator) ExtractFileImages(ctx context.Context, opener Opener, path string, start, end int) (names []string, err error) {
	dir := c.imageDir
	if dir == "" {
		dir = DefaultImageDir(path)
	}
	doc, err := opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil && err == nil {
			err = common.ResourceError("close document", cerr)
		}
	}()
	return c.extractImages(ctx, doc, start, end, c.identifierFor(path)+"_resource", c.listenerFor(dir))
}

func openPair(ctx context.Context, opener Opener, path1, path2 string) (Document, Document, error) {
	doc1, err := opener.Open(ctx, path1)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path1, err)
	}
	doc2, err := opener.Open(ctx, path2)
	if err != nil {
		_ = doc1.Close()
		return nil, nil, fmt.Errorf("open %s: %w", path2, err)
	}
	return doc1, doc2, nil
}

func (c *Comparator) identifierFor(path string) string {
	if c.ident != "" {
		return c.ident
	}
	return Identifier(path)
}

// closeAll closes every document even when an earlier close fails.
func closeAll(docs ...Document) error {
	var errs []error
	for _, d := range docs {
		if d == nil {
			continue
		}
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
