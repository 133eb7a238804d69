package compare

import (
	"context"

	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

// Document is an open PDF. Implementations live in internal/render.
type Document interface {
	// PageCount returns the number of pages.
	PageCount(ctx context.Context) (int, error)
	// RenderPage rasterises the 0-based page index at dpi.
	RenderPage(ctx context.Context, index, dpi int) (*imaging.PixelBuffer, error)
	// ExtractText returns the text of the inclusive 1-based page span.
	ExtractText(ctx context.Context, start, end int) (string, error)
	Close() error
}

// EmbeddedImager is implemented by documents that can enumerate the images
// embedded in a page.
type EmbeddedImager interface {
	// EmbeddedImages returns the images on the 1-based page, in document order.
	EmbeddedImages(ctx context.Context, page int) ([]*imaging.PixelBuffer, error)
}

// TextStrategy overrides how text is pulled out of a document.
type TextStrategy interface {
	ExtractText(ctx context.Context, doc Document, start, end int) (string, error)
}

// TextStrategyFunc adapts a function to TextStrategy.
type TextStrategyFunc func(ctx context.Context, doc Document, start, end int) (string, error)

func (f TextStrategyFunc) ExtractText(ctx context.Context, doc Document, start, end int) (string, error) {
	return f(ctx, doc, start, end)
}

// Opener loads a document from a path.
type Opener interface {
	Open(ctx context.Context, path string) (Document, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, path string) (Document, error)

func (f OpenerFunc) Open(ctx context.Context, path string) (Document, error) {
	return f(ctx, path)
}

// ImageListener receives every generated image. Names carry no extension;
// the listener decides where, and whether, the image is stored.
type ImageListener interface {
	ImageGenerated(ctx context.Context, img *imaging.PixelBuffer, name string) error
}

// ListenerFunc adapts a function to ImageListener.
type ListenerFunc func(ctx context.Context, img *imaging.PixelBuffer, name string) error

func (f ListenerFunc) ImageGenerated(ctx context.Context, img *imaging.PixelBuffer, name string) error {
	return f(ctx, img, name)
}
