// Package diff decides whether two rendered pages or two extracted text
// blocks are equivalent.
//
// Two pixel engines are provided: Exact, a strict array comparison, and
// ShiftTolerant, which forgives content displaced by a few pixels and
// ignores isolated rasterisation noise. Both require buffers of identical
// dimensions and return an error wrapping common.ErrDimensionMismatch
// otherwise. Engines keep no state between calls and are safe for
// concurrent use.
package diff

import (
	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

// Options controls highlight generation for a single comparison.
type Options struct {
	Highlight bool
	Color     uint32
}

// DefaultOptions highlights nothing and uses magenta when asked to.
func DefaultOptions() Options {
	return Options{Color: imaging.Magenta}
}

// Result is the verdict for one page. Highlight is non-nil only when
// highlighting was requested and the page did not match.
type Result struct {
	Matched bool
	// Differing is the number of pixels that counted against the page:
	// every unequal pixel for Exact, the surviving real differences for
	// ShiftTolerant.
	Differing int
	Highlight *imaging.PixelBuffer
}

// Engine compares two same-sized pixel buffers.
type Engine interface {
	Name() string
	Compare(a, b *imaging.PixelBuffer, opts Options) (Result, error)
}

func checkDimensions(a, b *imaging.PixelBuffer) error {
	if a == nil || b == nil {
		return common.NewAppError(common.CodeUsage, "nil pixel buffer", common.ErrInvalidInput)
	}
	if !a.SameSize(b) {
		return common.DimensionError(a.Width, a.Height, b.Width, b.Height)
	}
	if len(a.Pix) != a.Width*a.Height || len(b.Pix) != b.Width*b.Height {
		return common.NewAppError(common.CodeUsage, "pixel slice does not match buffer dimensions", common.ErrInvalidInput)
	}
	return nil
}

// paint returns a copy of base with every listed index set to c.
func paint(base *imaging.PixelBuffer, idx []int, c uint32) *imaging.PixelBuffer {
	out := base.Clone()
	for _, i := range idx {
		out.Pix[i] = c
	}
	return out
}
