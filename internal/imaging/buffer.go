// Package imaging holds the pixel representation shared by the diff engines
// and the rendering backends.
//
// A PixelBuffer stores one packed 32-bit ARGB value per pixel, row-major,
// non-premultiplied. Index i addresses pixel (i % Width, i / Width).
package imaging

import (
	"image"
	"image/color"
)

// Packed ARGB values used across the comparison code.
const (
	White   uint32 = 0xFFFFFFFF // background sentinel
	Black   uint32 = 0xFF000000 // foreground marker after binarization
	Magenta uint32 = 0xFFFF00FF // default highlight colour
)

// PixelBuffer is a rectangular array of packed ARGB pixels.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint32
}

// New returns a width x height buffer with every pixel set to White.
func New(width, height int) *PixelBuffer {
	return NewFilled(width, height, White)
}

// NewFilled returns a width x height buffer with every pixel set to c.
func NewFilled(width, height int, c uint32) *PixelBuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	pix := make([]uint32, width*height)
	for i := range pix {
		pix[i] = c
	}
	return &PixelBuffer{Width: width, Height: height, Pix: pix}
}

// Len is the number of pixels.
func (b *PixelBuffer) Len() int { return len(b.Pix) }

// InBounds reports whether (x, y) lies inside the buffer.
func (b *PixelBuffer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// At returns the pixel at (x, y). It panics when out of bounds.
func (b *PixelBuffer) At(x, y int) uint32 { return b.Pix[y*b.Width+x] }

// Set writes the pixel at (x, y). It panics when out of bounds.
func (b *PixelBuffer) Set(x, y int, c uint32) { b.Pix[y*b.Width+x] = c }

// FillRect paints the half-open rectangle [x0,x1) x [y0,y1), clipped to the buffer.
func (b *PixelBuffer) FillRect(x0, y0, x1, y1 int, c uint32) {
	r := image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, b.Width, b.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := b.Pix[y*b.Width : (y+1)*b.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = c
		}
	}
}

// Clone returns a deep copy.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint32, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// SameSize reports whether both buffers have identical width and height.
func (b *PixelBuffer) SameSize(o *PixelBuffer) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// Equal reports whether both buffers have the same size and pixels.
func (b *PixelBuffer) Equal(o *PixelBuffer) bool {
	if !b.SameSize(o) {
		return false
	}
	for i, v := range b.Pix {
		if o.Pix[i] != v {
			return false
		}
	}
	return true
}

// FromImage converts any image into a PixelBuffer anchored at (0, 0).
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &PixelBuffer{Width: w, Height: h, Pix: make([]uint32, w*h)}

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < w; x++ {
				p := src.Pix[off+4*x : off+4*x+4 : off+4*x+4]
				out.Pix[y*w+x] = pack(p[0], p[1], p[2], p[3])
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < w; x++ {
				p := src.Pix[off+4*x : off+4*x+4 : off+4*x+4]
				if p[3] == 0xff {
					out.Pix[y*w+x] = pack(p[0], p[1], p[2], p[3])
					continue
				}
				c := color.NRGBAModel.Convert(color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}).(color.NRGBA)
				out.Pix[y*w+x] = pack(c.R, c.G, c.B, c.A)
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				out.Pix[y*w+x] = pack(c.R, c.G, c.B, c.A)
			}
		}
	}
	return out
}

// Image converts the buffer into an *image.NRGBA.
func (b *PixelBuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i, v := range b.Pix {
		o := 4 * i
		img.Pix[o] = uint8(v >> 16)
		img.Pix[o+1] = uint8(v >> 8)
		img.Pix[o+2] = uint8(v)
		img.Pix[o+3] = uint8(v >> 24)
	}
	return img
}

func pack(r, g, b, a uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}
