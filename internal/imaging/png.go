package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
)

// EncodePNG writes b as a PNG.
func EncodePNG(w io.Writer, b *PixelBuffer) error {
	return png.Encode(w, b.Image())
}

// PNGBytes returns b encoded as a PNG.
func PNGBytes(b *PixelBuffer) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a PNG or JPEG stream into a PixelBuffer.
func Decode(r io.Reader) (*PixelBuffer, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), nil
}

// DecodeFile reads an image file into a PixelBuffer.
func DecodeFile(path string) (*PixelBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// WritePNGFile encodes b to path, creating or truncating it.
func WritePNGFile(path string, b *PixelBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePNG(f, b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
