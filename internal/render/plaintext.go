package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
)

// Source is implemented by documents that can return their raw PDF bytes.
type Source interface {
	Bytes() ([]byte, error)
}

// PlainText extracts text with the pure-Go ledongthuc/pdf reader instead
// of the document's backend. It is used as a compare.TextStrategy.
type PlainText struct {
	logger *slog.Logger
}

func NewPlainText(logger *slog.Logger) *PlainText {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlainText{logger: logger}
}

func (s *PlainText) ExtractText(_ context.Context, doc compare.Document, start, end int) (string, error) {
	src, ok := doc.(Source)
	if !ok {
		return "", common.NewAppError(common.CodeUsage, "document does not expose its bytes", common.ErrUnsupported)
	}
	data, err := src.Bytes()
	if err != nil {
		return "", err
	}
	return PlainTextFromBytes(data, start, end)
}

// PlainTextFromBytes returns the plain text of pages start..end of data.
func PlainTextFromBytes(data []byte, start, end int) (text string, err error) {
	// malformed content streams make the reader panic
	defer func() {
		if r := recover(); r != nil {
			err = common.ResourceError("plain text", fmt.Errorf("panic while reading pdf: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", common.ResourceError("plain text", err)
	}
	if end > r.NumPage() {
		end = r.NumPage()
	}
	if end < start {
		return "", nil
	}

	parts := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			return "", common.ResourceError("plain text", fmt.Errorf("invalid page %d", n))
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			return "", common.ResourceError("plain text", fmt.Errorf("page %d: %w", n, err))
		}
		parts = append(parts, txt)
	}
	return strings.Join(parts, "\n"), nil
}

// PlainPageCount counts pages with the pure-Go reader.
func PlainPageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.ResourceError("plain page count", fmt.Errorf("panic while reading pdf: %v", r))
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, common.ResourceError("plain page count", err)
	}
	return r.NumPage(), nil
}
