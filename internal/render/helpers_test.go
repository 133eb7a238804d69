package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

// stubRunner fakes the poppler tools. Image-producing commands write PNGs
// at the prefix passed as the last argument.
type stubRunner struct {
	mu      sync.Mutex
	calls   [][]string
	info    string
	text    string
	page    *imaging.PixelBuffer
	images  []*imaging.PixelBuffer
	failCmd string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{name}, args...))
	s.mu.Unlock()

	if name == s.failCmd {
		return nil, []byte("Syntax Error: Couldn't read xref table"), errors.New("exit status 1")
	}
	prefix := args[len(args)-1]
	switch name {
	case "pdfinfo":
		return []byte(s.info), nil, nil
	case "pdftotext":
		return []byte(s.text), nil, nil
	case "pdftoppm":
		if err := imaging.WritePNGFile(prefix+".png", s.page); err != nil {
			return nil, nil, err
		}
	case "pdfimages":
		for i, img := range s.images {
			if err := imaging.WritePNGFile(fmt.Sprintf("%s-%03d.png", prefix, i), img); err != nil {
				return nil, nil, err
			}
		}
	}
	return nil, nil, nil
}

func (s *stubRunner) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.calls...)
}

// minimalPDF builds a valid PDF with one 200x200pt page per text, each
// showing its text in Helvetica.
func minimalPDF(texts ...string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(texts))
	for i := range texts {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(texts)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, text := range texts {
		stream := fmt.Sprintf("BT /F1 24 Tf 20 100 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func writePDF(dir, name string, texts ...string) (string, error) {
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, minimalPDF(texts...), 0o644)
}
