package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

type textDoc struct{ texts []string }

func (d *textDoc) PageCount(context.Context) (int, error) { return len(d.texts), nil }
func (d *textDoc) RenderPage(_ context.Context, index, _ int) (*imaging.PixelBuffer, error) {
	if index < 0 || index >= len(d.texts) {
		return nil, common.ResourceError("render", fmt.Errorf("page index %d", index))
	}
	img := imaging.New(4, 4)
	img.Pix[len(d.texts[index])%len(img.Pix)] = imaging.Black
	return img, nil
}
func (d *textDoc) ExtractText(_ context.Context, start, end int) (string, error) {
	return strings.Join(d.texts[start-1:end], "\n"), nil
}
func (d *textDoc) Close() error { return nil }

var library = map[string][]string{
	"a.pdf":      {"first page", "second page"},
	"a-copy.pdf": {"first  page", "second page"},
	"b.pdf":      {"first page", "other"},
}

func useLibrary(t *testing.T) {
	t.Helper()
	prev := newOpener
	newOpener = func(common.RenderConfig, *slog.Logger) (compare.Opener, error) {
		return compare.OpenerFunc(func(_ context.Context, path string) (compare.Document, error) {
			texts, ok := library[filepath.Base(path)]
			if !ok {
				return nil, common.ResourceError("open "+path, os.ErrNotExist)
			}
			return &textDoc{texts: texts}, nil
		}), nil
	}
	t.Cleanup(func() { newOpener = prev })
	for _, k := range []string{"DB_URL", "PDFCMP_MODE", "PDFCMP_STRATEGY", "PDFCMP_EXCLUDE", "PDFCMP_BACKEND", "PDFCMP_TEXT_STRATEGY", "PDFCMP_IMAGE_DIR", "PDFCMP_HIGHLIGHT"} {
		t.Setenv(k, "")
	}
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCompareExitCodes(t *testing.T) {
	useLibrary(t)

	code, out, _ := runCLI("a.pdf", "a-copy.pdf")
	assert.Equal(t, exitMatch, code)
	assert.Equal(t, "MATCH a (text, pages 1-2)\n", out)

	code, out, _ = runCLI("a.pdf", "b.pdf")
	assert.Equal(t, exitMismatch, code)
	assert.True(t, strings.HasPrefix(out, "DIFFER a"))

	code, _, _ = runCLI("-pages", "1", "a.pdf", "b.pdf")
	assert.Equal(t, exitMatch, code)

	code, _, _ = runCLI("-trim=false", "a.pdf", "a-copy.pdf")
	assert.Equal(t, exitMismatch, code)

	code, _, stderr := runCLI("a.pdf", "missing.pdf")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "missing.pdf")
}

func TestImageDirArgumentHighlightsVisually(t *testing.T) {
	useLibrary(t)
	dir := t.TempDir()

	code, out, _ := runCLI("a.pdf", "b.pdf", dir)
	assert.Equal(t, exitMismatch, code)
	assert.Equal(t, "DIFFER a (visual, pages 1-2): pages 2; image a_2_diff\n", out)
	assert.FileExists(t, filepath.Join(dir, "a_2_diff.png"))

	quiet := t.TempDir()
	code, _, _ = runCLI("-highlight=false", "a.pdf", "b.pdf", quiet)
	assert.Equal(t, exitMismatch, code)
	assert.NoFileExists(t, filepath.Join(quiet, "a_2_diff.png"))

	code, out, _ = runCLI("-mode", "text", "a.pdf", "a-copy.pdf", t.TempDir())
	assert.Equal(t, exitMatch, code)
	assert.Equal(t, "MATCH a (text, pages 1-2)\n", out)
}

func TestUsageErrors(t *testing.T) {
	useLibrary(t)

	for _, args := range [][]string{
		{"a.pdf"},
		{"-count", "a.pdf", "b.pdf"},
		{"-pages", "x-y", "a.pdf", "b.pdf"},
		{"-mode", "pixels", "a.pdf", "b.pdf"},
		{"-no-such-flag"},
	} {
		code, _, _ := runCLI(args...)
		assert.Equal(t, exitError, code, "%v", args)
	}
}

func TestCountAndText(t *testing.T) {
	useLibrary(t)

	code, out, _ := runCLI("-count", "a.pdf")
	assert.Equal(t, exitMatch, code)
	assert.Equal(t, "2\n", out)

	code, out, _ = runCLI("-text", "-pages", "2", "a.pdf")
	assert.Equal(t, exitMatch, code)
	assert.Equal(t, "second page\n", out)
}

func TestSaveImages(t *testing.T) {
	useLibrary(t)
	dir := t.TempDir()

	code, out, _ := runCLI("-save-images", "a.pdf", dir)
	assert.Equal(t, exitMatch, code)
	assert.Equal(t, "a_1\na_2\n", out)
	assert.FileExists(t, filepath.Join(dir, "a_1.png"))
	assert.FileExists(t, filepath.Join(dir, "a_2.png"))
}

func TestJobFileWithHistoryExport(t *testing.T) {
	useLibrary(t)
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job.json")
	require.NoError(t, os.WriteFile(jobPath, []byte(`{
		"name": "smoke",
		"pairs": [
			{"file1": "a.pdf", "file2": "a-copy.pdf"},
			{"file1": "a.pdf", "file2": "b.pdf", "identifier": "ab"}
		]
	}`), 0o644))
	xlsxPath := filepath.Join(dir, "history.xlsx")
	dsn := "sqlite://" + filepath.Join(dir, "runs.db")

	code, out, _ := runCLI("-job", jobPath, "-db", dsn, "-xlsx", xlsxPath, "-workers", "2")
	assert.Equal(t, exitMismatch, code)
	assert.Contains(t, out, "MATCH a (text, pages 1-2)")
	assert.Contains(t, out, "DIFFER ab (text, pages 1-2)")
	assert.Contains(t, out, "2 compared: 1 matched, 1 differ, 0 failed")

	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Runs")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// export alone reads the same database
	code, _, _ = runCLI("-db", dsn, "-xlsx", filepath.Join(dir, "again.xlsx"))
	assert.Equal(t, exitMatch, code)
	assert.FileExists(t, filepath.Join(dir, "again.xlsx"))
}

func TestExportNeedsDatabase(t *testing.T) {
	useLibrary(t)
	code, _, stderr := runCLI("-xlsx", filepath.Join(t.TempDir(), "x.xlsx"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "history database")
}
