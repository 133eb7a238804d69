// Package render supplies the documents the comparator works on: a
// poppler-utils backend driven through external commands, a MuPDF backend
// through go-fitz, and a pure-Go text extraction strategy.
package render

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
)

// Backend names.
const (
	BackendPoppler = "poppler"
	BackendFitz    = "fitz"
)

// NewOpener returns the document opener selected by cfg.Backend.
func NewOpener(cfg common.RenderConfig, runner Runner, logger *slog.Logger) (compare.Opener, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendPoppler:
		return NewPoppler(PopplerConfig{
			Pdftoppm:  cfg.Pdftoppm,
			Pdftotext: cfg.Pdftotext,
			Pdfinfo:   cfg.Pdfinfo,
			Pdfimages: cfg.Pdfimages,
		}, runner, logger), nil
	case BackendFitz:
		return NewFitz(logger), nil
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown backend %q", cfg.Backend), common.ErrInvalidInput)
}

// NewTextStrategy returns the strategy selected by cfg.TextStrategy, nil
// for the backend's own extraction.
func NewTextStrategy(cfg common.RenderConfig, logger *slog.Logger) (compare.TextStrategy, error) {
	switch strings.ToLower(cfg.TextStrategy) {
	case "", "default":
		return nil, nil
	case "plain":
		return NewPlainText(logger), nil
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown text strategy %q", cfg.TextStrategy), common.ErrInvalidInput)
}
