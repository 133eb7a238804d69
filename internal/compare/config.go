package compare

import (
	"fmt"
	"regexp"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/diff"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

// DefaultDPI is the resolution pages are rendered at.
const DefaultDPI = 300

// NoShiftTolerance is a ShiftThreshold that lets no residual difference
// through.
const NoShiftTolerance = -1

// Config is owned by a single comparison call. Copy it rather than sharing
// one value between goroutines.
type Config struct {
	Mode     constants.CompareMode
	Strategy constants.DiffStrategy

	Highlight       bool
	HighlightColor  uint32
	CompareAllPages bool

	TrimWhitespace   bool
	Exclude          []*regexp.Regexp
	NormalizeUnicode bool
	// TextStrategy replaces Document.ExtractText when set.
	TextStrategy TextStrategy

	DPI int
	// ShiftThreshold is the residual-difference budget of the shift-tolerant
	// strategy. Zero selects diff.DefaultShiftThreshold; use
	// NoShiftTolerance to fail a page on any residual difference.
	ShiftThreshold int
}

// DefaultConfig compares text, trims whitespace, stops at the first
// mismatching page and renders at 300 DPI.
func DefaultConfig() Config {
	return Config{
		Mode:           constants.ModeText,
		Strategy:       constants.StrategyExact,
		HighlightColor: imaging.Magenta,
		TrimWhitespace: true,
		DPI:            DefaultDPI,
		ShiftThreshold: diff.DefaultShiftThreshold,
	}
}

// ConfigFromSettings builds a Config from environment-backed settings.
func ConfigFromSettings(s common.CompareConfig) (Config, error) {
	cfg := DefaultConfig()
	var err error
	if s.Mode != "" {
		if cfg.Mode, err = constants.ParseMode(s.Mode); err != nil {
			return Config{}, common.NewAppError(common.CodeConfig, "PDFCMP_MODE", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
		}
	}
	if s.Strategy != "" {
		if cfg.Strategy, err = constants.ParseStrategy(s.Strategy); err != nil {
			return Config{}, common.NewAppError(common.CodeConfig, "PDFCMP_STRATEGY", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
		}
	}
	if s.HighlightColor != "" {
		if cfg.HighlightColor, err = imaging.ParseColor(s.HighlightColor); err != nil {
			return Config{}, common.NewAppError(common.CodeConfig, "PDFCMP_HIGHLIGHT_COLOR", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
		}
	}
	if cfg.Exclude, err = diff.CompileExcludes(s.Exclude); err != nil {
		return Config{}, err
	}
	cfg.Highlight = s.Highlight
	cfg.CompareAllPages = s.AllPages
	cfg.TrimWhitespace = s.TrimWhitespace
	cfg.NormalizeUnicode = s.Normalize
	if s.DPI > 0 {
		cfg.DPI = s.DPI
	}
	cfg.ShiftThreshold = ThresholdFromSetting(s.ShiftThreshold)
	return cfg, nil
}

// ThresholdFromSetting converts a user-facing threshold, where 0 means no
// tolerance, into a ShiftThreshold. Negative settings select the default.
func ThresholdFromSetting(n int) int {
	switch {
	case n == 0:
		return NoShiftTolerance
	case n < 0:
		return diff.DefaultShiftThreshold
	}
	return n
}

// Engine returns the pixel engine selected by Strategy.
func (c Config) Engine() diff.Engine {
	if c.Strategy == constants.StrategyShiftTolerant {
		return diff.ShiftTolerant{Threshold: c.shiftThreshold()}
	}
	return diff.Exact{}
}

func (c Config) shiftThreshold() int {
	switch {
	case c.ShiftThreshold == 0:
		return diff.DefaultShiftThreshold
	case c.ShiftThreshold < 0:
		return 0
	}
	return c.ShiftThreshold
}

// TextOptions returns the normalisation applied in TEXT mode.
func (c Config) TextOptions() diff.TextOptions {
	return diff.TextOptions{
		TrimWhitespace:   c.TrimWhitespace,
		Exclude:          c.Exclude,
		NormalizeUnicode: c.NormalizeUnicode,
	}
}

func (c Config) diffOptions() diff.Options {
	return diff.Options{Highlight: c.Highlight, Color: c.HighlightColor}
}

func (c Config) dpi() int {
	if c.DPI <= 0 {
		return DefaultDPI
	}
	return c.DPI
}
