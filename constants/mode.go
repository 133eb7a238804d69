package constants

import (
	"fmt"
	"strings"
)

// CompareMode selects what is compared between two documents.
type CompareMode string

const (
	ModeText   CompareMode = "TEXT"   // extracted text, formatting ignored
	ModeVisual CompareMode = "VISUAL" // rendered pages, pixel by pixel
)

// DiffStrategy selects the pixel engine used in visual mode.
type DiffStrategy string

const (
	StrategyExact         DiffStrategy = "EXACT"
	StrategyShiftTolerant DiffStrategy = "SHIFT_TOLERANT"
)

// Modes lists the accepted compare modes.
var Modes = []string{string(ModeText), string(ModeVisual)}

// Strategies lists the accepted visual strategies.
var Strategies = []string{string(StrategyExact), string(StrategyShiftTolerant)}

// ParseMode accepts "text"/"visual" in any case.
func ParseMode(s string) (CompareMode, error) {
	switch CompareMode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeText:
		return ModeText, nil
	case ModeVisual:
		return ModeVisual, nil
	}
	return "", fmt.Errorf("unknown compare mode %q", s)
}

// ParseStrategy accepts "exact", "shift", "shift_tolerant" or "shift-tolerant" in any case.
func ParseStrategy(s string) (DiffStrategy, error) {
	v := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch v {
	case string(StrategyExact):
		return StrategyExact, nil
	case "SHIFT", string(StrategyShiftTolerant):
		return StrategyShiftTolerant, nil
	}
	return "", fmt.Errorf("unknown diff strategy %q", s)
}
