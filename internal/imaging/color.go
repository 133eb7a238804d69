package imaging

import (
	"fmt"
	"strconv"
	"strings"
)

var namedColors = map[string]uint32{
	"black":     0xFF000000,
	"white":     0xFFFFFFFF,
	"red":       0xFFFF0000,
	"green":     0xFF00FF00,
	"blue":      0xFF0000FF,
	"yellow":    0xFFFFFF00,
	"cyan":      0xFF00FFFF,
	"magenta":   0xFFFF00FF,
	"orange":    0xFFFFC800,
	"pink":      0xFFFFAFAF,
	"gray":      0xFF808080,
	"lightgray": 0xFFC0C0C0,
	"darkgray":  0xFF404040,
}

// ParseColor accepts a colour name ("magenta"), "#RRGGBB", "#AARRGGBB" or
// "0xAARRGGBB". Six-digit forms are opaque.
func ParseColor(s string) (uint32, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(v, "#"), "0x")
	if hex == v && !strings.HasPrefix(v, "#") {
		return 0, fmt.Errorf("unknown colour %q", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	switch len(hex) {
	case 6:
		return 0xFF000000 | uint32(n), nil
	case 8:
		return uint32(n), nil
	}
	return 0, fmt.Errorf("invalid colour %q: want 6 or 8 hex digits", s)
}

// FormatColor renders c as "#AARRGGBB".
func FormatColor(c uint32) string {
	return fmt.Sprintf("#%08X", c)
}
