package diff

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
)

// TextOptions controls how extracted text is normalised before comparison.
type TextOptions struct {
	// TrimWhitespace collapses every whitespace run to one space and trims
	// both ends.
	TrimWhitespace bool
	// Exclude patterns are removed from both texts, in order.
	Exclude []*regexp.Regexp
	// NormalizeUnicode applies NFC before anything else so that composed
	// and decomposed forms compare equal.
	NormalizeUnicode bool
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CollapseWhitespace replaces whitespace runs with a single space and trims
// the result.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// NormalizeText applies opts to s.
func NormalizeText(s string, opts TextOptions) string {
	if opts.NormalizeUnicode {
		s = norm.NFC.String(s)
	}
	if opts.TrimWhitespace {
		s = CollapseWhitespace(s)
	}
	for _, re := range opts.Exclude {
		if re != nil {
			s = re.ReplaceAllString(s, "")
		}
	}
	return s
}

// CompareText reports whether a and b are equal, ignoring case, after both
// are normalised with opts.
func CompareText(a, b string, opts TextOptions) bool {
	return strings.EqualFold(NormalizeText(a, opts), NormalizeText(b, opts))
}

// CompileExcludes compiles exclusion patterns, skipping blank entries.
func CompileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, common.NewAppError(common.CodeUsage, fmt.Sprintf("invalid exclude pattern %q", p), fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
		}
		out = append(out, re)
	}
	return out, nil
}
