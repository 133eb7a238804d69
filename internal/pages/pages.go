// Package pages resolves requested page ranges against a document's page count.
package pages

import (
	"fmt"
	"strconv"
	"strings"
)

// Unspecified marks an omitted start or end page.
const Unspecified = -1

// Range is an inclusive, 1-based span of pages. The zero-length range {1, 0}
// is returned for documents without pages.
type Range struct {
	Start int
	End   int
}

// Resolve clamps the requested span to [1, pageCount]. A start outside the
// document falls back to 1; an end outside [start, pageCount] falls back to
// pageCount. It never fails.
func Resolve(pageCount, start, end int) Range {
	if pageCount < 1 {
		return Range{Start: 1, End: 0}
	}
	if start < 1 || start > pageCount {
		start = 1
	}
	if end < start || end > pageCount {
		end = pageCount
	}
	return Range{Start: start, End: end}
}

// All is the full range of a document with pageCount pages.
func All(pageCount int) Range {
	return Resolve(pageCount, Unspecified, Unspecified)
}

// Len is the number of pages in the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Empty reports whether the range covers no pages.
func (r Range) Empty() bool { return r.Len() == 0 }

// Contains reports whether page lies inside the range.
func (r Range) Contains(page int) bool {
	return page >= r.Start && page <= r.End
}

// Each calls fn for every page in increasing order until fn returns false.
func (r Range) Each(fn func(page int) bool) {
	for p := r.Start; p <= r.End; p++ {
		if !fn(p) {
			return
		}
	}
}

func (r Range) String() string {
	if r.Empty() {
		return "none"
	}
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParseSpec parses a command-line page selection into a requested start and
// end. Accepted forms: "" (everything), "3", "2-5", "4-" and "-7". Parts that
// are missing come back as Unspecified; clamping is left to Resolve.
func ParseSpec(spec string) (start, end int, err error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return Unspecified, Unspecified, nil
	}
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		n, err := parsePage(lo)
		if err != nil {
			return 0, 0, err
		}
		return n, n, nil
	}
	start, end = Unspecified, Unspecified
	if lo = strings.TrimSpace(lo); lo != "" {
		if start, err = parsePage(lo); err != nil {
			return 0, 0, err
		}
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		if end, err = parsePage(hi); err != nil {
			return 0, 0, err
		}
	}
	if start != Unspecified && end != Unspecified && end < start {
		return 0, 0, fmt.Errorf("invalid page range %q: end before start", spec)
	}
	return start, end, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page number %q", s)
	}
	return n, nil
}
