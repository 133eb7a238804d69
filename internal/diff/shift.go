package diff

import "github.com/joseph-ayodele/pdf-compare/internal/imaging"

// DefaultShiftThreshold is the number of surviving differences a page may
// carry and still match.
const DefaultShiftThreshold = 50

// ShiftTolerant compares binarised pages and forgives differences that can
// be explained by content moved up to MaxShift pixels in any direction.
//
// For every pixel where the binarised pages disagree, the 3x3 neighbourhood
// around it on the side that carries ink is compared with the other page's
// neighbourhood at each offset in shiftOffsets. A full match classifies the
// pixel as a shift. Of the remaining pixels only those with at least two
// marked neighbours are counted, and the page matches while that count does
// not exceed Threshold.
//
// The zero value tolerates no residual differences; NewShiftTolerant uses
// DefaultShiftThreshold.
type ShiftTolerant struct {
	Threshold int
}

// NewShiftTolerant returns an engine with the given threshold. A negative
// threshold selects DefaultShiftThreshold.
func NewShiftTolerant(threshold int) ShiftTolerant {
	if threshold < 0 {
		threshold = DefaultShiftThreshold
	}
	return ShiftTolerant{Threshold: threshold}
}

func (ShiftTolerant) Name() string { return "shift-tolerant" }

func (s ShiftTolerant) Compare(a, b *imaging.PixelBuffer, opts Options) (Result, error) {
	if err := checkDimensions(a, b); err != nil {
		return Result{}, err
	}

	sc := newShiftScan(a, b)
	residual := sc.realDifferences()
	if len(residual) == 0 {
		return Result{Matched: true}, nil
	}
	kept := sc.dropIsolated(residual)

	res := Result{Matched: len(kept) <= s.Threshold, Differing: len(kept)}
	if opts.Highlight && !res.Matched {
		res.Highlight = paint(a, kept, opts.Color)
	}
	return res, nil
}

// shiftScan is the scratch state of one page comparison.
type shiftScan struct {
	w, h   int
	ink1   []bool
	ink2   []bool
	marked []bool
}

func newShiftScan(a, b *imaging.PixelBuffer) *shiftScan {
	return &shiftScan{
		w:    a.Width,
		h:    a.Height,
		ink1: binarize(a),
		ink2: binarize(b),
	}
}

// binarize maps every non-background pixel to ink.
func binarize(p *imaging.PixelBuffer) []bool {
	out := make([]bool, len(p.Pix))
	for i, v := range p.Pix {
		out[i] = v != imaging.White
	}
	return out
}

// realDifferences returns, in increasing order, the indices where the
// binarised pages disagree and no offset explains the disagreement.
func (s *shiftScan) realDifferences() []int {
	var residual []int
	for i := range s.ink1 {
		if s.ink1[i] == s.ink2[i] {
			continue
		}
		src, dst := s.ink1, s.ink2
		if !src[i] {
			src, dst = dst, src
		}
		if !s.isShift(src, dst, i/s.w, i%s.w) {
			residual = append(residual, i)
		}
	}
	return residual
}

func (s *shiftScan) isShift(src, dst []bool, r, c int) bool {
	for _, o := range shiftOffsets {
		if s.neighbourhoodEqual(src, dst, r, c, o) {
			return true
		}
	}
	return false
}

// neighbourhoodEqual compares the 3x3 block of src centred on (r, c) with
// the block of dst centred on (r+dr, c+dc). Any cell outside the page makes
// the blocks unequal.
func (s *shiftScan) neighbourhoodEqual(src, dst []bool, r, c int, o offset) bool {
	for y := -1; y <= 1; y++ {
		for x := -1; x <= 1; x++ {
			sr, scol := r+y, c+x
			tr, tcol := sr+o.dr, scol+o.dc
			if !s.inside(sr, scol) || !s.inside(tr, tcol) {
				return false
			}
			if src[sr*s.w+scol] != dst[tr*s.w+tcol] {
				return false
			}
		}
	}
	return true
}

// dropIsolated keeps the indices with at least two marked neighbours.
func (s *shiftScan) dropIsolated(residual []int) []int {
	s.marked = make([]bool, s.w*s.h)
	for _, i := range residual {
		s.marked[i] = true
	}
	kept := make([]int, 0, len(residual))
	for _, i := range residual {
		if s.markedNeighbours(i/s.w, i%s.w) >= 2 {
			kept = append(kept, i)
		}
	}
	return kept
}

func (s *shiftScan) markedNeighbours(r, c int) int {
	n := 0
	for y := -1; y <= 1; y++ {
		for x := -1; x <= 1; x++ {
			if y == 0 && x == 0 {
				continue
			}
			if s.inside(r+y, c+x) && s.marked[(r+y)*s.w+c+x] {
				n++
			}
		}
	}
	return n
}

func (s *shiftScan) inside(r, c int) bool {
	return r >= 0 && c >= 0 && r < s.h && c < s.w
}
