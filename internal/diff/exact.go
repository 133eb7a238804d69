package diff

import "github.com/joseph-ayodele/pdf-compare/internal/imaging"

// Exact reports a mismatch for any pixel whose packed value differs.
type Exact struct{}

func (Exact) Name() string { return "exact" }

func (Exact) Compare(a, b *imaging.PixelBuffer, opts Options) (Result, error) {
	if err := checkDimensions(a, b); err != nil {
		return Result{}, err
	}

	var differing []int
	count := 0
	for i, v := range a.Pix {
		if v == b.Pix[i] {
			continue
		}
		count++
		if opts.Highlight {
			differing = append(differing, i)
		}
	}

	res := Result{Matched: count == 0, Differing: count}
	if opts.Highlight && !res.Matched {
		res.Highlight = paint(a, differing, opts.Color)
	}
	return res, nil
}
