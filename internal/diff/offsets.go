package diff

// MaxShift is the largest displacement, in rows or columns, that the
// shift-tolerant engine forgives.
const MaxShift = 5

// offset is a displacement applied to the comparison buffer.
type offset struct {
	dr, dc int
}

// shiftOffsets is evaluated front to back and the first matching offset
// wins: the same position, then for each distance j the pure row shifts,
// the pure column shifts, and the diagonals at j rows and 1..MaxShift
// columns.
var shiftOffsets = buildOffsets(MaxShift)

func buildOffsets(max int) []offset {
	out := make([]offset, 0, (2*max+1)*(2*max+1))
	out = append(out, offset{0, 0})
	for j := 1; j <= max; j++ {
		out = append(out,
			offset{-j, 0},
			offset{+j, 0},
			offset{0, +j},
			offset{0, -j},
		)
		for c := 1; c <= max; c++ {
			out = append(out,
				offset{-j, -c},
				offset{+j, -c},
				offset{-j, +c},
				offset{+j, +c},
			)
		}
	}
	return out
}
