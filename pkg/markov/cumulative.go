package markov

// CumulativeTable samples a weighted row by scanning its cumulative
// distribution. CDF is non-decreasing and its last entry is 1 up to rounding,
// or every entry is 0 for a row with no outgoing mass.
type CumulativeTable struct {
	CDF  []float64
	last int
}

// NewCumulativeTable builds the cumulative distribution of a row of
// non-negative counts.
func NewCumulativeTable(row []int) *CumulativeTable {
	t := &CumulativeTable{CDF: make([]float64, len(row))}

	var sum int
	for _, w := range row {
		sum += w
	}
	if sum == 0 {
		return t
	}

	var acc float64
	for i, w := range row {
		acc += float64(w) / float64(sum)
		t.CDF[i] = acc
		if w > 0 {
			t.last = i
		}
	}
	return t
}

// Sample draws a column index. The first column whose cumulative value
// exceeds the uniform draw wins; the last weighted column absorbs rounding
// error.
func (t *CumulativeTable) Sample(src Source) int {
	f := src.Float64()
	for i, c := range t.CDF {
		if f < c {
			return i
		}
	}
	return t.last
}

// Empty reports whether the row had no outgoing mass.
func (t *CumulativeTable) Empty() bool {
	return len(t.CDF) == 0 || t.CDF[len(t.CDF)-1] == 0
}
