package markov

// AliasTable samples a weighted row in constant time using Walker's alias
// method, built with Vose's small/large worklists.
//
// A draw picks a uniform column k and a uniform u in [0, 1). It returns k
// when u < Prob[k] and Alias[k] otherwise.
type AliasTable struct {
	Alias []int
	Prob  []float64
	empty bool
}

// NewAliasTable builds the alias table for a row of non-negative counts.
// A row summing to zero yields a degenerate table with every Prob at 0 and
// every Alias at 0; it reports Empty and must not be sampled.
func NewAliasTable(row []int) *AliasTable {
	n := len(row)
	t := &AliasTable{
		Alias: make([]int, n),
		Prob:  make([]float64, n),
	}

	var sum int
	for _, w := range row {
		sum += w
	}
	if sum == 0 {
		t.empty = true
		return t
	}

	// Scale so that the average column holds exactly 1.
	scaled := make([]float64, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range row {
		scaled[i] = float64(w) * float64(n) / float64(sum)
		if scaled[i] < 1.0 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		l := small[len(small)-1]
		small = small[:len(small)-1]
		g := large[len(large)-1]
		large = large[:len(large)-1]

		t.Prob[l] = scaled[l]
		t.Alias[l] = g

		scaled[g] = scaled[g] + scaled[l] - 1.0
		if scaled[g] < 1.0 {
			small = append(small, g)
		} else {
			large = append(large, g)
		}
	}

	// Whatever is left is within rounding of 1.
	for _, g := range large {
		t.Prob[g] = 1.0
		t.Alias[g] = g
	}
	for _, l := range small {
		t.Prob[l] = 1.0
		t.Alias[l] = l
	}
	return t
}

// Sample draws a column index.
func (t *AliasTable) Sample(src Source) int {
	k := src.IntN(len(t.Prob))
	if src.Float64() < t.Prob[k] {
		return k
	}
	return t.Alias[k]
}

// Empty reports whether the row had no outgoing mass.
func (t *AliasTable) Empty() bool { return t.empty }
