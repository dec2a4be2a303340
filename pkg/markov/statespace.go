package markov

import (
	"cmp"
	"fmt"
	"slices"
)

// Matrix is a square table of transition counts. Matrix[i][j] is the number
// of times state j immediately followed state i.
type Matrix [][]int

// NewMatrix returns an n×n matrix of zero counts.
func NewMatrix(n int) Matrix {
	m := make(Matrix, n)
	cells := make([]int, n*n)
	for i := range m {
		m[i] = cells[i*n : (i+1)*n : (i+1)*n]
	}
	return m
}

// RowSum returns the total outgoing count of state i.
func (m Matrix) RowSum(i int) int {
	var sum int
	for _, v := range m[i] {
		sum += v
	}
	return sum
}

// Live reports whether state i has at least one outgoing transition.
func (m Matrix) Live(i int) bool {
	for _, v := range m[i] {
		if v > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	out := NewMatrix(len(m))
	for i, row := range m {
		copy(out[i], row)
	}
	return out
}

// validate checks that m is n×n with no negative counts.
func (m Matrix) validate(n int) error {
	if len(m) != n {
		return fmt.Errorf("%w: %d rows for %d states", ErrInvalidMatrix, len(m), n)
	}
	for i, row := range m {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), n)
		}
		for j, v := range row {
			if v < 0 {
				return fmt.Errorf("%w: negative count %d at (%d, %d)", ErrInvalidMatrix, v, i, j)
			}
		}
	}
	return nil
}

// checkOrdered rejects values that are not equal to themselves.
func checkOrdered[T cmp.Ordered](values []T) error {
	for i, v := range values {
		if v != v {
			return fmt.Errorf("%w: %v at %d", ErrUnorderedState, v, i)
		}
	}
	return nil
}

// buildStateSpace returns the sorted, deduplicated elements of seq together
// with a lookup from element to its canonical index.
func buildStateSpace[T cmp.Ordered](seq []T) ([]T, map[T]int) {
	states := slices.Clone(seq)
	slices.Sort(states)
	states = slices.Compact(states)
	return states, indexStates(states)
}

func indexStates[T cmp.Ordered](states []T) map[T]int {
	index := make(map[T]int, len(states))
	for i, s := range states {
		index[s] = i
	}
	return index
}

// buildMatrix counts every adjacent pair of seq over the canonical indices.
func buildMatrix[T cmp.Ordered](seq []T, index map[T]int) Matrix {
	m := NewMatrix(len(index))
	prev := -1
	for _, elem := range seq {
		cur, ok := index[elem]
		if !ok {
			// The index was built from seq itself.
			panic(fmt.Sprintf("markov: element %v missing from state space", elem))
		}
		if prev >= 0 {
			m[prev][cur]++
		}
		prev = cur
	}
	return m
}
