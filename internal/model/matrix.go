package model

// Row is an ordered sequence of samples for one Extract definition, ordered by
// Time ascending.
type Row []Transmutation

// Matrix is an ordered sequence of Rows. Transforms may change row length
// (including to zero, dropping the row) but must preserve row ordering.
type Matrix []Row

// Concat appends the rows of other after m's own rows, preserving the
// relative order within each input.
func (m Matrix) Concat(other Matrix) Matrix {
	out := make(Matrix, 0, len(m)+len(other))
	out = append(out, m...)
	out = append(out, other...)
	return out
}

// Clone returns a deep-enough copy so that a Transform can safely mutate the
// returned Matrix without aliasing the slices backing the input.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		cloned := make(Row, len(row))
		copy(cloned, row)
		out[i] = cloned
	}
	return out
}
