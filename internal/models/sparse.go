package models

// SparseVector is a term-weighted representation: parallel index/value
// slices, one entry per distinct term.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// IsEmpty reports whether the vector has no entries.
func (v SparseVector) IsEmpty() bool {
	return len(v.Indices) == 0
}
