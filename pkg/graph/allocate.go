package graph

// Shares splits a work's total value across m ordered participants using
// triangular-number weighting: the participant at 1-based position n
// receives total * 2 * (m + 1 - n) / (m * (m + 1)). Earlier positions get
// strictly larger shares and the shares sum exactly to total, since
// sum(m+1-n) for n=1..m is m*(m+1)/2.
//
// Callers guard on non-empty participant lists; an empty list reaching this
// function is a programming error.
func Shares(total float64, m int) []float64 {
	if m <= 0 {
		panic("graph: share allocation over empty participant list")
	}

	shares := make([]float64, m)
	denom := float64(m) * float64(m+1)
	for i := range shares {
		n := i + 1
		shares[i] = total * 2 * float64(m+1-n) / denom
	}
	return shares
}
