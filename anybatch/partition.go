package anybatch

// partition splits the indices [0, n) into numWorkers
// contiguous blocks.
//
// Block sizes differ by at most one, with the larger
// blocks first.
// The result holds the start index of each block, followed
// by n.
func partition(n, numWorkers int) []int {
	if numWorkers <= 0 || numWorkers > n {
		numWorkers = n
	}
	bounds := make([]int, numWorkers+1)
	base, extra := n/numWorkers, n%numWorkers
	for i := 0; i < numWorkers; i++ {
		size := base
		if i < extra {
			size++
		}
		bounds[i+1] = bounds[i] + size
	}
	return bounds
}
