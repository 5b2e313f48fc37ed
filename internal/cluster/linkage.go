package cluster

import "gonum.org/v1/gonum/mat"

// agglomerate runs average-linkage hierarchical clustering over a
// precomputed distance matrix. There is no fixed cluster count: groups
// merge bottom-up while the linkage distance stays at or below threshold.
// Ties break on the lowest pair of indices, which keeps membership
// deterministic for identical input order.
func agglomerate(distances *mat.SymDense, n int, threshold float64) []int {
	if n == 1 {
		return []int{0}
	}

	// Working copy updated in place with the Lance-Williams recurrence for
	// average linkage.
	dist := make([][]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i != j {
				dist[i][j] = distances.At(i, j)
			}
		}
	}

	active := make([]bool, n)
	size := make([]int, n)
	members := make([][]int, n)
	for i := 0; i < n; i++ {
		active[i] = true
		size[i] = 1
		members[i] = []int{i}
	}
	remaining := n

	for remaining > 1 {
		bestI, bestJ := -1, -1
		bestDist := threshold
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if d := dist[i][j]; d < bestDist || (d == bestDist && bestI < 0) {
					bestI, bestJ, bestDist = i, j, d
				}
			}
		}
		if bestI < 0 {
			break
		}

		// Merge bestJ into bestI.
		ni, nj := float64(size[bestI]), float64(size[bestJ])
		for k := 0; k < n; k++ {
			if !active[k] || k == bestI || k == bestJ {
				continue
			}
			merged := (ni*dist[bestI][k] + nj*dist[bestJ][k]) / (ni + nj)
			dist[bestI][k] = merged
			dist[k][bestI] = merged
		}
		size[bestI] += size[bestJ]
		members[bestI] = append(members[bestI], members[bestJ]...)
		active[bestJ] = false
		remaining--
	}

	labels := make([]int, n)
	next := 0
	for i := 0; i < n; i++ {
		if !active[i] {
			continue
		}
		for _, m := range members[i] {
			labels[m] = next
		}
		next++
	}
	return labels
}
