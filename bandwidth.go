package meanshift

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultQuantile is the fraction of the dataset used as the neighborhood
// size when estimating the bandwidth.
const DefaultQuantile = 0.3

// neighborCount returns max(1, round(n*quantile)), capped at n.
func neighborCount(n int, quantile float64) int {
	k := int(math.Round(float64(n) * quantile))
	return min(max(k, 1), n)
}

// EstimateBandwidth derives a smoothing radius from data, which must already
// be inserted into index under its row numbers.
//
// For every point it finds the k = max(1, round(N*quantile)) nearest
// neighbors (the point itself included) under the metric's reduced distance,
// takes the farthest of the k, maps it back to a true distance, and averages
// these over all N points.
func EstimateBandwidth(index SpatialIndex, data [][]float64, metric Metric, quantile float64, exec *Executor) (float64, error) {
	n := len(data)
	if n == 0 {
		return 0, fmt.Errorf("%w: cannot estimate bandwidth of an empty dataset", ErrInvalidInput)
	}
	if !(quantile > 0 && quantile <= 1) {
		return 0, fmt.Errorf("%w: quantile must be in (0, 1], got %v", ErrInvalidInput, quantile)
	}
	if exec == nil {
		exec = NewExecutor(1)
	}

	k := neighborCount(n, quantile)
	farthest := make([]float64, n)

	err := exec.Map(n, func(i int) error {
		nearest := index.KNearest(data[i], k, metric.ReducedDistance)
		if len(nearest) == 0 {
			return fmt.Errorf("%w: index returned no neighbors for point %d", ErrInvalidInput, i)
		}
		dists := make([]float64, len(nearest))
		for j, nb := range nearest {
			dists[j] = nb.Distance
		}
		farthest[i] = metric.RdistToDist(floats.Max(dists))
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Summed in row order so the estimate does not depend on worker count.
	return floats.Sum(farthest) / float64(n), nil
}
