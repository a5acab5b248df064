package meanshift

import (
	"fmt"
	"math"
)

// Label assigns every point to its nearest center under the metric's reduced
// distance. Ties go to the center that comes first. The reduced distance is
// monotone in the true distance, so no radius transform is needed here.
func Label(points, centers [][]float64, metric Metric, exec *Executor) ([]int, error) {
	if len(centers) == 0 {
		return nil, ErrNoClustersFound
	}
	if exec == nil {
		exec = NewExecutor(1)
	}

	labels := make([]int, len(points))
	err := exec.Map(len(points), func(i int) error {
		labels[i] = nearestCenter(points[i], centers, metric)
		if labels[i] < 0 {
			return fmt.Errorf("%w: point %d has no finite distance to any center", ErrInvalidInput, i)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// nearestCenter returns the index of the closest center, or -1 when every
// distance is NaN or +Inf.
func nearestCenter(point []float64, centers [][]float64, metric Metric) int {
	best := -1
	bestDist := math.Inf(1)
	for j, c := range centers {
		if d := metric.ReducedDistance(point, c); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}
