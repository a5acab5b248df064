package meanshift

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// medoidCandidates bounds how many leading sequences are considered when
// picking the DBA starting point.
const medoidCandidates = 32

// DTWMetric measures dynamic time warping distance with an absolute
// difference step cost. Sequences may differ in length.
//
// Centroid implements DTW Barycenter Averaging (Petitjean, Ketterlin and
// Gançarski, 2011): starting from the medoid, every sequence is aligned to
// the current average and each average coordinate is replaced by the mean of
// the values aligned to it, until the average moves by at most Tolerance
// (in DTW distance) or MaxIterations rounds have run.
type DTWMetric struct {
	MaxIterations int
	Tolerance     float64
}

// NewDTWMetric returns a DTWMetric with the default DBA settings.
func NewDTWMetric() DTWMetric {
	return DTWMetric{MaxIterations: 10, Tolerance: 1e-6}
}

func (DTWMetric) Name() string { return MetricDTW }

func (DTWMetric) Distance(a, b []float64) float64 { return dtwDistance(a, b) }

func (DTWMetric) ReducedDistance(a, b []float64) float64 { return dtwDistance(a, b) }
func (DTWMetric) DistToRdist(d float64) float64          { return d }
func (DTWMetric) RdistToDist(r float64) float64          { return r }

func (m DTWMetric) Centroid(points [][]float64) ([]float64, error) {
	if len(points) == 0 {
		return nil, ErrEmptyCentroid
	}
	if len(points) == 1 {
		return append([]float64(nil), points[0]...), nil
	}

	maxIter := m.MaxIterations
	if maxIter < 1 {
		maxIter = 1
	}

	avg := append([]float64(nil), points[dtwMedoid(points)]...)
	sums := make([]float64, len(avg))
	counts := make([]float64, len(avg))

	for iter := 0; iter < maxIter; iter++ {
		for i := range sums {
			sums[i] = 0
			counts[i] = 0
		}
		for _, p := range points {
			for _, step := range dtwPath(avg, p) {
				sums[step[0]] += p[step[1]]
				counts[step[0]]++
			}
		}

		next := make([]float64, len(avg))
		floats.DivTo(next, sums, counts)

		shift := dtwDistance(next, avg)
		avg = next
		if shift <= m.Tolerance {
			break
		}
	}

	return avg, nil
}

// dtwDistance computes the DTW distance between a and b using two rolling
// rows of the cost matrix.
func dtwDistance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		if len(a) == len(b) {
			return 0
		}
		return math.Inf(1)
	}

	prev := make([]float64, len(b)+1)
	curr := make([]float64, len(b)+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= len(a); i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= len(b); j++ {
			cost := math.Abs(a[i-1] - b[j-1])
			curr[j] = cost + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// dtwPath returns the optimal warping path between a and b as (i, j) index
// pairs, from (0, 0) to (len(a)-1, len(b)-1). Ties prefer the diagonal step.
func dtwPath(a, b []float64) [][2]int {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}

	// cost[i*(m+1)+j] is the accumulated cost of aligning a[:i] with b[:j].
	stride := m + 1
	cost := make([]float64, (n+1)*stride)
	for i := range cost {
		cost[i] = math.Inf(1)
	}
	cost[0] = 0
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			c := math.Abs(a[i-1] - b[j-1])
			cost[i*stride+j] = c + min(cost[(i-1)*stride+j], cost[i*stride+j-1], cost[(i-1)*stride+j-1])
		}
	}

	path := make([][2]int, 0, n+m)
	i, j := n, m
	for i > 0 && j > 0 {
		path = append(path, [2]int{i - 1, j - 1})
		diag := cost[(i-1)*stride+j-1]
		up := cost[(i-1)*stride+j]
		left := cost[i*stride+j-1]
		switch {
		case diag <= up && diag <= left:
			i--
			j--
		case up <= left:
			i--
		default:
			j--
		}
	}

	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// dtwMedoid returns the index, among the first medoidCandidates points, of
// the point with the smallest summed DTW distance to all points.
func dtwMedoid(points [][]float64) int {
	best := 0
	bestSum := math.Inf(1)
	for c := 0; c < min(len(points), medoidCandidates); c++ {
		var sum float64
		for j, p := range points {
			if j != c {
				sum += dtwDistance(points[c], p)
			}
		}
		if sum < bestSum {
			best, bestSum = c, sum
		}
	}
	return best
}
