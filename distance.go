package meanshift

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DistanceFunc measures the distance between two coordinate vectors. It is
// the function injected into KDTree queries.
type DistanceFunc func(a, b []float64) float64

// Metric is a pluggable distance strategy.
//
// ReducedDistance may be any monotone transform of Distance that is cheaper
// to evaluate (squared Euclidean instead of Euclidean). DistToRdist maps a
// true distance, such as the bandwidth, into reduced space and RdistToDist
// maps it back, so radius comparisons against ReducedDistance stay exact.
type Metric interface {
	// Name is the stable, machine-readable name accepted by MetricByName.
	Name() string
	Distance(a, b []float64) float64
	ReducedDistance(a, b []float64) float64
	DistToRdist(d float64) float64
	RdistToDist(r float64) float64
	// Centroid returns the center of points under this metric. It returns
	// ErrEmptyCentroid when points is empty.
	Centroid(points [][]float64) ([]float64, error)
}

// Metric names accepted by MetricByName.
const (
	MetricMinkowski = "minkowski"
	MetricManhattan = "manhattan"
	MetricDTW       = "dtw"
)

// MetricByName resolves a metric from its name. "euclidean" is accepted as
// an alias for "minkowski".
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MetricMinkowski, "euclidean":
		return EuclideanMetric{}, nil
	case MetricManhattan:
		return ManhattanMetric{}, nil
	case MetricDTW:
		return NewDTWMetric(), nil
	default:
		return nil, fmt.Errorf("%w: unknown distance measure %q", ErrInvalidInput, name)
	}
}

// EuclideanMetric computes the Euclidean (L2) distance.
// ReducedDistance returns squared Euclidean distance (skips sqrt).
type EuclideanMetric struct{}

func (EuclideanMetric) Name() string { return MetricMinkowski }

func (EuclideanMetric) Distance(a, b []float64) float64 {
	return math.Sqrt(euclideanSumOfSquares(a, b))
}

func (EuclideanMetric) ReducedDistance(a, b []float64) float64 {
	return euclideanSumOfSquares(a, b)
}

func (EuclideanMetric) DistToRdist(d float64) float64 { return d * d }
func (EuclideanMetric) RdistToDist(r float64) float64 { return math.Sqrt(r) }

func (EuclideanMetric) Centroid(points [][]float64) ([]float64, error) {
	return meanCentroid(points)
}

func euclideanSumOfSquares(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Name() string { return MetricManhattan }

func (ManhattanMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

func (m ManhattanMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }
func (ManhattanMetric) DistToRdist(d float64) float64            { return d }
func (ManhattanMetric) RdistToDist(r float64) float64            { return r }

func (ManhattanMetric) Centroid(points [][]float64) ([]float64, error) {
	return meanCentroid(points)
}

// FuncMetric adapts a plain distance function into a Metric.
// ReducedDistance delegates to the same function and Centroid is the
// arithmetic mean.
type FuncMetric struct {
	Label string
	Fn    DistanceFunc
}

func (f FuncMetric) Name() string                           { return f.Label }
func (f FuncMetric) Distance(a, b []float64) float64        { return f.Fn(a, b) }
func (f FuncMetric) ReducedDistance(a, b []float64) float64 { return f.Fn(a, b) }
func (FuncMetric) DistToRdist(d float64) float64            { return d }
func (FuncMetric) RdistToDist(r float64) float64            { return r }

func (FuncMetric) Centroid(points [][]float64) ([]float64, error) {
	return meanCentroid(points)
}

// meanCentroid returns the coordinate-wise arithmetic mean of points.
func meanCentroid(points [][]float64) ([]float64, error) {
	if len(points) == 0 {
		return nil, ErrEmptyCentroid
	}
	dims := len(points[0])
	mean := make([]float64, dims)
	for _, p := range points {
		if len(p) != dims {
			return nil, fmt.Errorf("%w: centroid over vectors of length %d and %d", ErrInvalidInput, dims, len(p))
		}
		floats.Add(mean, p)
	}
	floats.Scale(1/float64(len(points)), mean)
	return mean, nil
}
