package meanshift

import "fmt"

// Algorithm selects the spatial index behind neighbor queries.
type Algorithm string

const (
	AlgorithmAuto   Algorithm = "auto"
	AlgorithmKDTree Algorithm = "kd_tree"
	AlgorithmBrute  Algorithm = "brute"
)

// KDTreeValidMetric reports whether the metric supports KD-tree pruning.
// KD-trees require metrics that decompose along coordinate axes, so that the
// distance from a query to its projection onto a bounding box is a lower
// bound on the distance to every point in the box: Euclidean, Manhattan.
func KDTreeValidMetric(m Metric) bool {
	switch m.(type) {
	case EuclideanMetric, ManhattanMetric:
		return true
	default:
		return false
	}
}

// selectAlgorithm resolves AlgorithmAuto into a concrete index choice based
// on the metric, and validates that user-forced choices are compatible with
// it.
func selectAlgorithm(cfg Config) (Algorithm, error) {
	switch cfg.Algorithm {
	case AlgorithmAuto, "":
		return defaultAlgorithm(cfg.Metric), nil
	case AlgorithmKDTree:
		if !KDTreeValidMetric(cfg.Metric) {
			return "", fmt.Errorf("%w: metric %q is not supported by the KD-tree", ErrInvalidInput, cfg.Metric.Name())
		}
		return AlgorithmKDTree, nil
	case AlgorithmBrute:
		return AlgorithmBrute, nil
	default:
		return "", fmt.Errorf("%w: unknown Algorithm %q", ErrInvalidInput, cfg.Algorithm)
	}
}

// defaultAlgorithm is the fastest index that is exact for m.
func defaultAlgorithm(m Metric) Algorithm {
	if KDTreeValidMetric(m) {
		return AlgorithmKDTree
	}
	return AlgorithmBrute
}

// newIndex returns an empty index of the given kind.
func newIndex(algo Algorithm, dims, leafSize int) SpatialIndex {
	if algo == AlgorithmBrute {
		return NewBruteIndex(dims)
	}
	return NewKDTree(dims, leafSize)
}
