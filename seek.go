package meanshift

import (
	"errors"
	"fmt"
)

const (
	// DefaultMaxIterations caps the number of shifts a single seed may take.
	DefaultMaxIterations = 300

	// DefaultConvergenceTolerance is the stopping threshold for a shift,
	// relative to the bandwidth.
	DefaultConvergenceTolerance = 1e-3
)

// SeekState is the state of a single mode-seeking ascent.
type SeekState int

const (
	SeekInit SeekState = iota
	SeekConverging
	SeekConverged
	SeekIterationLimitReached
	SeekDegenerate
)

func (s SeekState) String() string {
	switch s {
	case SeekInit:
		return "init"
	case SeekConverging:
		return "converging"
	case SeekConverged:
		return "converged"
	case SeekIterationLimitReached:
		return "iteration_limit_reached"
	case SeekDegenerate:
		return "degenerate"
	default:
		return fmt.Sprintf("SeekState(%d)", int(s))
	}
}

// Mode is a candidate cluster center produced by one seed's ascent.
type Mode struct {
	// Center is the final mean of the ascent.
	Center []float64

	// Support is the number of points that contributed to the last mean.
	Support int

	// Iterations is the number of completed shifts.
	Iterations int

	// ID identifies the mode. Seeds use their row number; the collector
	// reassigns dense identifiers.
	ID int

	// State is SeekConverged or SeekIterationLimitReached for emitted modes.
	State SeekState
}

// seeker holds what every ascent reads. All fields are shared read-only
// across goroutines.
type seeker struct {
	data      [][]float64
	index     SpatialIndex
	metric    Metric
	bandwidth float64
	radius    float64 // bandwidth in reduced-distance space
	threshold float64 // convergence threshold in true distance
	maxIter   int
}

func newSeeker(data [][]float64, index SpatialIndex, metric Metric, bandwidth, tolerance float64, maxIter int) *seeker {
	return &seeker{
		data:      data,
		index:     index,
		metric:    metric,
		bandwidth: bandwidth,
		radius:    metric.DistToRdist(bandwidth),
		threshold: tolerance * bandwidth,
		maxIter:   maxIter,
	}
}

// seek runs the ascent for seed row s. A degenerate ascent returns a Mode
// with State SeekDegenerate and zero support, which callers discard.
func (s *seeker) seek(seed int) (Mode, error) {
	mode := Mode{ID: seed, State: SeekInit}
	mean := s.data[seed]
	mode.State = SeekConverging

	neighbors := make([][]float64, 0, 16)
	for {
		hits := s.index.WithinRadius(mean, s.radius, s.metric.ReducedDistance)
		if len(hits) == 0 {
			return Mode{ID: seed, State: SeekDegenerate}, nil
		}

		neighbors = neighbors[:0]
		for _, h := range hits {
			neighbors = append(neighbors, s.data[h.ID])
		}
		next, err := s.metric.Centroid(neighbors)
		if errors.Is(err, ErrEmptyCentroid) {
			return Mode{ID: seed, State: SeekDegenerate}, nil
		}
		if err != nil {
			return Mode{}, err
		}

		old := mean
		mean = next
		mode.Support = len(hits)

		if s.metric.Distance(mean, old) < s.threshold {
			mode.State = SeekConverged
			break
		}
		if mode.Iterations >= s.maxIter {
			mode.State = SeekIterationLimitReached
			break
		}
		mode.Iterations++
	}

	mode.Center = mean
	return mode, nil
}

// SeekModes runs one ascent per row of data across exec and returns the
// surviving modes in seed order, plus the number of degenerate seeds. The
// index must contain every row of data under its row number.
func SeekModes(data [][]float64, index SpatialIndex, metric Metric, bandwidth float64, cfg Config, exec *Executor) ([]Mode, int, error) {
	if exec == nil {
		exec = NewExecutor(1)
	}
	tol := cfg.ConvergenceTolerance
	if tol <= 0 {
		tol = DefaultConvergenceTolerance
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	s := newSeeker(data, index, metric, bandwidth, tol, maxIter)
	slots := make([]Mode, len(data))
	err := exec.Map(len(data), func(i int) error {
		m, err := s.seek(i)
		if err != nil {
			return fmt.Errorf("meanshift: seed %d: %w", i, err)
		}
		slots[i] = m
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	modes := make([]Mode, 0, len(slots))
	degenerate := 0
	for _, m := range slots {
		if m.State == SeekDegenerate || m.Support == 0 {
			degenerate++
			continue
		}
		modes = append(modes, m)
	}
	return modes, degenerate, nil
}
