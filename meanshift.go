package meanshift

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

// Config controls mean-shift clustering behavior.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Bandwidth is the kernel radius used both for neighbor averaging and
	// for merging modes. Set to 0 to estimate it from the data.
	// Must be >= 0. Default: 0 (estimate).
	Bandwidth float64

	// EstimateBandwidth permits deriving the bandwidth when Bandwidth is 0.
	// With estimation disabled and no bandwidth, Fit returns
	// ErrPreconditionNotMet. Default: true.
	EstimateBandwidth bool

	// Quantile is the fraction of the dataset used as the neighborhood size
	// when estimating the bandwidth. Must be in (0, 1]. Default: 0.3.
	Quantile float64

	// Metric is the distance strategy. Built-in: EuclideanMetric,
	// ManhattanMetric, DTWMetric; see MetricByName. Default: EuclideanMetric.
	Metric Metric

	// Algorithm selects the spatial index: AlgorithmKDTree, AlgorithmBrute,
	// or AlgorithmAuto, which picks the KD-tree whenever the metric allows
	// box pruning. Default: AlgorithmAuto.
	Algorithm Algorithm

	// MaxIterations caps the number of shifts per seed. Default: 300.
	MaxIterations int

	// ConvergenceTolerance stops a seed once its mean moves less than
	// ConvergenceTolerance*Bandwidth. Default: 1e-3.
	ConvergenceTolerance float64

	// LeafSize controls the maximum number of points in a KD-tree leaf.
	// Default: 16.
	LeafSize int

	// Workers controls the number of goroutines for the parallel phases
	// (bandwidth estimation, mode seeking, labeling). It is capped at the
	// number of points. 0 means use runtime.NumCPU(). Default: 0 (auto).
	Workers int

	// Logger receives debug-level progress records. nil discards them.
	Logger *slog.Logger
}

// Result contains the output of mean-shift clustering.
type Result struct {
	// Centers holds one row per cluster, ordered by decreasing support.
	Centers [][]float64

	// Labels assigns each input point the index of its nearest center.
	Labels []int

	// Bandwidth is the bandwidth the fit used, given or estimated.
	Bandwidth float64

	// Modes are the ranked, deduplicated candidate modes that entered the
	// merge, with dense IDs. Useful for diagnostics.
	Modes []Mode

	metric  Metric
	workers int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		EstimateBandwidth:    true,
		Quantile:             DefaultQuantile,
		Metric:               EuclideanMetric{},
		Algorithm:            AlgorithmAuto,
		MaxIterations:        DefaultMaxIterations,
		ConvergenceTolerance: DefaultConvergenceTolerance,
		LeafSize:             DefaultLeafSize,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Quantile == 0 {
		cfg.Quantile = DefaultQuantile
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmAuto
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ConvergenceTolerance == 0 {
		cfg.ConvergenceTolerance = DefaultConvergenceTolerance
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = DefaultLeafSize
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.Bandwidth < 0 || math.IsNaN(cfg.Bandwidth) || math.IsInf(cfg.Bandwidth, 0) {
		return fmt.Errorf("%w: Bandwidth must be a finite value >= 0, got %v", ErrInvalidInput, cfg.Bandwidth)
	}
	if cfg.Bandwidth == 0 && !cfg.EstimateBandwidth {
		return fmt.Errorf("%w: no Bandwidth given and EstimateBandwidth is disabled", ErrPreconditionNotMet)
	}
	if !(cfg.Quantile > 0 && cfg.Quantile <= 1) {
		return fmt.Errorf("%w: Quantile must be in (0, 1], got %v", ErrInvalidInput, cfg.Quantile)
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("%w: MaxIterations must be >= 1, got %d", ErrInvalidInput, cfg.MaxIterations)
	}
	if !(cfg.ConvergenceTolerance > 0) {
		return fmt.Errorf("%w: ConvergenceTolerance must be > 0, got %v", ErrInvalidInput, cfg.ConvergenceTolerance)
	}
	if cfg.LeafSize < 1 {
		return fmt.Errorf("%w: LeafSize must be >= 1, got %d", ErrInvalidInput, cfg.LeafSize)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("%w: Workers must be >= 0, got %d", ErrInvalidInput, cfg.Workers)
	}
	return nil
}

// validateData checks that data is a non-empty, rectangular matrix of finite
// values and returns its dimensionality.
func validateData(data [][]float64) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty dataset", ErrInvalidInput)
	}
	dims := len(data[0])
	if dims == 0 {
		return 0, fmt.Errorf("%w: points have zero dimensions", ErrInvalidInput)
	}
	for i, row := range data {
		if len(row) != dims {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidInput, i, len(row), dims)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("%w: row %d column %d is not finite (%v)", ErrInvalidInput, i, j, v)
			}
		}
	}
	return dims, nil
}

// Fit performs mean-shift clustering on the given data.
// Each element is a point; all points must have the same dimensionality.
// Fit blocks until every phase has finished and returns either a complete
// Result or a single error.
func Fit(data [][]float64, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	algo, err := selectAlgorithm(cfg)
	if err != nil {
		return nil, err
	}
	dims, err := validateData(data)
	if err != nil {
		return nil, err
	}

	n := len(data)
	rows := copyRows(data, dims)
	exec := NewExecutor(min(cfg.Workers, n))
	log := cfg.Logger.With(
		"metric", cfg.Metric.Name(),
		"algorithm", string(algo),
		"points", n,
		"dims", dims,
		"workers", exec.Workers(),
	)

	index := newIndex(algo, dims, cfg.LeafSize)
	for i, row := range rows {
		if err := index.Insert(row, i); err != nil {
			return nil, err
		}
	}

	bandwidth := cfg.Bandwidth
	if bandwidth == 0 {
		bandwidth, err = EstimateBandwidth(index, rows, cfg.Metric, cfg.Quantile, exec)
		if err != nil {
			return nil, err
		}
		log.Debug("bandwidth estimated", "bandwidth", bandwidth, "quantile", cfg.Quantile)
	}

	modes, degenerate, err := SeekModes(rows, index, cfg.Metric, bandwidth, cfg, exec)
	if err != nil {
		return nil, err
	}
	log.Debug("modes sought",
		"candidates", len(modes),
		"degenerate", degenerate,
		"iteration_limit", countState(modes, SeekIterationLimitReached),
	)

	centers, ranked, err := CollectModes(modes, cfg.Metric, bandwidth, cfg.LeafSize)
	if err != nil {
		return nil, err
	}
	log.Debug("modes collected", "unique_candidates", len(ranked), "clusters", len(centers))

	labels, err := Label(rows, centers, cfg.Metric, exec)
	if err != nil {
		return nil, err
	}

	return &Result{
		Centers:   centers,
		Labels:    labels,
		Bandwidth: bandwidth,
		Modes:     ranked,
		metric:    cfg.Metric,
		workers:   exec.Workers(),
	}, nil
}

// FitDense performs mean-shift clustering on the rows of m.
func FitDense(m mat.Matrix, cfg Config) (*Result, error) {
	r, _ := m.Dims()
	if r == 0 {
		return nil, fmt.Errorf("%w: empty dataset", ErrInvalidInput)
	}
	data := make([][]float64, r)
	for i := range data {
		data[i] = mat.Row(nil, i, m)
	}
	return Fit(data, cfg)
}

// CentersDense returns the cluster centers as a K×D matrix.
func (r *Result) CentersDense() *mat.Dense {
	if len(r.Centers) == 0 {
		return nil
	}
	dims := len(r.Centers[0])
	flat := make([]float64, 0, len(r.Centers)*dims)
	for _, c := range r.Centers {
		flat = append(flat, c...)
	}
	return mat.NewDense(len(r.Centers), dims, flat)
}

// Predict labels new points with the index of their nearest fitted center.
func (r *Result) Predict(points [][]float64) ([]int, error) {
	if len(r.Centers) == 0 {
		return nil, ErrNoClustersFound
	}
	if len(points) == 0 {
		return []int{}, nil
	}
	dims, err := validateData(points)
	if err != nil {
		return nil, err
	}
	if want := len(r.Centers[0]); dims != want {
		return nil, fmt.Errorf("%w: points have %d dimensions, centers have %d", ErrInvalidInput, dims, want)
	}
	metric := r.metric
	if metric == nil {
		metric = EuclideanMetric{}
	}
	return Label(points, r.Centers, metric, NewExecutor(r.workers))
}

// copyRows copies data into one contiguous backing array so later caller
// mutations cannot leak into a running fit.
func copyRows(data [][]float64, dims int) [][]float64 {
	flat := make([]float64, len(data)*dims)
	rows := make([][]float64, len(data))
	for i, row := range data {
		rows[i] = flat[i*dims : (i+1)*dims : (i+1)*dims]
		copy(rows[i], row)
	}
	return rows
}

func countState(modes []Mode, state SeekState) int {
	var n int
	for _, m := range modes {
		if m.State == state {
			n++
		}
	}
	return n
}
