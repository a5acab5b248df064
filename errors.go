package meanshift

import "errors"

var (
	// ErrInvalidInput is returned for empty or non-rectangular datasets,
	// non-finite values, unknown metric names and out-of-range config values.
	ErrInvalidInput = errors.New("meanshift: invalid input")

	// ErrPreconditionNotMet is returned when no bandwidth is given and
	// estimation has been disabled.
	ErrPreconditionNotMet = errors.New("meanshift: precondition not met")

	// ErrNoClustersFound is returned when every seed degenerated, leaving no
	// candidate mode to turn into a cluster center.
	ErrNoClustersFound = errors.New("meanshift: no clusters found")

	// ErrEmptyCentroid is returned by Metric.Centroid for an empty point set.
	// The mode seeker turns it into a skipped seed; Fit never returns it.
	ErrEmptyCentroid = errors.New("meanshift: centroid of zero points")
)
