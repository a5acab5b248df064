// Package meanshift implements mean-shift clustering with a flat kernel.
//
// Every point seeds an ascent: the seed's position is repeatedly replaced by
// the centroid of all points within one bandwidth of it until the shift
// falls below a tolerance or an iteration cap is hit. The resulting modes are
// ranked by how many points supported them, near-duplicates within one
// bandwidth of a better-supported mode are suppressed, and each input point
// is labeled with its nearest surviving center.
//
// Basic usage:
//
//	cfg := meanshift.DefaultConfig()
//	result, err := meanshift.Fit(data, cfg)
//	// result.Centers[k] is the k-th cluster center, best supported first
//	// result.Labels[i] is the center index for point i
//	// result.Bandwidth is the bandwidth used, given or estimated
//
// When Config.Bandwidth is 0 it is estimated from the data as the mean,
// over all points, of the distance to the k-th nearest neighbor with
// k = round(N * Config.Quantile).
//
// # Distance metrics
//
// The metric decides distance, centroid and the reduced-distance form used
// for index queries:
//
//	cfg.Metric = meanshift.EuclideanMetric{} // default, squared distances in the index
//	cfg.Metric = meanshift.ManhattanMetric{}
//	cfg.Metric = meanshift.NewDTWMetric()    // time series, DBA centroids
//
// Euclidean and Manhattan queries prune the KD-tree by bounding box; DTW
// queries visit every leaf.
//
// # Parallelism
//
// Bandwidth estimation, mode seeking and labeling fan out over
// Config.Workers goroutines. Results do not depend on the worker count.
package meanshift
