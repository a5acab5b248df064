package meanshift

// Neighbor is a single spatial index query hit.
type Neighbor struct {
	ID       int
	Distance float64
}

// SpatialIndex is the contract the clustering pipeline needs from a spatial
// index. Distances are computed with the injected DistanceFunc, so the same
// index serves true and reduced distance queries.
type SpatialIndex interface {
	// Insert adds a point under the given identifier.
	Insert(coords []float64, id int) error

	// KNearest returns up to k neighbors of query sorted by ascending
	// distance. Equal distances are ordered by insertion order.
	KNearest(query []float64, k int, dist DistanceFunc) []Neighbor

	// WithinRadius returns every point whose distance to query is <= radius,
	// in no particular but deterministic order.
	WithinRadius(query []float64, radius float64, dist DistanceFunc) []Neighbor

	// Len returns the number of inserted points.
	Len() int
}
