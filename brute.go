package meanshift

import (
	"fmt"
	"sort"
)

// BruteIndex answers neighbor queries by scanning every stored point. It
// makes no assumption about the distance function, so it serves metrics the
// KDTree cannot prune for, such as DTW.
type BruteIndex struct {
	dims   int
	points [][]float64
	ids    []int
}

// NewBruteIndex creates an empty linear-scan index for points of
// dimensionality dims.
func NewBruteIndex(dims int) *BruteIndex {
	return &BruteIndex{dims: dims}
}

// Len returns the number of points in the index.
func (b *BruteIndex) Len() int { return len(b.points) }

// Insert adds a copy of coords under id.
func (b *BruteIndex) Insert(coords []float64, id int) error {
	if len(coords) != b.dims {
		return fmt.Errorf("%w: point has %d dimensions, index has %d", ErrInvalidInput, len(coords), b.dims)
	}
	b.points = append(b.points, append([]float64(nil), coords...))
	b.ids = append(b.ids, id)
	return nil
}

// KNearest returns the k nearest points to query, ascending by distance with
// ties in insertion order.
func (b *BruteIndex) KNearest(query []float64, k int, dist DistanceFunc) []Neighbor {
	if k <= 0 || len(b.points) == 0 {
		return nil
	}
	all := make([]Neighbor, len(b.points))
	for i, p := range b.points {
		all[i] = Neighbor{ID: b.ids[i], Distance: dist(query, p)}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Distance < all[j].Distance
	})
	return all[:min(k, len(all))]
}

// WithinRadius returns every point with dist(query, point) <= radius, in
// insertion order.
func (b *BruteIndex) WithinRadius(query []float64, radius float64, dist DistanceFunc) []Neighbor {
	var out []Neighbor
	for i, p := range b.points {
		if d := dist(query, p); d <= radius {
			out = append(out, Neighbor{ID: b.ids[i], Distance: d})
		}
	}
	return out
}
