package meanshift

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// compareCoords orders vectors lexicographically: the first differing
// coordinate decides.
func compareCoords(a, b []float64) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// compareModes ranks modes for merging: higher support first, then the
// lexicographically larger center first.
func compareModes(a, b Mode) int {
	if c := cmp.Compare(b.Support, a.Support); c != 0 {
		return c
	}
	return compareCoords(b.Center, a.Center)
}

// CollectModes merges candidate modes into cluster centers.
//
// Candidates are ranked by support, then by lexicographic center order, so
// the outcome does not depend on the order seekers finished in. Exact
// duplicate centers are dropped, the survivors are given dense IDs in rank
// order and indexed, and a greedy suppression pass keeps each candidate that
// was not already within bandwidth of a higher-ranked survivor.
//
// The returned centers are in rank order. The returned modes are the ranked,
// deduplicated candidates with their dense IDs; suppressed ones included.
// The pass is sequential: whether a candidate survives depends on every
// decision ranked above it.
func CollectModes(modes []Mode, metric Metric, bandwidth float64, leafSize int) ([][]float64, []Mode, error) {
	if len(modes) == 0 {
		return nil, nil, ErrNoClustersFound
	}

	ranked := slices.Clone(modes)
	slices.SortStableFunc(ranked, compareModes)
	ranked = dedupeCenters(ranked)

	dims := len(ranked[0].Center)
	index := newIndex(defaultAlgorithm(metric), dims, leafSize)
	for i := range ranked {
		ranked[i].ID = i
		if err := index.Insert(ranked[i].Center, i); err != nil {
			return nil, nil, fmt.Errorf("meanshift: indexing mode %d: %w", i, err)
		}
	}

	unique := roaring.New()
	unique.AddRange(0, uint64(len(ranked)))

	radius := metric.DistToRdist(bandwidth)
	for i, m := range ranked {
		if !unique.Contains(uint32(i)) {
			continue
		}
		for _, nb := range index.WithinRadius(m.Center, radius, metric.ReducedDistance) {
			unique.Remove(uint32(nb.ID))
		}
		unique.Add(uint32(i))
	}

	centers := make([][]float64, 0, unique.GetCardinality())
	it := unique.Iterator()
	for it.HasNext() {
		centers = append(centers, slices.Clone(ranked[it.Next()].Center))
	}
	return centers, ranked, nil
}

// dedupeCenters drops every mode whose center exactly equals the center of
// an earlier mode.
func dedupeCenters(ranked []Mode) []Mode {
	seen := make(map[string]struct{}, len(ranked))
	out := ranked[:0]
	for _, m := range ranked {
		key := centerKey(m.Center)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

func centerKey(v []float64) string {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		if x == 0 {
			x = 0 // -0 and +0 are the same coordinate
		}
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return string(buf)
}
