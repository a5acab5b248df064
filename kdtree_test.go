package meanshift

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
)

func buildTree(t *testing.T, data [][]float64, leafSize int, opts ...KDTreeOption) *KDTree {
	t.Helper()
	tree := NewKDTree(len(data[0]), leafSize, opts...)
	for i, p := range data {
		if err := tree.Insert(p, i); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	return tree
}

func randomPoints(rng *rand.Rand, n, dims int) [][]float64 {
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, dims)
		for j := range data[i] {
			data[i][j] = rng.Float64() * 10
		}
	}
	return data
}

// --- Construction tests ---

func TestKDTree_Construction_BasicProperties(t *testing.T) {
	// 6 points in 2D
	data := [][]float64{
		{0, 0},
		{1, 0},
		{2, 0},
		{0, 3},
		{1, 3},
		{2, 3},
	}
	tree := buildTree(t, data, 2)

	if tree.Len() != len(data) {
		t.Errorf("Len() = %d, want %d", tree.Len(), len(data))
	}
	if tree.Dims() != 2 {
		t.Errorf("Dims() = %d, want 2", tree.Dims())
	}
	if len(tree.nodes) < 3 {
		t.Errorf("expected the root to have split, got %d nodes", len(tree.nodes))
	}
	for id, nd := range tree.nodes {
		if nd.isLeaf && len(nd.points) > 2 {
			t.Errorf("leaf %d holds %d points, want <= 2", id, len(nd.points))
		}
	}
}

func TestKDTree_Construction_LeafSizeLargerThanN(t *testing.T) {
	tree := buildTree(t, [][]float64{{1, 2}, {3, 4}}, 100)
	if len(tree.nodes) != 1 {
		t.Errorf("expected 1 node for leafSize > n, got %d", len(tree.nodes))
	}
	if !tree.nodes[0].isLeaf {
		t.Error("root should be a leaf when leafSize > n")
	}
}

func TestKDTree_Construction_IdenticalPointsDoNotSplit(t *testing.T) {
	data := make([][]float64, 10)
	for i := range data {
		data[i] = []float64{5, 5}
	}
	tree := buildTree(t, data, 2)
	if len(tree.nodes) != 1 {
		t.Errorf("identical points should stay in one leaf, got %d nodes", len(tree.nodes))
	}
	if got := tree.KNearest([]float64{5, 5}, 3, EuclideanMetric{}.Distance); len(got) != 3 {
		t.Errorf("expected 3 results, got %d", len(got))
	}
}

func TestKDTree_Insert_DimensionMismatch(t *testing.T) {
	tree := NewKDTree(3, 4)
	err := tree.Insert([]float64{1, 2}, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if tree.Len() != 0 {
		t.Errorf("failed insert changed Len to %d", tree.Len())
	}
}

func TestKDTree_Insert_CopiesCoordinates(t *testing.T) {
	p := []float64{1, 1}
	tree := NewKDTree(2, 4)
	if err := tree.Insert(p, 7); err != nil {
		t.Fatal(err)
	}
	p[0] = 100
	got := tree.WithinRadius([]float64{1, 1}, 0, EuclideanMetric{}.ReducedDistance)
	if len(got) != 1 || got[0].ID != 7 {
		t.Errorf("mutating the caller's slice changed the tree: %v", got)
	}
}

func TestKDTree_EmptyQueries(t *testing.T) {
	tree := NewKDTree(2, 4)
	if got := tree.KNearest([]float64{0, 0}, 3, EuclideanMetric{}.Distance); len(got) != 0 {
		t.Errorf("KNearest on empty tree = %v", got)
	}
	if got := tree.WithinRadius([]float64{0, 0}, 10, EuclideanMetric{}.Distance); len(got) != 0 {
		t.Errorf("WithinRadius on empty tree = %v", got)
	}
}

// --- KNN query tests ---

func TestKDTree_KNN_BruteForceMatch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := randomPoints(rng, 200, 3)

	for _, metric := range []Metric{EuclideanMetric{}, ManhattanMetric{}} {
		for _, prune := range []bool{true, false} {
			tree := buildTree(t, data, 4, WithPruning(prune))
			for _, k := range []int{1, 5, 30, 200, 250} {
				for q := 0; q < len(data); q += 17 {
					got := tree.KNearest(data[q], k, metric.ReducedDistance)
					want := bruteForceKNN(data, data[q], k, metric.ReducedDistance)
					if !neighborsMatch(got, want, floatTol) {
						t.Errorf("metric=%s prune=%v k=%d query=%d: tree KNN doesn't match brute force.\n  tree:  %v\n  brute: %v",
							metric.Name(), prune, k, q, got, want)
					}
				}
			}
		}
	}
}

func TestKDTree_KNN_SortedAscending(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := randomPoints(rng, 100, 2)
	tree := buildTree(t, data, 3)
	got := tree.KNearest([]float64{5, 5}, 20, EuclideanMetric{}.Distance)
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Distance < got[j].Distance }) {
		t.Errorf("results not sorted: %v", got)
	}
}

func TestKDTree_KNN_TiesByInsertionOrder(t *testing.T) {
	// Four points at distance 1 from the origin, inserted in a known order.
	data := [][]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	tree := NewKDTree(2, 1)
	for i, p := range data {
		if err := tree.Insert(p, 10+i); err != nil {
			t.Fatal(err)
		}
	}
	got := tree.KNearest([]float64{0, 0}, 2, EuclideanMetric{}.ReducedDistance)
	if len(got) != 2 || got[0].ID != 10 || got[1].ID != 11 {
		t.Errorf("expected IDs [10 11], got %v", got)
	}
}

func TestKDTree_KNN_IncludesSelf(t *testing.T) {
	data := [][]float64{{0, 0}, {1, 1}, {2, 2}}
	tree := buildTree(t, data, 1)
	for q := range data {
		got := tree.KNearest(data[q], len(data), EuclideanMetric{}.Distance)
		if len(got) != len(data) {
			t.Errorf("query %d: expected %d results, got %d", q, len(data), len(got))
		}
		if got[0].ID != q || got[0].Distance != 0 {
			t.Errorf("query %d: expected self first at distance 0, got %v", q, got[0])
		}
	}
}

// --- Radius query tests ---

func TestKDTree_WithinRadius_BruteForceMatch(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	data := randomPoints(rng, 300, 4)

	for _, metric := range []Metric{EuclideanMetric{}, ManhattanMetric{}} {
		tree := buildTree(t, data, 5)
		for _, radius := range []float64{0, 1, 2.5, 6, 50} {
			r := metric.DistToRdist(radius)
			for q := 0; q < len(data); q += 23 {
				got := idsOf(tree.WithinRadius(data[q], r, metric.ReducedDistance))
				want := bruteForceRadius(data, data[q], r, metric.ReducedDistance)
				if !equalInts(got, want) {
					t.Errorf("metric=%s radius=%v query=%d: got %v, want %v", metric.Name(), radius, q, got, want)
				}
			}
		}
	}
}

func TestKDTree_WithinRadius_BoundaryInclusive(t *testing.T) {
	data := [][]float64{{0, 0}, {3, 4}, {6, 8}}
	tree := buildTree(t, data, 1)
	got := idsOf(tree.WithinRadius([]float64{0, 0}, 5, EuclideanMetric{}.Distance))
	if !equalInts(got, []int{0, 1}) {
		t.Errorf("expected [0 1] (boundary included), got %v", got)
	}
}

func TestKDTree_WithinRadius_NonPrunableMetric(t *testing.T) {
	// DTW distances are not bounded below by box distances, so the tree has
	// to scan every leaf. Compare with brute force.
	rng := rand.New(rand.NewSource(5))
	data := randomPoints(rng, 80, 6)
	tree := buildTree(t, data, 4, WithPruning(false))
	dtw := NewDTWMetric()
	for q := 0; q < len(data); q += 9 {
		got := idsOf(tree.WithinRadius(data[q], 8, dtw.ReducedDistance))
		want := bruteForceRadius(data, data[q], 8, dtw.ReducedDistance)
		if !equalInts(got, want) {
			t.Errorf("query %d: got %v, want %v", q, got, want)
		}
	}
}

func TestKDTree_WithinRadius_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	data := randomPoints(rng, 150, 3)
	tree := buildTree(t, data, 4)
	first := tree.WithinRadius(data[0], 16, EuclideanMetric{}.ReducedDistance)
	for i := 0; i < 5; i++ {
		again := tree.WithinRadius(data[0], 16, EuclideanMetric{}.ReducedDistance)
		if len(again) != len(first) {
			t.Fatalf("result length changed: %d vs %d", len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("result order changed at %d: %v vs %v", j, again[j], first[j])
			}
		}
	}
}

func TestKDTree_ConcurrentQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	data := randomPoints(rng, 500, 3)
	tree := buildTree(t, data, 8)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for q := w; q < len(data); q += 8 {
				got := tree.KNearest(data[q], 5, EuclideanMetric{}.ReducedDistance)
				if len(got) != 5 || got[0].ID != q {
					t.Errorf("query %d: unexpected result %v", q, got)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}

// --- helpers ---

type rankedNeighbor struct {
	Neighbor
	seq int
}

func bruteForceKNN(data [][]float64, query []float64, k int, dist DistanceFunc) []Neighbor {
	all := make([]rankedNeighbor, len(data))
	for i, p := range data {
		all[i] = rankedNeighbor{Neighbor{ID: i, Distance: dist(query, p)}, i}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].seq < all[j].seq
	})
	k = min(k, len(all))
	out := make([]Neighbor, k)
	for i := range out {
		out[i] = all[i].Neighbor
	}
	return out
}

func bruteForceRadius(data [][]float64, query []float64, radius float64, dist DistanceFunc) []int {
	var out []int
	for i, p := range data {
		if dist(query, p) <= radius {
			out = append(out, i)
		}
	}
	return out
}

func neighborsMatch(a, b []Neighbor, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !almostEqual(a[i].Distance, b[i].Distance, tol) {
			return false
		}
	}
	return true
}

func idsOf(ns []Neighbor) []int {
	ids := make([]int, len(ns))
	for i, n := range ns {
		ids[i] = n.ID
	}
	sort.Ints(ids)
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
