package meanshift

import (
	"container/heap"
	"fmt"
	"math"
)

// DefaultLeafSize is the number of points a KDTree leaf holds before it is
// split.
const DefaultLeafSize = 16

// KDTree is an incrementally built k-d tree over (coordinates, id) pairs.
//
// Points live in leaf buckets. When a bucket overflows it is split on the
// dimension of greatest spread at the midpoint of that dimension's range.
// Every node keeps the axis-aligned bounding box of the points below it:
//   - node bounds are stored as min/max per dimension per node
//   - children are referenced by index into the nodes slice
//
// Insert must not run concurrently with anything else. Once inserts stop,
// KNearest and WithinRadius are safe for concurrent use.
type KDTree struct {
	dims     int
	leafSize int
	prune    bool
	nodes    []kdNode
	// nodeBoundsMin[node*dims + j] = min value of feature j in node
	nodeBoundsMin []float64
	// nodeBoundsMax[node*dims + j] = max value of feature j in node
	nodeBoundsMax []float64
	size          int
}

type kdNode struct {
	isLeaf bool

	// leaf bucket
	points [][]float64
	ids    []int
	seqs   []int // insertion sequence, used to break distance ties

	// internal node
	splitDim   int
	splitValue float64
	left       int
	right      int
}

// KDTreeOption configures a KDTree.
type KDTreeOption func(*KDTree)

// WithPruning controls whether subtrees are skipped using the distance from
// the query to a node's bounding box. This is only valid for distance
// functions where that box distance is a lower bound on the distance to any
// point inside the box (Euclidean, Manhattan and their reduced forms).
// Pruning is enabled by default.
func WithPruning(enabled bool) KDTreeOption {
	return func(t *KDTree) {
		t.prune = enabled
	}
}

// NewKDTree creates an empty KD-tree for points of dimensionality dims.
// leafSize controls the max points per leaf node before a split.
func NewKDTree(dims, leafSize int, opts ...KDTreeOption) *KDTree {
	if leafSize < 1 {
		leafSize = 1
	}
	t := &KDTree{
		dims:     dims,
		leafSize: leafSize,
		prune:    true,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.newNode()
	return t
}

// Len returns the number of points in the tree.
func (t *KDTree) Len() int { return t.size }

// Dims returns the dimensionality of each point.
func (t *KDTree) Dims() int { return t.dims }

func (t *KDTree) newNode() int {
	t.nodes = append(t.nodes, kdNode{isLeaf: true})
	for d := 0; d < t.dims; d++ {
		t.nodeBoundsMin = append(t.nodeBoundsMin, math.Inf(1))
		t.nodeBoundsMax = append(t.nodeBoundsMax, math.Inf(-1))
	}
	return len(t.nodes) - 1
}

// Insert adds a copy of coords to the tree under id.
func (t *KDTree) Insert(coords []float64, id int) error {
	if len(coords) != t.dims {
		return fmt.Errorf("%w: point has %d dimensions, tree has %d", ErrInvalidInput, len(coords), t.dims)
	}
	point := append([]float64(nil), coords...)
	seq := t.size
	t.size++

	nodeID := 0
	for {
		t.extendBounds(nodeID, point)
		node := &t.nodes[nodeID]
		if node.isLeaf {
			node.points = append(node.points, point)
			node.ids = append(node.ids, id)
			node.seqs = append(node.seqs, seq)
			if len(node.points) > t.leafSize {
				t.split(nodeID)
			}
			return nil
		}
		if point[node.splitDim] < node.splitValue {
			nodeID = node.left
		} else {
			nodeID = node.right
		}
	}
}

func (t *KDTree) extendBounds(nodeID int, point []float64) {
	base := nodeID * t.dims
	for d, v := range point {
		if v < t.nodeBoundsMin[base+d] {
			t.nodeBoundsMin[base+d] = v
		}
		if v > t.nodeBoundsMax[base+d] {
			t.nodeBoundsMax[base+d] = v
		}
	}
}

// split turns an overflowing leaf into an internal node with two leaf
// children. Leaves whose points cannot be separated are left to grow.
func (t *KDTree) split(nodeID int) {
	base := nodeID * t.dims

	// Find dimension with greatest spread.
	splitDim := 0
	maxSpread := -1.0
	for d := 0; d < t.dims; d++ {
		spread := t.nodeBoundsMax[base+d] - t.nodeBoundsMin[base+d]
		if spread > maxSpread {
			maxSpread = spread
			splitDim = d
		}
	}
	if maxSpread <= 0 {
		return
	}

	splitValue := t.nodeBoundsMin[base+splitDim] + maxSpread/2
	leaf := t.nodes[nodeID]
	var nLeft int
	for _, p := range leaf.points {
		if p[splitDim] < splitValue {
			nLeft++
		}
	}
	if nLeft == 0 || nLeft == len(leaf.points) {
		return
	}

	left := t.newNode()
	right := t.newNode()
	for i, p := range leaf.points {
		child := right
		if p[splitDim] < splitValue {
			child = left
		}
		t.extendBounds(child, p)
		c := &t.nodes[child]
		c.points = append(c.points, p)
		c.ids = append(c.ids, leaf.ids[i])
		c.seqs = append(c.seqs, leaf.seqs[i])
	}

	t.nodes[nodeID] = kdNode{
		splitDim:   splitDim,
		splitValue: splitValue,
		left:       left,
		right:      right,
	}
}

// KNearest returns the k nearest neighbors of query under dist, sorted by
// ascending distance with ties broken by insertion order.
func (t *KDTree) KNearest(query []float64, k int, dist DistanceFunc) []Neighbor {
	if k <= 0 || t.size == 0 {
		return nil
	}
	h := &knnHeap{}
	heap.Init(h)
	scratch := make([]float64, t.dims)
	t.knnSearch(0, query, k, dist, h, scratch)

	// Extract results sorted by distance (ascending).
	nResults := h.Len()
	out := make([]Neighbor, nResults)
	for i := nResults - 1; i >= 0; i-- {
		item := heap.Pop(h).(knnItem)
		out[i] = Neighbor{ID: item.id, Distance: item.dist}
	}
	return out
}

// knnSearch performs a single-tree KNN traversal using a max-heap of size k.
func (t *KDTree) knnSearch(nodeID int, query []float64, k int, dist DistanceFunc, h *knnHeap, scratch []float64) {
	node := &t.nodes[nodeID]

	if node.isLeaf {
		for i, p := range node.points {
			item := knnItem{id: node.ids[i], seq: node.seqs[i], dist: dist(query, p)}
			if h.Len() < k {
				heap.Push(h, item)
			} else if item.before((*h)[0]) {
				(*h)[0] = item
				heap.Fix(h, 0)
			}
		}
		return
	}

	if !t.prune {
		t.knnSearch(node.left, query, k, dist, h, scratch)
		t.knnSearch(node.right, query, k, dist, h, scratch)
		return
	}

	// Determine which child to visit first (nearer child first).
	leftBound := t.minDistPoint(node.left, query, dist, scratch)
	rightBound := t.minDistPoint(node.right, query, dist, scratch)

	nearChild, farChild := node.left, node.right
	farBound := rightBound
	if rightBound < leftBound {
		nearChild, farChild = node.right, node.left
		farBound = leftBound
	}

	t.knnSearch(nearChild, query, k, dist, h, scratch)

	// A far point at exactly the current k-th distance may still win the
	// insertion-order tie, so only strictly farther boxes are pruned.
	if h.Len() < k || farBound <= (*h)[0].dist {
		t.knnSearch(farChild, query, k, dist, h, scratch)
	}
}

// WithinRadius returns every point with dist(query, point) <= radius.
func (t *KDTree) WithinRadius(query []float64, radius float64, dist DistanceFunc) []Neighbor {
	if t.size == 0 {
		return nil
	}
	var out []Neighbor
	scratch := make([]float64, t.dims)
	t.radiusSearch(0, query, radius, dist, &out, scratch)
	return out
}

func (t *KDTree) radiusSearch(nodeID int, query []float64, radius float64, dist DistanceFunc, out *[]Neighbor, scratch []float64) {
	if t.prune && t.minDistPoint(nodeID, query, dist, scratch) > radius {
		return
	}

	node := &t.nodes[nodeID]
	if node.isLeaf {
		for i, p := range node.points {
			if d := dist(query, p); d <= radius {
				*out = append(*out, Neighbor{ID: node.ids[i], Distance: d})
			}
		}
		return
	}

	t.radiusSearch(node.left, query, radius, dist, out, scratch)
	t.radiusSearch(node.right, query, radius, dist, out, scratch)
}

// minDistPoint returns the distance from point to its projection onto the
// bounding box of node. For axis-decomposable metrics this is a lower bound
// on the distance from point to anything stored below node.
func (t *KDTree) minDistPoint(node int, point []float64, dist DistanceFunc, scratch []float64) float64 {
	if len(t.nodes[node].points) == 0 && t.nodes[node].isLeaf {
		return math.Inf(1)
	}
	base := node * t.dims
	for j := 0; j < t.dims; j++ {
		lo := t.nodeBoundsMin[base+j]
		hi := t.nodeBoundsMax[base+j]
		switch {
		case point[j] < lo:
			scratch[j] = lo
		case point[j] > hi:
			scratch[j] = hi
		default:
			scratch[j] = point[j]
		}
	}
	return dist(point, scratch)
}

// --- max-heap for KNN queries ---

type knnItem struct {
	id   int
	seq  int
	dist float64
}

// before reports whether a ranks ahead of b: closer first, then earlier
// insertion.
func (a knnItem) before(b knnItem) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.seq < b.seq
}

// knnHeap is a max-heap of knnItem (worst-ranked item on top) used as a
// bounded priority queue for KNN queries.
type knnHeap []knnItem

func (h knnHeap) Len() int            { return len(h) }
func (h knnHeap) Less(i, j int) bool  { return h[j].before(h[i]) } // max-heap
func (h knnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *knnHeap) Push(x interface{}) { *h = append(*h, x.(knnItem)) }
func (h *knnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
