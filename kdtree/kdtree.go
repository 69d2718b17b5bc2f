// Package kdtree implements the flat, median-split, axis-cycling k-d tree
// the Associator rebuilds once per sweep over the previous sweep's cached
// corner and surface features and queries every 5 LM iterations.
// Nearest-neighbor queries return
// indices into the tree's own backing point slice (left in the caller's
// original order, not permuted by the build) so the correspondence search
// can scan forward and backward from a found index through the same
// ring-ordered array the tree was built from, the way the reference
// algorithm's second/third-neighbor search walks its input cloud.
package kdtree

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

type node struct {
	idx         int
	left, right int
}

// Tree indexes a fixed slice of 3-D points for nearest-neighbor queries.
// Points does not copy or reorder the slice it was built from.
type Tree struct {
	points []r3.Vector
	nodes  []node
	root   int
}

// New builds a tree over points. The slice is retained, not copied; the
// caller must not mutate it while the tree is in use.
func New(points []r3.Vector) *Tree {
	t := &Tree{points: points, root: -1}
	if len(points) == 0 {
		return t
	}
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	t.nodes = make([]node, 0, len(points))
	t.root = t.build(idx, 0)
	return t
}

// build partitions idx by the median along the cycling axis and recurses,
// returning the index into t.nodes of the subtree root, or -1 for an empty
// slice.
func (t *Tree) build(idx []int, depth int) int {
	if len(idx) == 0 {
		return -1
	}
	axis := depth % 3
	sort.Slice(idx, func(i, j int) bool {
		return coord(t.points[idx[i]], axis) < coord(t.points[idx[j]], axis)
	})
	mid := len(idx) / 2
	pos := len(t.nodes)
	t.nodes = append(t.nodes, node{idx: idx[mid], left: -1, right: -1})
	left := t.build(idx[:mid], depth+1)
	right := t.build(idx[mid+1:], depth+1)
	t.nodes[pos].left = left
	t.nodes[pos].right = right
	return pos
}

func coord(p r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// Points returns the backing point slice, in the caller's original order.
func (t *Tree) Points() []r3.Vector { return t.points }

// Len reports the number of indexed points.
func (t *Tree) Len() int { return len(t.points) }

// Nearest returns the index into Points() of the point closest to q and
// its squared distance. ok is false only when the tree is empty.
func (t *Tree) Nearest(q r3.Vector) (idx int, sqDist float64, ok bool) {
	if t.root == -1 {
		return 0, 0, false
	}
	best := -1
	bestSq := math.Inf(1)

	var visit func(n, depth int)
	visit = func(n, depth int) {
		if n == -1 {
			return
		}
		nd := t.nodes[n]
		p := t.points[nd.idx]
		d := q.Sub(p).Norm2()
		if d < bestSq {
			bestSq = d
			best = nd.idx
		}

		axis := depth % 3
		diff := coord(q, axis) - coord(p, axis)
		near, far := nd.left, nd.right
		if diff > 0 {
			near, far = nd.right, nd.left
		}
		visit(near, depth+1)
		if diff*diff < bestSq {
			visit(far, depth+1)
		}
	}
	visit(t.root, 0)
	return best, bestSq, true
}
